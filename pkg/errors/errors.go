// Package errors provides custom error types for the akadressen system.
// These errors enable programmatic error checking and decide which failures
// abort a reconciliation run and which are skipped and reported.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the akadressen system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrLookupFailed indicates that a photo provider lookup failed
	ErrLookupFailed = errors.New("lookup failed")

	// ErrUploadRejected indicates that the address-book store rejected a record
	ErrUploadRejected = errors.New("upload rejected")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrMissingRevision indicates an upload without a known revision marker
	// that would risk overriding a concurrently changed contact
	ErrMissingRevision = errors.New("missing revision marker")
)

// NormalizationError represents a malformed input field that could not be
// canonicalized. Records carrying one are skipped and reported, never fatal.
type NormalizationError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface
func (e *NormalizationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot normalize %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("cannot normalize %q: %s", e.Value, e.Message)
}

// Is implements errors.Is support
func (e *NormalizationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewNormalizationError creates a new NormalizationError
func NewNormalizationError(field, value, message string) *NormalizationError {
	return &NormalizationError{Field: field, Value: value, Message: message}
}

// ParseError represents an unreadable source document. A ParseError from the
// roster source is fatal to the run and surfaces before any upload.
type ParseError struct {
	Format  string // "csv", "vcard", "har", "xml"
	Source  string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.Source, e.Line, e.Message)
	}
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s source %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{Format: format, Source: source, Message: message, Err: err}
}

// LookupError represents a photo provider failure. After the retry policy is
// exhausted it is treated as "no photo from this provider", not as fatal.
type LookupError struct {
	Provider string
	Phone    string
	Err      error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Phone != "" {
		return fmt.Sprintf("photo lookup via %s for %s: %v", e.Provider, e.Phone, e.Err)
	}
	return fmt.Sprintf("photo lookup via %s: %v", e.Provider, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}

// NewLookupError creates a new LookupError
func NewLookupError(provider, phone string, err error) *LookupError {
	return &LookupError{Provider: provider, Phone: phone, Err: err}
}

// UploadError represents a record the address-book store rejected. It is
// reported per record and does not abort processing of the remaining set.
type UploadError struct {
	UID        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload of contact %s rejected (status %d): %s", e.UID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upload of contact %s failed: %s", e.UID, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadRejected
}

// NewUploadError creates a new UploadError
func NewUploadError(uid string, statusCode int, message string, err error) *UploadError {
	return &UploadError{UID: uid, StatusCode: statusCode, Message: message, Err: err}
}

// APIError represents an error response from a remote HTTP endpoint
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 404 {
		return target == ErrNotFound
	}
	return false
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNormalization checks if an error is a normalization error
func IsNormalization(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsParse checks if an error is a parse error
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsLookup checks if an error is a photo lookup error
func IsLookup(err error) bool {
	return errors.Is(err, ErrLookupFailed)
}

// IsUpload checks if an error is an upload rejection
func IsUpload(err error) bool {
	return errors.Is(err, ErrUploadRejected)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Service: service, StatusCode: statusCode, Message: err.Error(), Err: err}
}
