// Package carddav talks to the CardDAV collection holding the address book.
// It lists the collection with a single PROPFIND, downloads the address
// objects concurrently, and uploads changed contacts guarded by their etag so
// that a concurrent edit on the server is never silently overwritten.
package carddav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AkaBlas/akadressen-utils/internal/transport"
	"github.com/AkaBlas/akadressen-utils/internal/vcard"
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/logging"
)

// DefaultConcurrency bounds the parallel downloads from the collection.
const DefaultConcurrency = 5

// Client is a CardDAV address book client.
type Client struct {
	transport   *transport.Client
	baseURL     string
	concurrency int
	logger      *zerolog.Logger

	mu    sync.Mutex
	hrefs map[string]string // UID -> server path, learned while fetching
}

// Option configures a Client.
type Option func(*Client)

// WithConcurrency sets the number of parallel downloads.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the collection at baseURL.
func New(baseURL string, auth transport.Authenticator, opts ...Option) *Client {
	c := &Client{
		transport:   transport.New(auth),
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		concurrency: DefaultConcurrency,
		logger:      logging.Default(),
		hrefs:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) list(ctx context.Context) ([]resource, error) {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", c.baseURL+"/", strings.NewReader(propfindBody))
	if err != nil {
		return nil, errors.WrapAPI("carddav", 0, err)
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, errors.WrapAPI("carddav", 0, err)
	}
	body, err := transport.ReadBody(resp, "carddav")
	if err != nil {
		return nil, err
	}
	return parseMultistatus(body)
}

// FetchAll downloads every contact of the collection. Resources that fail to
// download or parse abort the whole fetch; a partial address book would make
// the matcher report existing contacts as missing.
func (c *Client) FetchAll(ctx context.Context) ([]contacts.ContactRecord, error) {
	resources, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Int("count", len(resources)).Msg("listing address book")

	progress := logging.NewProgress(c.logger, len(resources), "downloading contacts", 25)
	sem := make(chan struct{}, c.concurrency)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		records  = make([]contacts.ContactRecord, 0, len(resources))
		firstErr error
	)
	for _, res := range resources {
		wg.Add(1)
		go func(res resource) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, err := c.fetchResource(ctx, res)
			progress.Done()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			records = append(records, rec)
		}(res)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(records, func(i, j int) bool { return records[i].UID < records[j].UID })
	return records, nil
}

func (c *Client) fetchResource(ctx context.Context, res resource) (contacts.ContactRecord, error) {
	resp, err := c.transport.Get(ctx, c.resolveHref(res.Href))
	if err != nil {
		return contacts.ContactRecord{}, errors.WrapAPI("carddav", 0, err)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		etag = res.Etag
	}

	body, err := transport.ReadBody(resp, "carddav")
	if err != nil {
		return contacts.ContactRecord{}, err
	}

	rec, err := vcard.Decode(bytes.NewReader(body))
	if err != nil {
		return contacts.ContactRecord{}, fmt.Errorf("decoding %s: %w", res.Href, err)
	}
	rec.Rev = etag
	if rec.UID == "" {
		// Some servers store cards without a UID property. The server path
		// is stable, so it serves as the identifier.
		rec.UID = strings.TrimSuffix(filepath.Base(res.Href), ".vcf")
	}

	c.mu.Lock()
	c.hrefs[rec.UID] = res.Href
	c.mu.Unlock()

	return rec, nil
}

// Upload writes a contact back to the collection. Updates to existing
// contacts require a revision marker and send it as If-Match so the server
// rejects the write when the entry changed underneath us. New contacts are
// created with If-None-Match to never clobber an entry at the same path.
func (c *Client) Upload(ctx context.Context, rec contacts.ContactRecord, create bool) error {
	if !create && rec.Rev == "" {
		return fmt.Errorf("contact %s: %w", rec.UID, errors.ErrMissingRevision)
	}

	payload, err := vcard.EncodeBytes(rec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.uploadURL(rec.UID), bytes.NewReader(payload))
	if err != nil {
		return &errors.UploadError{UID: rec.UID, Err: err}
	}
	req.Header.Set("Content-Type", "text/vcard; charset=utf-8")
	if create {
		req.Header.Set("If-None-Match", "*")
	} else {
		req.Header.Set("If-Match", rec.Rev)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return &errors.UploadError{UID: rec.UID, Err: err}
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.UploadError{
			UID:        rec.UID,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return nil
}

func (c *Client) uploadURL(uid string) string {
	c.mu.Lock()
	href, ok := c.hrefs[uid]
	c.mu.Unlock()
	if ok {
		return c.resolveHref(href)
	}
	return c.baseURL + "/" + url.PathEscape(uid) + ".vcf"
}

// resolveHref turns a multistatus href, which servers report as an absolute
// path, back into a full URL on the collection's host.
func (c *Client) resolveHref(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return c.baseURL + href
	}
	return base.ResolveReference(ref).String()
}

// DownloadAll fetches every contact and writes one vCard file per contact
// into dir, named after the contact so the export is browsable.
func (c *Client) DownloadAll(ctx context.Context, dir string) (int, error) {
	records, err := c.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.WrapIO("mkdir", dir, err)
	}

	for _, rec := range records {
		payload, err := vcard.EncodeBytes(rec)
		if err != nil {
			return 0, err
		}
		path := filepath.Join(dir, exportFilename(rec))
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return 0, errors.WrapIO("write", path, err)
		}
	}
	return len(records), nil
}

func exportFilename(rec contacts.ContactRecord) string {
	name := rec.Name.Family + rec.Name.Given
	if name == "" {
		name = rec.UID
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			// dropped, file names stay plain
		default:
			b.WriteRune(r)
		}
	}
	return b.String() + ".vcf"
}
