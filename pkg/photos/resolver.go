// Package photos resolves profile pictures for contacts by canonical phone
// number. Providers are tried in a fixed priority order; the first one that
// has a picture wins. A provider failing or timing out is retried once and
// then skipped, so a broken provider never blocks the run.
package photos

import (
	"context"
	"time"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/logging"
)

// Provider looks up a profile picture for a canonical phone number.
// Returning (nil, nil) means the provider has no picture for this number,
// which is an expected outcome, not an error.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Lookup returns the picture for the given canonical phone number, or
	// nil when the provider has none.
	Lookup(ctx context.Context, phone string) (*contacts.Photo, error)
}

// Default tuning. Concurrency matches the connection budget of earlier
// imports against the same rate-limited endpoints.
const (
	DefaultTimeout     = 20 * time.Second
	DefaultBackoff     = 2 * time.Second
	DefaultConcurrency = 5
)

// Resolver queries providers in priority order.
type Resolver struct {
	providers   []Provider
	timeout     time.Duration
	backoff     time.Duration
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithBackoff sets the pause before the single retry of a failed lookup.
func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) { r.backoff = d }
}

// WithConcurrency bounds how many contacts are resolved at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver over the given providers. Order is
// priority: earlier providers win.
func NewResolver(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers:   providers,
		timeout:     DefaultTimeout,
		backoff:     DefaultBackoff,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns at most one photo for any of the given phone numbers.
// Numbers are tried per provider before falling through to the next, so a
// lower-priority provider only sees a contact none of the higher-priority
// ones knew. A nil result means no provider has a picture.
func (r *Resolver) Resolve(ctx context.Context, phones []string) (*contacts.Photo, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	for _, provider := range r.providers {
		log := logging.Ctx(logging.WithProvider(ctx, provider.Name()))
		for _, phone := range phones {
			photo, err := r.lookupWithRetry(ctx, provider, phone)
			if err != nil {
				if ctx.Err() != nil {
					return nil, errors.ErrCanceled
				}
				// Exhausted retries: no result from this provider.
				log.Warn().Err(err).Msg("photo lookup failed, skipping provider result")
				continue
			}
			if photo != nil {
				log.Debug().Str("phone", phone).Msg("photo resolved")
				return photo, nil
			}
		}
	}
	return nil, nil
}

// lookupWithRetry performs one lookup with the per-call timeout, retrying
// once after the backoff on failure.
func (r *Resolver) lookupWithRetry(ctx context.Context, provider Provider, phone string) (*contacts.Photo, error) {
	photo, err := r.lookup(ctx, provider, phone)
	if err == nil {
		return photo, nil
	}

	select {
	case <-ctx.Done():
		return nil, errors.NewLookupError(provider.Name(), phone, ctx.Err())
	case <-time.After(r.backoff):
	}

	photo, retryErr := r.lookup(ctx, provider, phone)
	if retryErr != nil {
		return nil, errors.NewLookupError(provider.Name(), phone, retryErr)
	}
	return photo, nil
}

func (r *Resolver) lookup(ctx context.Context, provider Provider, phone string) (*contacts.Photo, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return provider.Lookup(callCtx, phone)
}

// Request names one resolution task of a batch.
type Request struct {
	// Key identifies the contact the result belongs to.
	Key string
	// Phones are the contact's canonical phone numbers.
	Phones []string
}

// ResolveAll resolves a batch of requests concurrently, bounded by the
// configured concurrency limit. Lookups share no mutable state; the result
// map is keyed by Request.Key and only contains hits.
func (r *Resolver) ResolveAll(ctx context.Context, requests []Request) map[string]*contacts.Photo {
	type hit struct {
		key   string
		photo *contacts.Photo
	}

	sem := make(chan struct{}, r.concurrency)
	hits := make(chan hit, len(requests))
	progress := logging.NewProgress(logging.FromContext(ctx), len(requests), "photo lookups done", 10)

	for _, req := range requests {
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				progress.Done()
			}()
			photo, err := r.Resolve(logging.WithContact(ctx, req.Key), req.Phones)
			if err == nil && photo != nil {
				hits <- hit{key: req.Key, photo: photo}
			}
		}()
	}

	// Drain the semaphore to wait for all lookups.
	for range cap(sem) {
		sem <- struct{}{}
	}
	close(hits)

	out := make(map[string]*contacts.Photo)
	for h := range hits {
		out[h.key] = h.photo
	}
	return out
}
