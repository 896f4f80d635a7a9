package photos_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/photos"
)

// fakeProvider serves a fixed phone->photo map and counts lookups.
type fakeProvider struct {
	name   string
	byNum  map[string]*contacts.Photo
	err    error
	hang   bool
	calls  atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(ctx context.Context, phone string) (*contacts.Photo, error) {
	f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.byNum[phone], nil
}

func fastOpts() []photos.Option {
	return []photos.Option{
		photos.WithTimeout(20 * time.Millisecond),
		photos.WithBackoff(time.Millisecond),
	}
}

func jpeg() *contacts.Photo {
	return &contacts.Photo{Data: []byte{0xff, 0xd8, 0xff}, Subtype: "jpeg"}
}

func TestResolveFirstProviderWins(t *testing.T) {
	a := &fakeProvider{name: "a", byNum: map[string]*contacts.Photo{"491511111111": jpeg()}}
	b := &fakeProvider{name: "b", byNum: map[string]*contacts.Photo{"491511111111": {Data: []byte{0x89}, Subtype: "png"}}}
	r := photos.NewResolver([]photos.Provider{a, b}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), []string{"491511111111"})
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, "jpeg", photo.Subtype)
	assert.Equal(t, int32(0), b.calls.Load(), "lower priority provider not consulted")
}

// Provider A times out twice, provider B has the photo.
func TestResolveTimeoutFallsThrough(t *testing.T) {
	a := &fakeProvider{name: "a", hang: true}
	b := &fakeProvider{name: "b", byNum: map[string]*contacts.Photo{"491511111111": jpeg()}}
	r := photos.NewResolver([]photos.Provider{a, b}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), []string{"491511111111"})
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, "jpeg", photo.Subtype)
	assert.Equal(t, int32(2), a.calls.Load(), "one retry, then skipped")
}

func TestResolveRetryThenSuccessIsNotAnError(t *testing.T) {
	// Provider errors are retried once; a second-call success counts.
	var first atomic.Bool
	flaky := &flippingProvider{flag: &first, photo: jpeg()}
	r := photos.NewResolver([]photos.Provider{flaky}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), []string{"491511111111"})
	require.NoError(t, err)
	assert.NotNil(t, photo)
}

type flippingProvider struct {
	flag  *atomic.Bool
	photo *contacts.Photo
}

func (f *flippingProvider) Name() string { return "flaky" }

func (f *flippingProvider) Lookup(context.Context, string) (*contacts.Photo, error) {
	if f.flag.CompareAndSwap(false, true) {
		return nil, errors.New("transient")
	}
	return f.photo, nil
}

func TestResolveNoneIsNotAnError(t *testing.T) {
	a := &fakeProvider{name: "a", byNum: map[string]*contacts.Photo{}}
	r := photos.NewResolver([]photos.Provider{a}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), []string{"491511111111", "495311234"})
	require.NoError(t, err)
	assert.Nil(t, photo)
	assert.Equal(t, int32(2), a.calls.Load(), "every number tried")
}

func TestResolveAllFailingProvidersYieldNone(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("boom")}
	b := &fakeProvider{name: "b", err: errors.New("boom")}
	r := photos.NewResolver([]photos.Provider{a, b}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), []string{"491511111111"})
	require.NoError(t, err, "provider failure is not fatal")
	assert.Nil(t, photo)
}

func TestResolveEmptyPhones(t *testing.T) {
	a := &fakeProvider{name: "a"}
	r := photos.NewResolver([]photos.Provider{a}, fastOpts()...)

	photo, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, photo)
	assert.Equal(t, int32(0), a.calls.Load())
}

func TestResolveAll(t *testing.T) {
	byNum := map[string]*contacts.Photo{}
	var requests []photos.Request
	for i := range 20 {
		phone := "4915110000" + string(rune('0'+i%10)) + string(rune('0'+i/10))
		if i%2 == 0 {
			byNum[phone] = jpeg()
		}
		requests = append(requests, photos.Request{Key: phone, Phones: []string{phone}})
	}

	provider := &fakeProvider{name: "a", byNum: byNum}
	r := photos.NewResolver([]photos.Provider{provider},
		photos.WithTimeout(20*time.Millisecond),
		photos.WithBackoff(time.Millisecond),
		photos.WithConcurrency(4),
	)

	hits := r.ResolveAll(context.Background(), requests)

	assert.Len(t, hits, 10, "only hits appear in the result")
	assert.LessOrEqual(t, provider.peak.Load(), int32(4), "concurrency bound respected")
}

func TestResolveAllSharesNoState(t *testing.T) {
	// Concurrent resolution against a provider that sleeps must still
	// terminate and produce independent results.
	slow := &sleepyProvider{photo: jpeg()}
	r := photos.NewResolver([]photos.Provider{slow},
		photos.WithTimeout(time.Second),
		photos.WithConcurrency(8),
	)

	requests := []photos.Request{
		{Key: "a", Phones: []string{"491511111111"}},
		{Key: "b", Phones: []string{"491512222222"}},
		{Key: "c", Phones: []string{"491513333333"}},
	}
	hits := r.ResolveAll(context.Background(), requests)
	assert.Len(t, hits, 3)
}

type sleepyProvider struct {
	mu    sync.Mutex
	photo *contacts.Photo
}

func (s *sleepyProvider) Name() string { return "sleepy" }

func (s *sleepyProvider) Lookup(context.Context, string) (*contacts.Photo, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo, nil
}
