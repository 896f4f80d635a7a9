package akadressen

import (
	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/AkaBlas/akadressen-utils/pkg/photos"
)

// Option is a function that configures a Reconciler instance.
type Option func(*Reconciler)

// WithStore sets the address book backend. Required.
func WithStore(store Store) Option {
	return func(r *Reconciler) { r.store = store }
}

// WithRoster sets the roster source. Required.
func WithRoster(source RosterSource) Option {
	return func(r *Reconciler) { r.roster = source }
}

// WithPhotoProviders sets the photo providers in priority order. Without
// providers the run merges contact data only.
func WithPhotoProviders(providers ...photos.Provider) Option {
	return func(r *Reconciler) { r.providers = providers }
}

// WithDefaultCountryCode sets the country code assumed for phone numbers
// written with a plain trunk prefix.
func WithDefaultCountryCode(code string) Option {
	return func(r *Reconciler) {
		if code != "" {
			r.countryCode = code
		}
	}
}

// WithPhotoOptions passes tuning through to the photo resolver.
func WithPhotoOptions(opts ...photos.Option) Option {
	return func(r *Reconciler) { r.photoOpts = append(r.photoOpts, opts...) }
}

// WithUpload enables writing merged contacts back to the store. Off by
// default, so a misconfigured run can never modify the address book.
func WithUpload(upload bool) Option {
	return func(r *Reconciler) { r.upload = upload }
}

// WithRunDate pins the run timestamp, mainly for tests.
func WithRunDate(t utc.Time) Option {
	return func(r *Reconciler) { r.runDate = t }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}
