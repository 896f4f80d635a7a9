// Package akadressen reconciles the AkaDressen member roster with an
// existing CardDAV address book. The roster is authoritative for who exists;
// the address book is authoritative for what it already stores. A run only
// ever appends: existing values are never replaced or deleted, matched
// contacts keep their UID, and anything the engine cannot decide safely ends
// up in the report for manual review instead of being guessed.
package akadressen

import (
	"context"
	"fmt"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/logging"
	"github.com/AkaBlas/akadressen-utils/pkg/match"
	"github.com/AkaBlas/akadressen-utils/pkg/merge"
	"github.com/AkaBlas/akadressen-utils/pkg/normalize"
	"github.com/AkaBlas/akadressen-utils/pkg/photos"
	"github.com/AkaBlas/akadressen-utils/pkg/report"
)

// Store is the address book backend a run reads from and writes to.
type Store interface {
	// FetchAll returns every contact of the address book with its revision
	// marker set.
	FetchAll(ctx context.Context) ([]contacts.ContactRecord, error)

	// Upload writes one contact back. create distinguishes brand-new
	// contacts from updates, which must carry the revision marker of the
	// fetched state.
	Upload(ctx context.Context, rec contacts.ContactRecord, create bool) error
}

// Skipped is a roster row that could not be normalized and was left out.
type Skipped struct {
	Name string
	Err  error
}

// Roster is the parsed member roster.
type Roster struct {
	Records []contacts.RosterRecord
	Skipped []Skipped
}

// RosterSource provides the roster for a run.
type RosterSource interface {
	Fetch(ctx context.Context) (Roster, error)
}

// RosterFunc adapts a function to the RosterSource interface.
type RosterFunc func(ctx context.Context) (Roster, error)

// Fetch implements RosterSource.
func (f RosterFunc) Fetch(ctx context.Context) (Roster, error) {
	return f(ctx)
}

// Reconciler runs the reconciliation. Construct with New.
type Reconciler struct {
	store     Store
	roster    RosterSource
	providers []photos.Provider
	photoOpts []photos.Option

	countryCode string
	upload      bool
	runDate     utc.Time
	logger      *zerolog.Logger
}

// New creates a Reconciler. A store and a roster source are required.
func New(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		countryCode: normalize.DefaultCountryCode,
		runDate:     utc.Now(),
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: no store configured", errors.ErrInvalidInput)
	}
	if r.roster == nil {
		return nil, fmt.Errorf("%w: no roster source configured", errors.ErrInvalidInput)
	}
	return r, nil
}

// Run performs one reconciliation pass and returns its report. With uploads
// enabled the merged contacts are written back; a rejected upload is recorded
// in the report and does not abort the remaining ones.
func (r *Reconciler) Run(ctx context.Context) (*report.Report, error) {
	ctx = logging.WithLogger(ctx, r.logger)
	rep := report.New(r.runDate)

	roster, err := r.roster.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range roster.Skipped {
		rep.AddSkipped(s.Name, s.Err)
	}
	rep.Summary.RosterRecords = len(roster.Records) + len(roster.Skipped)

	existing, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	rep.Summary.Existing = len(existing)
	r.logger.Info().
		Int("roster", len(roster.Records)).
		Int("existing", len(existing)).
		Msg("matching roster against address book")

	results := match.NewIndex(existing, r.countryCode).MatchAll(roster.Records)
	resolved := r.resolvePhotos(ctx, results)

	merger := merge.New(r.countryCode, r.runDate.Time)
	var pending []merge.Merged
	for _, res := range results {
		switch res.Kind {
		case match.KindMatched:
			merged := merger.Merge(*res.Contact, res.Record, resolved[res.Contact.UID])
			rep.AddMerged(res, merged)
			if merged.HasChanges() {
				pending = append(pending, merged)
			}
		case match.KindUnmatched:
			merged := merger.NewContact(res.Record)
			rep.AddMerged(res, merged)
			pending = append(pending, merged)
		case match.KindAmbiguous:
			rep.AddAmbiguous(res)
		default:
			return nil, fmt.Errorf("%w: unknown match outcome %q", errors.ErrInvalidInput, res.Kind)
		}
	}

	if !r.upload {
		r.logger.Info().Int("pending", len(pending)).Msg("dry run, not uploading")
		return rep, nil
	}

	uploadLog := logging.Ctx(logging.WithOperation(ctx, "upload"))
	for _, merged := range pending {
		if err := ctx.Err(); err != nil {
			return rep, errors.ErrCanceled
		}
		if err := r.store.Upload(ctx, merged.Contact, merged.Created); err != nil {
			uploadLog.Error().Err(err).Str("uid", merged.Contact.UID).Msg("upload rejected")
			rep.AddUploadFailure(merged.Contact.UID, merged.Contact.Name.String(), err)
			continue
		}
		rep.Summary.Uploaded++
	}
	return rep, nil
}

// resolvePhotos looks up photos for the matched contacts that have none yet.
// Each canonical phone number is claimed by at most one contact, so one
// picture can never be attached to two records in the same run; with shared
// numbers the first matched contact wins.
func (r *Reconciler) resolvePhotos(ctx context.Context, results []match.Result) map[string]*contacts.Photo {
	if len(r.providers) == 0 {
		return nil
	}

	claimed := make(map[string]bool)
	var requests []photos.Request
	for _, res := range results {
		if res.Kind != match.KindMatched || res.Contact.Photo != nil {
			continue
		}
		var numbers []string
		for _, phone := range allPhones(res) {
			canonical, err := normalize.Phone(phone.Number, r.countryCode)
			if err != nil || claimed[canonical] {
				continue
			}
			claimed[canonical] = true
			numbers = append(numbers, canonical)
		}
		if len(numbers) > 0 {
			requests = append(requests, photos.Request{Key: res.Contact.UID, Phones: numbers})
		}
	}
	if len(requests) == 0 {
		return nil
	}

	r.logger.Info().Int("contacts", len(requests)).Msg("resolving photos")
	resolver := photos.NewResolver(r.providers, r.photoOpts...)
	return resolver.ResolveAll(ctx, requests)
}

// allPhones returns the contact's stored numbers plus the roster's, so a
// number only the roster knows still finds a picture.
func allPhones(res match.Result) []contacts.Phone {
	out := append([]contacts.Phone(nil), res.Contact.Phones...)
	out = append(out, res.Record.Phones...)
	return out
}
