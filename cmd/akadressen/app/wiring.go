package app

import (
	"context"
	"fmt"

	akadressen "github.com/AkaBlas/akadressen-utils"
	"github.com/AkaBlas/akadressen-utils/internal/filestore"
	"github.com/AkaBlas/akadressen-utils/internal/photos/gateway"
	"github.com/AkaBlas/akadressen-utils/internal/photos/har"
	"github.com/AkaBlas/akadressen-utils/internal/roster"
	"github.com/AkaBlas/akadressen-utils/internal/transport"
	"github.com/AkaBlas/akadressen-utils/pkg/photos"
)

// buildReconciler wires a reconciler against the CardDAV server, reading the
// roster either from the homepage or from a local CSV.
func (a *App) buildReconciler(rosterPath string, upload bool) (*akadressen.Reconciler, error) {
	store, err := a.carddavClient()
	if err != nil {
		return nil, err
	}
	return akadressen.New(
		akadressen.WithStore(store),
		akadressen.WithRoster(a.rosterSource(rosterPath)),
		akadressen.WithPhotoProviders(a.photoProviders()...),
		akadressen.WithPhotoOptions(
			photos.WithConcurrency(a.config.PhotoConcurrency),
			photos.WithTimeout(a.config.PhotoTimeout),
			photos.WithBackoff(a.config.PhotoBackoff),
		),
		akadressen.WithDefaultCountryCode(a.config.CountryCode),
		akadressen.WithUpload(upload),
		akadressen.WithLogger(a.logger),
	)
}

// buildOfflineReconciler wires a reconciler against a directory of vCard
// files and a local roster CSV. Uploads go back to the files.
func (a *App) buildOfflineReconciler(dir, rosterPath string) (*akadressen.Reconciler, error) {
	store, err := filestore.New(dir)
	if err != nil {
		return nil, err
	}
	return akadressen.New(
		akadressen.WithStore(store),
		akadressen.WithRoster(a.rosterSource(rosterPath)),
		akadressen.WithPhotoProviders(a.photoProviders()...),
		akadressen.WithPhotoOptions(
			photos.WithConcurrency(a.config.PhotoConcurrency),
			photos.WithTimeout(a.config.PhotoTimeout),
			photos.WithBackoff(a.config.PhotoBackoff),
		),
		akadressen.WithDefaultCountryCode(a.config.CountryCode),
		akadressen.WithUpload(true),
		akadressen.WithLogger(a.logger),
	)
}

// rosterSource reads the roster from a local file when given, otherwise
// downloads it from the configured homepage URL.
func (a *App) rosterSource(path string) akadressen.RosterSource {
	source := roster.New(
		a.config.AkadressenURL,
		&transport.BasicAuth{
			Username: a.config.AkadressenUsername,
			Password: a.config.AkadressenPassword,
		},
		roster.WithLogger(a.logger),
	)

	return akadressen.RosterFunc(func(ctx context.Context) (akadressen.Roster, error) {
		var (
			result *roster.Result
			err    error
		)
		if path != "" {
			result, err = source.ParseFile(path)
		} else {
			if a.config.AkadressenURL == "" {
				return akadressen.Roster{}, fmt.Errorf("AKADRESSEN_URL is not configured")
			}
			result, err = source.Fetch(ctx)
		}
		if err != nil {
			return akadressen.Roster{}, err
		}

		out := akadressen.Roster{Records: result.Records}
		for _, s := range result.Skipped {
			out.Skipped = append(out.Skipped, akadressen.Skipped{Name: s.Name, Err: s.Err})
		}
		return out, nil
	})
}

// photoProviders builds the configured providers. The HAR export ranks above
// the gateway: its pictures came out of the user's own contact list.
func (a *App) photoProviders() []photos.Provider {
	var providers []photos.Provider
	if a.config.HARPath != "" {
		provider, err := har.New(a.config.HARPath)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", a.config.HARPath).Msg("ignoring unreadable HAR export")
		} else {
			providers = append(providers, provider)
			a.logger.Info().Int("images", provider.Size()).Msg("loaded WhatsApp HAR export")
		}
	}
	if a.config.PhotoGatewayURL != "" {
		providers = append(providers, gateway.New(a.config.PhotoGatewayURL, a.config.PhotoGatewayToken))
	}
	return providers
}
