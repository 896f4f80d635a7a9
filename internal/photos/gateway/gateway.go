// Package gateway provides a photo provider backed by the Telegram photo
// gateway, a small HTTP service holding a logged-in Telegram session. It
// answers GET /v1/photos/{phone} with the raw profile picture or 404 when
// the number has none (or hides it).
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/AkaBlas/akadressen-utils/internal/transport"
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// Provider queries the photo gateway.
type Provider struct {
	transport *transport.Client
	baseURL   string
}

// New creates a Provider for the gateway at baseURL, authenticating with the
// given bearer token.
func New(baseURL, token string) *Provider {
	return &Provider{
		transport: transport.New(&transport.BearerAuth{Token: token}),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// Name implements photos.Provider.
func (p *Provider) Name() string {
	return "telegram-gateway"
}

// Lookup implements photos.Provider.
func (p *Provider) Lookup(ctx context.Context, phone string) (*contacts.Photo, error) {
	if phone == "" {
		return nil, nil
	}

	resp, err := p.transport.Get(ctx, p.baseURL+"/v1/photos/"+url.PathEscape(phone))
	if err != nil {
		return nil, errors.WrapAPI("photo-gateway", 0, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, nil
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := transport.ReadBody(resp, "photo-gateway")
	if err != nil {
		return nil, err
	}

	subtype := "jpeg"
	if mt, ok := strings.CutPrefix(contentType, "image/"); ok {
		subtype, _, _ = strings.Cut(mt, ";")
	}
	return &contacts.Photo{Data: body, Subtype: subtype}, nil
}
