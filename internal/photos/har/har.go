// Package har provides a photo provider backed by a HAR export of the
// WhatsApp web client's network traffic. Scrolling through the contact list
// with the browser's network tab recording captures every profile picture;
// the export is then matched against phone numbers offline.
package har

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"

	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

type harFile struct {
	Log *harLog `json:"log"`
}

type harLog struct {
	Entries []harEntry `json:"entries"`
}

type harEntry struct {
	Request  *harRequest  `json:"request"`
	Response *harResponse `json:"response"`
}

type harRequest struct {
	URL string `json:"url"`
}

type harResponse struct {
	Content *harContent `json:"content"`
}

type harContent struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding"`
}

// Provider matches phone numbers against the image URLs of a HAR export.
type Provider struct {
	photos map[string]*contacts.Photo // request URL -> image
}

// New loads and indexes a HAR export.
func New(path string) (*Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file harFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.WrapParse("har", path, err)
	}
	if file.Log == nil || len(file.Log.Entries) == 0 {
		return nil, &errors.ParseError{Format: "har", Source: path, Message: "no log entries"}
	}

	photos := make(map[string]*contacts.Photo)
	for _, entry := range file.Log.Entries {
		if entry.Request == nil || entry.Response == nil || entry.Response.Content == nil {
			continue
		}
		content := entry.Response.Content
		if entry.Request.URL == "" || !strings.HasPrefix(content.MimeType, "image/") {
			continue
		}
		if !strings.EqualFold(content.Encoding, "base64") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(content.Text)
		if err != nil {
			// A truncated capture entry; the rest of the export is fine.
			continue
		}
		photos[entry.Request.URL] = &contacts.Photo{
			Data:    data,
			Subtype: strings.TrimPrefix(content.MimeType, "image/"),
		}
	}

	return &Provider{photos: photos}, nil
}

// Name implements photos.Provider.
func (p *Provider) Name() string {
	return "whatsapp-har"
}

// Lookup implements photos.Provider. WhatsApp encodes the full international
// number in its media URLs, so a canonical number matches by substring.
func (p *Provider) Lookup(ctx context.Context, phone string) (*contacts.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if phone == "" {
		return nil, nil
	}
	for url, photo := range p.photos {
		if strings.Contains(url, phone) {
			return photo, nil
		}
	}
	return nil, nil
}

// Size returns the number of indexed images.
func (p *Provider) Size() int {
	return len(p.photos)
}
