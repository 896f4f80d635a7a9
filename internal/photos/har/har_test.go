package har

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

func writeHAR(t *testing.T, entries []map[string]any) string {
	t.Helper()
	payload := map[string]any{"log": map[string]any{"entries": entries}}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "whatsapp.har")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func imageEntry(url, mimeType string, data []byte) map[string]any {
	return map[string]any{
		"request": map[string]any{"url": url},
		"response": map[string]any{
			"content": map[string]any{
				"mimeType": mimeType,
				"text":     base64.StdEncoding.EncodeToString(data),
				"encoding": "base64",
			},
		},
	}
}

func TestLookup(t *testing.T) {
	path := writeHAR(t, []map[string]any{
		imageEntry("https://pps.whatsapp.net/v/491511234567@c.us?x=1", "image/jpeg", []byte("john-photo")),
		imageEntry("https://pps.whatsapp.net/v/4917999@c.us", "image/png", []byte("other-photo")),
		{
			"request":  map[string]any{"url": "https://web.whatsapp.com/app.js"},
			"response": map[string]any{"content": map[string]any{"mimeType": "text/javascript", "text": "x"}},
		},
	})

	provider, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Size())

	photo, err := provider.Lookup(context.Background(), "491511234567")
	require.NoError(t, err)
	require.NotNil(t, photo)
	assert.Equal(t, []byte("john-photo"), photo.Data)
	assert.Equal(t, "jpeg", photo.Subtype)

	photo, err = provider.Lookup(context.Background(), "490000000")
	require.NoError(t, err)
	assert.Nil(t, photo)
}

func TestNewRejectsNonHAR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.har")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"har"}`), 0o644))

	_, err := New(path)
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
}

func TestLookupCanceled(t *testing.T) {
	path := writeHAR(t, []map[string]any{
		imageEntry("https://example.org/1", "image/jpeg", []byte("x")),
	})
	provider, err := New(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = provider.Lookup(ctx, "1")
	assert.Error(t, err)
}
