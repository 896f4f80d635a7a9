package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfigLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"invalid falls back to info", "nope", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := FromConfig(&Config{Level: tt.level, Format: "json", Output: "discard"})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Info().Str("uid", "abc").Msg("uploading contact")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["uid"])
	assert.Equal(t, "uploading contact", entry["message"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithLogger(context.Background(), &logger)
	assert.Same(t, &logger, FromContext(ctx))
	assert.Same(t, &logger, Ctx(ctx))

	// Missing logger falls back to the default.
	assert.Same(t, Default(), FromContext(context.Background()))
	assert.Same(t, Default(), FromContext(nil)) //nolint:staticcheck // nil context on purpose
}

func TestWithContactField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithContact(WithLogger(context.Background(), &logger), "uid-1")
	Ctx(ctx).Info().Msg("merged")

	assert.Contains(t, buf.String(), `"uid":"uid-1"`)
}

func TestProgressModulo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	p := NewProgress(&logger, 25, "contacts downloaded", 10)
	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Done()
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, p.Count())
	// Entries at 10, 20 and the final 25.
	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	assert.Equal(t, 3, lines)
}
