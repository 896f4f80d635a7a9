package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	application, err := New("test", "none", "today")
	require.NoError(t, err)
	return application
}

func TestVersionCommand(t *testing.T) {
	application := newTestApp(t)

	var out bytes.Buffer
	root := application.createRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "akadressen test")
}

func TestSyncRequiresCardDAVURL(t *testing.T) {
	application := newTestApp(t)
	application.config.CardDAVURL = ""

	var out bytes.Buffer
	root := application.createRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"sync", "--dry-run"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CARDDAV_URL")
}

func TestMergeRequiresRoster(t *testing.T) {
	application := newTestApp(t)

	root := application.createRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"merge", "--dir", t.TempDir()})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--roster")
}

func TestDetermineLogLevel(t *testing.T) {
	cases := []struct {
		name   string
		config Config
		want   string
	}{
		{"default", Config{}, "info"},
		{"verbose", Config{Verbose: true}, "debug"},
		{"quiet", Config{Quiet: true}, "warn"},
		{"both prefers quiet", Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit wins", Config{Verbose: true, LogLevel: "error"}, "error"},
		{"invalid falls back", Config{LogLevel: "shouty"}, "info"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "")
			assert.Equal(t, tc.want, determineLogLevel(&tc.config))
		})
	}
}
