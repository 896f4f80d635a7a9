// Package app provides the application context for the akadressen CLI:
// configuration loading, logger setup, and the wiring from configuration to
// the reconciliation engine.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/AkaBlas/akadressen-utils/pkg/errors"
	"github.com/AkaBlas/akadressen-utils/pkg/logging"
)

// App represents the akadressen application with its dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
}

// New creates a new App instance with the given version information.
func New(version, commit, date string) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger
	logging.SetDefault(logger)

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Context creates a context that is cancelled when the application receives
// an interrupt or termination signal.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ExitOnError prints the error and exits with a status code reflecting its
// kind, so shell wrappers can react to upload rejections and missing
// resources without parsing the message.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.IsNotFound(err):
		os.Exit(4)
	case errors.IsUpload(err):
		os.Exit(3)
	default:
		os.Exit(1)
	}
}
