package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AkaBlas/akadressen-utils/pkg/logging"
)

// Execute runs the akadressen CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "akadressen",
		Short:   "Reconcile the AkaDressen roster with a CardDAV address book",
		Version: a.version,
		Long: `akadressen keeps a CardDAV address book in sync with the AkaDressen,
the AkaBlas member roster. The roster decides who exists; the address book
keeps everything it already stores. A run only appends missing data, never
replaces or deletes, and everything it cannot decide safely lands in the
change report for manual review.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.akadressen.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().StringVar(&a.config.CountryCode, "country-code", a.config.CountryCode, "default country code for phone numbers")

	rootCmd.SetVersionTemplate("akadressen {{.Version}}\n")

	rootCmd.AddCommand(
		a.createSyncCommand(),
		a.createFetchCommand(),
		a.createMergeCommand(),
		a.createVersionCommand(),
	)

	return rootCmd
}

// setupCommand runs before every command. Flags are parsed at this point,
// so the logger is rebuilt to honor them.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
	return nil
}
