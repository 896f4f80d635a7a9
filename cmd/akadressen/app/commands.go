package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AkaBlas/akadressen-utils/internal/carddav"
	"github.com/AkaBlas/akadressen-utils/internal/transport"
)

func (a *App) createSyncCommand() *cobra.Command {
	var (
		dryRun     bool
		reportPath string
		rosterPath string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the roster with the address book",
		Long: `Sync downloads the current roster and the address book, matches roster
records against existing contacts, merges missing data, resolves photos, and
uploads the changed contacts. Existing values are never touched.

With --dry-run the full report is produced but nothing is uploaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reconciler, err := a.buildReconciler(rosterPath, !dryRun)
			if err != nil {
				return err
			}

			rep, err := reconciler.Run(cmd.Context())
			if err != nil {
				return err
			}

			rep.Print(cmd.OutOrStdout())
			if reportPath != "" {
				if err := rep.WriteYAML(reportPath); err != nil {
					return err
				}
				a.logger.Info().Str("path", reportPath).Msg("report written")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "produce the report without uploading")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the change report to this YAML file")
	cmd.Flags().StringVar(&rosterPath, "roster", "", "read the roster from a local CSV instead of downloading")
	return cmd
}

func (a *App) createFetchCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the address book as vCard files",
		Long: `Fetch downloads every contact of the address book into a directory, one
.vcf file per contact. Commit the result to version control before a sync to
keep an inspectable history of what changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.carddavClient()
			if err != nil {
				return err
			}
			n, err := client.DownloadAll(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d contacts to %s\n", n, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "vcards", "target directory")
	return cmd
}

func (a *App) createMergeCommand() *cobra.Command {
	var (
		dir        string
		rosterPath string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a local roster CSV into a directory of vCard files",
		Long: `Merge runs the reconciliation offline against a directory of .vcf files
(as produced by fetch) and a local roster CSV. Changed contacts are written
back to their files; upload to the server stays a separate step.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rosterPath == "" {
				return fmt.Errorf("--roster is required")
			}
			reconciler, err := a.buildOfflineReconciler(dir, rosterPath)
			if err != nil {
				return err
			}

			rep, err := reconciler.Run(cmd.Context())
			if err != nil {
				return err
			}

			rep.Print(cmd.OutOrStdout())
			if reportPath != "" {
				if err := rep.WriteYAML(reportPath); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "vcards", "directory of vCard files")
	cmd.Flags().StringVar(&rosterPath, "roster", "", "local roster CSV file")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the change report to this YAML file")
	return cmd
}

func (a *App) createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "akadressen %s (commit %s, built %s)\n", a.version, a.commit, a.date)
		},
	}
}

func (a *App) carddavClient() (*carddav.Client, error) {
	if a.config.CardDAVURL == "" {
		return nil, fmt.Errorf("CARDDAV_URL is not configured")
	}
	var auth transport.Authenticator = &transport.NoAuth{}
	if a.config.CardDAVUsername != "" {
		auth = &transport.BasicAuth{
			Username: a.config.CardDAVUsername,
			Password: a.config.CardDAVPassword,
		}
	}
	return carddav.New(a.config.CardDAVURL, auth, carddav.WithLogger(a.logger)), nil
}
