package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles credpoolctl. Persistent flags populate app before
// any subcommand runs.
func NewRootCommand(app *App, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "credpoolctl",
		Short: "Administer the credential pool",
		Long: `credpoolctl manages the encrypted credential pool used by credpool:
add and remove credentials, change their status, import configured lists,
and inspect usage.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if app.Logger == nil {
				app.Logger = NewLogger(cmd.ErrOrStderr(), app.Debug)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.DBPath, "db", app.DBPath, "Database path (default: CREDPOOL_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&app.Debug, "debug", app.Debug, "Enable debug logging")

	rootCmd.AddCommand(
		NewAddCommand(app),
		NewListCommand(app),
		NewStatusCommand(app),
		NewRemoveCommand(app),
		NewStatsCommand(app),
		NewImportCommand(app),
		NewResetCommand(app),
		NewOrderCommand(app),
	)

	return rootCmd
}
