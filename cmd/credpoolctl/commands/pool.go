package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
)

// NewStatsCommand prints per-account aggregates.
func NewStatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-account usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				stats, err := s.pool.Stats(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ACCOUNT\tKEYS\tACTIVE\tUSAGE\tERRORS")
				for _, st := range stats {
					_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
						st.AccountLabel, st.TotalKeys, st.ActiveKeys, st.TotalUsage, st.TotalErrors)
				}
				return w.Flush()
			})
		},
	}
}

// NewImportCommand imports the configured credential lists.
func NewImportCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import configured credential lists",
		Long: `Import the credential lists configured in the environment
(CREDPOOL_API_KEYS and CREDPOOL_API_KEYS_1 ... _N by default). Values already
stored are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				result := s.pool.Import(cmd.Context())

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, failed %d\n",
					result.Imported, result.Skipped, result.Failed)
				if result.Failed > 0 {
					return fmt.Errorf("%d credentials failed to import", result.Failed)
				}
				return nil
			})
		},
	}
}

// NewResetCommand runs the daily usage reset check.
func NewResetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset usage counters if the calendar day changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				out := cmd.OutOrStdout()
				if s.pool.ResetIfNewDay(cmd.Context()) {
					_, _ = fmt.Fprintln(out, "usage counters reset")
					return nil
				}
				_, _ = fmt.Fprintln(out, "already reset today")
				return nil
			})
		},
	}
}

// NewOrderCommand prints the rotation order the pool would hand out.
func NewOrderCommand(app *App) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show the current rotation order (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				if provider == "" {
					provider = s.cfg.Provider
				}
				out := cmd.OutOrStdout()
				for i, v := range s.pool.ObtainActive(cmd.Context(), provider) {
					_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, cipherbox.Mask(v))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider (default: CREDPOOL_PROVIDER)")

	return cmd
}
