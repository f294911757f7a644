package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// NewAddCommand stores one credential.
func NewAddCommand(app *App) *cobra.Command {
	var (
		label    string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "add <value>",
		Short: "Store a credential",
		Long: `Encrypt and store a credential. A value that is already stored is
reported and left unchanged.

Examples:
  credpoolctl add sk-abc123
  credpoolctl add sk-abc123 --label "Account 2" --provider openai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				if provider == "" {
					provider = s.cfg.Provider
				}

				added, err := s.store.Add(cmd.Context(), args[0], label, provider)
				if errors.Is(err, driven.ErrEmptyCredential) {
					return errors.New("credential value must not be empty")
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				masked := cipherbox.Mask(strings.TrimSpace(args[0]))
				if !added {
					_, _ = fmt.Fprintf(out, "already stored: %s\n", masked)
					return nil
				}
				_, _ = fmt.Fprintf(out, "added %s to %q (%s)\n", masked, label, provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", model.PrimaryAccountLabel, "Account label")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider (default: CREDPOOL_PROVIDER)")

	return cmd
}

// NewListCommand prints stored credentials with masked values.
func NewListCommand(app *App) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				creds, err := s.pool.ListAll(cmd.Context(), provider)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tPROVIDER\tACCOUNT\tVALUE\tSTATUS\tUSAGE\tERRORS\tLAST USED")
				for _, c := range creds {
					value := cipherbox.Mask(c.Value)
					if !c.Decrypted {
						value = "<undecryptable>"
					}
					lastUsed := "-"
					if c.LastUsed != nil {
						lastUsed = c.LastUsed.UTC().Format(time.RFC3339)
					}
					_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						c.ID, c.Provider, c.AccountLabel, value, c.Status, c.UsageCount, c.ErrorCount, lastUsed)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Only list this provider")

	return cmd
}

// NewStatusCommand changes a credential's status.
func NewStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|rate_limited|quota_exceeded|exhausted>",
		Short: "Set a credential's status",
		Long: `Set the administrative status of a credential. Only active credentials
are handed out by the pool.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := model.CredentialStatus(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}

			return app.withSession(cmd.Context(), func(s *session) error {
				if err := s.pool.UpdateStatus(cmd.Context(), id, status); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "credential %d is now %s\n", id, status)
				return nil
			})
		},
	}
}

// NewRemoveCommand deletes a credential.
func NewRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a credential",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return app.withSession(cmd.Context(), func(s *session) error {
				if err := s.pool.Remove(cmd.Context(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed credential %d\n", id)
				return nil
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid credential id %q", raw)
	}
	return id, nil
}
