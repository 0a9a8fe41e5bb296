package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"oauthprompt/internal/app"
	"oauthprompt/internal/config"
	"oauthprompt/internal/tokens"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Inspect and remove stored user tokens",
		Long: `Works on the token store of the configured storage backend. Token values are
never printed. The memory backend keeps nothing between runs, so these
commands need the file or sqlite driver.`,
	}
	cmd.AddCommand(newTokensListCmd())
	cmd.AddCommand(newTokensSignOutCmd())
	return cmd
}

// openTokenStore opens the persistent token store described by the configuration.
func openTokenStore() (*tokens.StorageStore, func(), error) {
	dir := resolveConfigPath()
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return nil, nil, errors.New("the memory storage driver does not persist tokens")
	}

	store, closeFn, err := app.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}
	return tokens.NewStorageStore(store), cleanup, nil
}

func newTokensListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := openTokenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored tokens.")
				return nil
			}

			renderTokenTable(cmd, entries, time.Now())
			return nil
		},
	}
}

func renderTokenTable(cmd *cobra.Command, entries []tokens.Entry, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Channel", "User", "Connection", "Token", "Expires", "Status"})

	for _, e := range entries {
		status := text.FgGreen.Sprint("valid")
		if e.Token.IsExpired(now, tokens.ExpiryMargin) {
			status = text.FgYellow.Sprint("expired")
		}
		t.AppendRow(table.Row{
			e.Key.ChannelID,
			e.Key.UserID,
			e.Key.ConnectionName,
			e.Token.Value.String(),
			e.Token.ExpirationString(),
			status,
		})
	}
	t.Render()
}

func newTokensSignOutCmd() *cobra.Command {
	var key tokens.Key

	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Delete the stored token of one user",
		Example: `  oauthprompt tokens signout --channel console --user alice --connection github`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := key.Validate(); err != nil {
				return err
			}

			store, cleanup, err := openTokenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeleteToken(cmd.Context(), key); err != nil {
				return fmt.Errorf("failed to delete token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out %s\n", text.FgGreen.Sprint("✓"), key.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&key.ChannelID, "channel", "console", "Channel id")
	cmd.Flags().StringVar(&key.UserID, "user", "", "User id")
	cmd.Flags().StringVar(&key.ConnectionName, "connection", "", "Connection name")
	return cmd
}
