package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"oauthprompt/internal/config"
)

func newCheckCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Long: `Loads config.yaml and environment overrides and reports every problem found.

Exit codes:
  0  configuration is valid
  2  configuration is missing required settings or cannot be parsed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := resolveConfigPath()
			out := cmd.OutOrStdout()

			cfg, err := config.LoadConfig(dir)
			if err == nil {
				err = cfg.Validate(config.FilePath(dir))
			}
			if err != nil {
				var collection config.ConfigurationErrorCollection
				var single config.ConfigurationError
				switch {
				case errors.As(err, &collection):
					fmt.Fprintln(out, collection.GetDetailedReport())
				case errors.As(err, &single):
					fmt.Fprintln(out, single.DetailedError())
				}
				fmt.Fprintf(out, "%s %s\n", text.FgRed.Sprint("✗"), "Configuration is invalid")
				return err
			}

			if !quiet {
				fmt.Fprintf(out, "%s Configuration is valid\n", text.FgGreen.Sprint("✓"))
				fmt.Fprintf(out, "  Callback:    %s%s\n", cfg.Server.PublicURL, cfg.Server.CallbackPath)
				fmt.Fprintf(out, "  Storage:     %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
				fmt.Fprintf(out, "  Prompt:      %s (timeout %s)\n", cfg.PromptConnection(), cfg.Prompt.Timeout)
				fmt.Fprintf(out, "  Connections: %d\n", len(cfg.Connections))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report problems")
	return cmd
}
