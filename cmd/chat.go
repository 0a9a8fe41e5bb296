package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"oauthprompt/internal/app"
)

func newChatCmd() *cobra.Command {
	var silent bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive console conversation with the login bot",
		Long: `Starts the console chat and the OAuth callback server.

Type anything to start signing in. The bot prints a sign-in link; open it in a
browser and complete the provider login. The bot replies "Logged in." as soon
as the token arrives, or asks you to type the code shown in the browser.
Type "logout" to forget the token and "exit" to quit.

Changes to the connections in config.yaml are picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.NewConfig(debug, silent, resolveConfigPath())

			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&silent, "silent", false, "Suppress log output")
	return cmd
}
