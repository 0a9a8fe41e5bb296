package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"oauthprompt/internal/config"
	"oauthprompt/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates the configuration could not be loaded or is invalid.
	ExitCodeConfigInvalid = 2
)

var (
	configPath string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauthprompt",
		Short: "Sign users in to OAuth providers from a chat conversation",
		Long: `oauthprompt runs a console chat bot that asks the user to sign in to a
configured OAuth provider. The bot shows a sign-in link, receives the token
through its callback server and replies once the user is logged in. When the
token cannot be pushed into the conversation the callback page shows a six
digit code to type into the chat instead.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			logging.InitForCLI(level, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/oauthprompt)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newTokensCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "oauthprompt version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var collection config.ConfigurationErrorCollection
	if errors.As(err, &collection) {
		return ExitCodeConfigInvalid
	}

	var single config.ConfigurationError
	if errors.As(err, &single) {
		return ExitCodeConfigInvalid
	}

	return ExitCodeError
}

// resolveConfigPath returns the --config-path value or the default directory.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.GetDefaultConfigPathOrPanic()
}
