package cmd

import (
	"errors"
	"os"

	"pup/internal/auth"
	"pup/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so scripts can branch on the failure class.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

var rootDebug bool

// rootCmd represents the base command for the pup application.
var rootCmd = &cobra.Command{
	Use:   "pup",
	Short: "A command-line client for Datadog",
	Long: `pup talks to the Datadog API from your terminal.

It signs in through your browser with OAuth2, stores the resulting tokens
in your OS keychain (or a local file), and supports multiple organizations
per Datadog site.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if rootDebug {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command. Called from main to
// inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. It is called by
// main.main() and exits the process with a semantic exit code on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "pup version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error onto the exit code taxonomy: missing or expired
// credentials ask the user to (re)authenticate, OAuth flow failures are
// distinguished from generic errors.
func getExitCode(err error) int {
	var noCreds *auth.NoCredentialsError
	if errors.As(err, &noCreds) || errors.Is(err, auth.ErrTokenExpired) {
		return ExitCodeAuthRequired
	}

	var (
		authErr     *auth.AuthorizationError
		mismatchErr *auth.StateMismatchError
		timeoutErr  *auth.CallbackTimeoutError
		regErr      *auth.RegistrationError
		exchangeErr *auth.TokenExchangeError
		refreshErr  *auth.TokenRefreshError
	)
	if errors.As(err, &authErr) || errors.As(err, &mismatchErr) || errors.As(err, &timeoutErr) ||
		errors.As(err, &regErr) || errors.As(err, &exchangeErr) || errors.As(err, &refreshErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(newVersionCmd())
}
