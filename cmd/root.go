package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oidcli/internal/oauth"
	"oidcli/internal/ui"
	"oidcli/pkg/logging"
)

// Exit codes for CLI commands. These follow common conventions so scripts
// can distinguish a failed login from a usage error or a user interrupt.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
	// ExitCodeCancelled indicates the user aborted the flow.
	ExitCodeCancelled = 130
)

// Global flags
var (
	flagQuiet   bool
	flagVerbose bool
)

// rootCmd represents the base command for the oidcli application.
var rootCmd = &cobra.Command{
	Use:   "oidcli",
	Short: "OAuth 2.0/OpenID Connect authentication from the command line",
	Long: `oidcli performs browser-based OAuth 2.0 Authorization Code + PKCE
logins against any OpenID-Connect-compatible identity provider and prints
the resulting tokens. Providers are configured as named profiles.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if flagVerbose {
			level = logging.LevelDebug
		}
		if flagQuiet {
			level = logging.LevelError
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// isQuiet reports whether output should be suppressed. Verbose never wins
// over quiet.
func isQuiet() bool {
	return flagQuiet
}

// out prints to stdout unless --quiet is set.
func out(format string, args ...interface{}) {
	if !isQuiet() {
		fmt.Printf(format, args...)
	}
}

// outln prints a line to stdout unless --quiet is set.
func outln(args ...interface{}) {
	if !isQuiet() {
		fmt.Println(args...)
	}
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "oidcli version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		exitCode := getExitCode(err)
		// A user interrupt exits silently, like the interrupted command
		// never printed.
		if exitCode != ExitCodeCancelled {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode)
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, oauth.ErrCancelled) || errors.Is(err, ui.ErrAborted) {
		return ExitCodeCancelled
	}

	var discoveryErr *oauth.DiscoveryError
	var bindErr *oauth.BindError
	var stateErr *oauth.StateMismatchError
	var providerErr *oauth.ProviderError
	var timeoutErr *oauth.TimeoutError
	var exchangeErr *oauth.TokenExchangeError
	if errors.As(err, &discoveryErr) ||
		errors.As(err, &bindErr) ||
		errors.As(err, &stateErr) ||
		errors.As(err, &providerErr) ||
		errors.As(err, &timeoutErr) ||
		errors.As(err, &exchangeErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
}
