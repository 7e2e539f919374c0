package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"oidcli/internal/oauth"
	"oidcli/internal/profile"
	"oidcli/internal/ui"
)

var (
	loginPort    int
	loginCopy    bool
	loginJSON    bool
	loginOutput  string
	loginTimeout time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Authenticate against a provider and print the tokens",
	Long: `Login runs the OAuth 2.0 Authorization Code flow with PKCE for the
named profile. A browser window is opened for the provider's consent page
and a transient local server collects the redirect. If no profile name is
given and several profiles exist, an interactive picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	mgr, err := profile.NewManager()
	if err != nil {
		return err
	}

	name, err := resolveProfileName(mgr, args)
	if err != nil {
		return err
	}

	prof, err := mgr.GetResolved(name)
	if err != nil {
		return err
	}

	cfg := prof.FlowConfig()
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = loginTimeout
	}

	// Ctrl+C cancels the flow cleanly instead of leaving the callback
	// server waiting.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var spin *spinner.Spinner
	opts := []oauth.FlowOption{
		oauth.WithAuthURLDisplay(func(authURL string) {
			out("Open the following URL in your browser:\n\n  %s\n\n", authURL)
		}),
		oauth.WithManualCodeEntry(func(ctx context.Context) (string, error) {
			p, err := ui.NewPrompter()
			if err != nil {
				return "", err
			}
			defer p.Close()
			return ui.ManualCodeEntry(p, isQuiet())
		}),
	}
	if loginPort > 0 {
		opts = append(opts, oauth.WithPortOverride(loginPort))
	}
	if !isQuiet() {
		opts = append(opts, oauth.WithAwaitNotifier(func() {
			spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Suffix = " Waiting for authentication callback... (Ctrl+C to cancel)"
			spin.Start()
		}))
	}

	out("Logging in with profile %q...\n", name)

	flow := oauth.NewFlow(cfg, opts...)
	token, err := flow.Run(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	return writeTokens(token)
}

// writeTokens renders the token response according to the output flags. In
// quiet mode the tokens are printed as compact JSON so the command stays
// pipe-friendly.
func writeTokens(token *oauth.TokenResponse) error {
	if loginOutput != "" {
		data, err := ui.TokensJSON(token)
		if err != nil {
			return err
		}
		if err := os.WriteFile(loginOutput, append(data, '\n'), 0600); err != nil {
			return fmt.Errorf("failed to write token file: %w", err)
		}
		out("Tokens written to %s\n", loginOutput)
		return nil
	}

	if loginJSON || isQuiet() {
		data, err := ui.TokensJSON(token)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	return ui.DisplayTokens(os.Stdout, token, loginCopy)
}

// resolveProfileName picks the profile to use from the positional argument
// or, when omitted, interactively.
func resolveProfileName(mgr *profile.Manager, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	names := mgr.Names()
	if len(names) == 1 {
		return names[0], nil
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no profiles configured, create one with 'oidcli create'")
	}
	if isQuiet() {
		return "", fmt.Errorf("a profile name is required with --quiet")
	}

	p, err := ui.NewPrompter()
	if err != nil {
		return "", err
	}
	defer p.Close()
	return p.SelectProfile(names)
}

func init() {
	loginCmd.Flags().IntVar(&loginPort, "port", 0, "Override the local callback port")
	loginCmd.Flags().BoolVar(&loginCopy, "copy", false, "Copy the access token to the clipboard")
	loginCmd.Flags().BoolVar(&loginJSON, "json", false, "Print the token response as JSON")
	loginCmd.Flags().StringVarP(&loginOutput, "output", "o", "", "Write the token response as JSON to a file")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", oauth.DefaultCallbackTimeout, "How long to wait for the authentication callback")

	rootCmd.AddCommand(loginCmd)
}
