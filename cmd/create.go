package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"oidcli/internal/profile"
	"oidcli/internal/ui"
)

var (
	createDiscoveryURI   string
	createClientID       string
	createClientSecret   string
	createRedirectURI    string
	createScope          string
	createAuthEndpoint   string
	createTokenEndpoint  string
	createTimeout        int
	createKeyring        bool
	createNonInteractive bool
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new provider profile",
	Long: `Create stores a named provider profile. With --non-interactive all
values come from flags; otherwise missing values are prompted for. The
client secret can be kept in the OS keyring instead of the profiles file
with --keyring.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	mgr, err := profile.NewManager()
	if err != nil {
		return err
	}
	if _, err := mgr.Get(name); err == nil {
		return &profile.ExistsError{Name: name}
	}

	p := profile.Profile{
		DiscoveryURI:          createDiscoveryURI,
		ClientID:              createClientID,
		ClientSecret:          createClientSecret,
		RedirectURI:           createRedirectURI,
		Scope:                 createScope,
		AuthorizationEndpoint: createAuthEndpoint,
		TokenEndpoint:         createTokenEndpoint,
		TimeoutSeconds:        createTimeout,
	}

	if !createNonInteractive {
		if err := promptProfile(&p); err != nil {
			return err
		}
	}
	if p.RedirectURI == "" {
		p.RedirectURI = profile.DefaultRedirectURI
	}
	if p.Scope == "" {
		p.Scope = profile.DefaultScope
	}

	if err := mgr.Create(name, p, createKeyring); err != nil {
		return err
	}

	out("Profile %q created.\n", name)
	return nil
}

// promptProfile fills in the fields that were not supplied on the command
// line.
func promptProfile(p *profile.Profile) error {
	pr, err := ui.NewPrompter()
	if err != nil {
		return err
	}
	defer pr.Close()

	if p.ClientID == "" {
		p.ClientID, err = pr.Input("Client ID", true)
		if err != nil {
			return err
		}
	}
	if p.ClientSecret == "" {
		p.ClientSecret, err = pr.Secret("Client secret (leave empty for public clients)")
		if err != nil {
			return err
		}
	}

	if p.DiscoveryURI == "" && p.AuthorizationEndpoint == "" && p.TokenEndpoint == "" {
		choice, err := pr.Select("Endpoint configuration:\n  1) OIDC discovery URI\n  2) Manual authorization/token endpoints", 2)
		if err != nil {
			return err
		}
		switch choice {
		case 1:
			p.DiscoveryURI, err = pr.Input("Discovery URI (e.g. https://issuer/.well-known/openid-configuration)", true)
		case 2:
			p.AuthorizationEndpoint, err = pr.Input("Authorization endpoint", true)
			if err != nil {
				return err
			}
			p.TokenEndpoint, err = pr.Input("Token endpoint", true)
		}
		if err != nil {
			return err
		}
	}

	if p.RedirectURI == "" {
		p.RedirectURI, err = pr.InputWithDefault("Redirect URI", profile.DefaultRedirectURI)
		if err != nil {
			return err
		}
	}
	if p.Scope == "" {
		p.Scope, err = pr.InputWithDefault("Scope", profile.DefaultScope)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	createCmd.Flags().StringVar(&createDiscoveryURI, "discovery-uri", "", "OIDC discovery document URI")
	createCmd.Flags().StringVar(&createClientID, "client-id", "", "OAuth client ID")
	createCmd.Flags().StringVar(&createClientSecret, "client-secret", "", "OAuth client secret (confidential clients only)")
	createCmd.Flags().StringVar(&createRedirectURI, "redirect-uri", "", fmt.Sprintf("Redirect URI (default %s)", profile.DefaultRedirectURI))
	createCmd.Flags().StringVar(&createScope, "scope", "", fmt.Sprintf("Space-separated scopes (default %q)", profile.DefaultScope))
	createCmd.Flags().StringVar(&createAuthEndpoint, "authorization-endpoint", "", "Authorization endpoint (alternative to discovery)")
	createCmd.Flags().StringVar(&createTokenEndpoint, "token-endpoint", "", "Token endpoint (alternative to discovery)")
	createCmd.Flags().IntVar(&createTimeout, "timeout", 0, "Callback timeout in seconds (0 uses the default)")
	createCmd.Flags().BoolVar(&createKeyring, "keyring", false, "Store the client secret in the OS keyring")
	createCmd.Flags().BoolVar(&createNonInteractive, "non-interactive", false, "Fail instead of prompting for missing values")

	rootCmd.AddCommand(createCmd)
}
