package cmd

import (
	"github.com/spf13/cobra"

	"oidcli/internal/profile"
	"oidcli/internal/ui"
)

var editKeyring bool

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit an existing profile interactively",
	Long: `Edit walks through the fields of an existing profile, showing the
current value of each. Press enter to keep a value, or type "none" to clear
an optional one. The stored client secret is never echoed.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	name := args[0]

	mgr, err := profile.NewManager()
	if err != nil {
		return err
	}
	p, err := mgr.Get(name)
	if err != nil {
		return err
	}

	pr, err := ui.NewPrompter()
	if err != nil {
		return err
	}
	defer pr.Close()

	if p.ClientID, err = pr.InputWithDefault("Client ID", p.ClientID); err != nil {
		return err
	}

	secretLabel := "Client secret (empty keeps current)"
	if !p.SecretInKeyring && p.ClientSecret == "" {
		secretLabel = "Client secret (leave empty for public clients)"
	}
	newSecret, err := pr.Secret(secretLabel)
	if err != nil {
		return err
	}
	useKeyring := p.SecretInKeyring
	if newSecret != "" {
		p.ClientSecret = newSecret
		useKeyring = editKeyring || p.SecretInKeyring
		p.SecretInKeyring = false
	} else if p.SecretInKeyring {
		// Round-trip the existing keyring secret through Update so the
		// keyring entry survives the edit.
		resolved, err := mgr.GetResolved(name)
		if err != nil {
			return err
		}
		p.ClientSecret = resolved.ClientSecret
		p.SecretInKeyring = false
	}

	if p.DiscoveryURI, err = pr.OptionalInputWithCurrent("Discovery URI", p.DiscoveryURI); err != nil {
		return err
	}
	if p.AuthorizationEndpoint, err = pr.OptionalInputWithCurrent("Authorization endpoint", p.AuthorizationEndpoint); err != nil {
		return err
	}
	if p.TokenEndpoint, err = pr.OptionalInputWithCurrent("Token endpoint", p.TokenEndpoint); err != nil {
		return err
	}
	if p.RedirectURI, err = pr.InputWithDefault("Redirect URI", p.RedirectURI); err != nil {
		return err
	}
	if p.Scope, err = pr.InputWithDefault("Scope", p.Scope); err != nil {
		return err
	}

	if err := mgr.Update(name, p, useKeyring); err != nil {
		return err
	}

	out("Profile %q updated.\n", name)
	return nil
}

func init() {
	editCmd.Flags().BoolVar(&editKeyring, "keyring", false, "Move the client secret into the OS keyring")

	rootCmd.AddCommand(editCmd)
}
