package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"oidcli/internal/oauth"
	"oidcli/internal/profile"
)

// DisplayTokens prints the token set in human-readable form. With copyToken
// set, the access token is also placed on the system clipboard.
func DisplayTokens(w io.Writer, token *oauth.TokenResponse, copyToken bool) error {
	fmt.Fprintln(w, text.FgGreen.Sprint("Authentication successful!"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, text.Bold.Sprint("Access Token:"))
	fmt.Fprintln(w, token.AccessToken)
	fmt.Fprintf(w, "Type: %s\n", token.TokenType)
	if !token.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires: %s (in %d seconds)\n", token.ExpiresAt.Format(time.RFC3339), token.ExpiresIn)
	} else {
		fmt.Fprintln(w, "Expires: not specified")
	}
	fmt.Fprintln(w)

	if token.IDToken != "" {
		fmt.Fprintln(w, text.Bold.Sprint("ID Token:"))
		fmt.Fprintln(w, token.IDToken)
		fmt.Fprintln(w)
	}

	if token.RefreshToken != "" {
		fmt.Fprintln(w, text.Bold.Sprint("Refresh Token:"))
		fmt.Fprintln(w, token.RefreshToken)
		fmt.Fprintln(w)
	}

	if token.Scope != "" {
		fmt.Fprintf(w, "Scope: %s\n", token.Scope)
	}

	if copyToken {
		if err := clipboard.WriteAll(token.AccessToken); err != nil {
			return fmt.Errorf("failed to copy access token to clipboard: %w", err)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Access token copied to clipboard.")
	}

	return nil
}

// tokenJSON is the machine-readable token shape, extending the wire response
// with the computed absolute expiry.
type tokenJSON struct {
	oauth.TokenResponse
	ExpiresAt string `json:"expires_at,omitempty"`
}

// TokensJSON renders the token set as indented JSON for --json / --output.
func TokensJSON(token *oauth.TokenResponse) ([]byte, error) {
	out := tokenJSON{TokenResponse: *token}
	if !token.ExpiresAt.IsZero() {
		out.ExpiresAt = token.ExpiresAt.Format(time.RFC3339)
	}
	return json.MarshalIndent(out, "", "  ")
}

// ProfileTable renders the profile list as a table: name, client id, and how
// endpoints are resolved.
func ProfileTable(w io.Writer, names []string, get func(string) (profile.Profile, error)) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Client ID", "Redirect URI", "Endpoints"})

	for _, name := range names {
		p, err := get(name)
		if err != nil {
			continue
		}
		mode := "manual"
		if p.AuthorizationEndpoint == "" || p.TokenEndpoint == "" {
			mode = "discovery"
		}
		t.AppendRow(table.Row{name, p.ClientID, p.RedirectURI, mode})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
