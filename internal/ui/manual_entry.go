package ui

import (
	"fmt"
	"net/url"
	"strings"
)

// ManualCodeEntry prompts for an authorization code when the redirect URI is
// not a loopback address and no local listener could capture the callback.
// The user may paste the full callback URL or just the code parameter.
func ManualCodeEntry(p *Prompter, quiet bool) (string, error) {
	if !quiet {
		fmt.Println("Your redirect URI is not a loopback address, so the authorization code must be entered manually.")
		fmt.Println("After authorizing in your browser, copy the full callback URL or just the 'code' parameter.")
	}

	for {
		input, err := p.Input("Enter the authorization code or full callback URL", true)
		if err != nil {
			return "", err
		}

		if code := extractCode(input); code != "" {
			return code, nil
		}

		fmt.Println("Could not extract an authorization code from the input. Please try again.")
	}
}

// extractCode pulls the code parameter out of a callback URL, or accepts the
// input verbatim when it is not a URL.
func extractCode(input string) string {
	if u, err := url.Parse(input); err == nil && u.RawQuery != "" {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}
	if !strings.Contains(input, "://") {
		return input
	}
	return ""
}
