package profile

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"oidcli/internal/oauth"
)

const (
	// maxClientIDLength bounds the client_id field; anything longer is a
	// configuration mistake.
	maxClientIDLength = 255

	// DefaultRedirectURI is offered during interactive profile creation.
	DefaultRedirectURI = "http://localhost:8080/callback"

	// DefaultScope is offered during interactive profile creation.
	DefaultScope = "openid profile email"
)

// Profile is a named identity-provider configuration. Profiles are the only
// thing this tool persists; tokens never touch the store.
type Profile struct {
	DiscoveryURI string `yaml:"discovery_uri,omitempty" json:"discovery_uri,omitempty"`
	ClientID     string `yaml:"client_id" json:"client_id"`

	// ClientSecret is empty when SecretInKeyring is set; the secret then
	// lives in the OS keyring under the profile name.
	ClientSecret    string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
	SecretInKeyring bool   `yaml:"client_secret_in_keyring,omitempty" json:"client_secret_in_keyring,omitempty"`

	RedirectURI string `yaml:"redirect_uri" json:"redirect_uri"`
	Scope       string `yaml:"scope" json:"scope"`

	AuthorizationEndpoint string `yaml:"authorization_endpoint,omitempty" json:"authorization_endpoint,omitempty"`
	TokenEndpoint         string `yaml:"token_endpoint,omitempty" json:"token_endpoint,omitempty"`

	// TimeoutSeconds bounds the callback wait for this profile. Zero means
	// the built-in default (300s).
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// FlowConfig flattens the profile into the oauth package's flow
// configuration.
func (p *Profile) FlowConfig() oauth.Config {
	return oauth.Config{
		DiscoveryURI:          p.DiscoveryURI,
		ClientID:              p.ClientID,
		ClientSecret:          p.ClientSecret,
		RedirectURI:           p.RedirectURI,
		Scope:                 p.Scope,
		AuthorizationEndpoint: p.AuthorizationEndpoint,
		TokenEndpoint:         p.TokenEndpoint,
		Timeout:               time.Duration(p.TimeoutSeconds) * time.Second,
	}
}

// Validate checks the profile for the rules the flow depends on: a usable
// client_id, a parseable http(s) redirect URI, a well-formed scope list, and
// an endpoint configuration that is either a discovery URI or a complete
// manual pair.
func (p *Profile) Validate() error {
	if err := validateClientID(p.ClientID); err != nil {
		return err
	}
	if err := validateRedirectURI(p.RedirectURI); err != nil {
		return err
	}
	if err := validateScope(p.Scope); err != nil {
		return err
	}

	if p.DiscoveryURI != "" {
		if err := validateDiscoveryURI(p.DiscoveryURI); err != nil {
			return err
		}
	}
	if p.AuthorizationEndpoint != "" {
		if err := validateEndpoint(p.AuthorizationEndpoint, "authorization endpoint"); err != nil {
			return err
		}
	}
	if p.TokenEndpoint != "" {
		if err := validateEndpoint(p.TokenEndpoint, "token endpoint"); err != nil {
			return err
		}
	}

	if p.DiscoveryURI == "" && (p.AuthorizationEndpoint == "" || p.TokenEndpoint == "") {
		return fmt.Errorf("either discovery_uri or both authorization_endpoint and token_endpoint must be provided")
	}

	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}

	return nil
}

func validateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client_id cannot be empty")
	}
	if strings.TrimSpace(clientID) != clientID {
		return fmt.Errorf("client_id cannot have leading or trailing whitespace")
	}
	if len(clientID) > maxClientIDLength {
		return fmt.Errorf("client_id cannot exceed %d characters", maxClientIDLength)
	}
	return nil
}

func validateRedirectURI(redirectURI string) error {
	if redirectURI == "" {
		return fmt.Errorf("redirect_uri cannot be empty")
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect_uri %q: %w", redirectURI, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("redirect_uri must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("redirect_uri must have a valid host")
	}
	return nil
}

func validateScope(scope string) error {
	if strings.TrimSpace(scope) == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	for _, s := range strings.Fields(scope) {
		for _, r := range s {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_-.:", r) {
				return fmt.Errorf("invalid scope value %q: must contain only alphanumeric characters, underscores, hyphens, dots, or colons", s)
			}
		}
	}
	return nil
}

func validateDiscoveryURI(discoveryURI string) error {
	u, err := url.Parse(discoveryURI)
	if err != nil {
		return fmt.Errorf("invalid discovery_uri %q: %w", discoveryURI, err)
	}
	if u.Host == "" {
		return fmt.Errorf("discovery_uri must have a valid host")
	}
	if u.Scheme != "https" && !isLoopback(u.Hostname()) {
		return fmt.Errorf("discovery_uri must use HTTPS")
	}
	return nil
}

func validateEndpoint(endpoint, what string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid %s URL %q: %w", what, endpoint, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must have a valid host", what)
	}
	if u.Scheme != "https" && !(u.Scheme == "http" && isLoopback(u.Hostname())) {
		return fmt.Errorf("%s must use HTTPS", what)
	}
	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Sanitize trims surrounding whitespace from user-entered profile fields.
func Sanitize(input string) string {
	return strings.TrimSpace(input)
}
