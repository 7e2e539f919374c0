package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultHTTPTimeout bounds the discovery fetch and the token exchange.
const DefaultHTTPTimeout = 30 * time.Second

// DiscoveryDocument is the subset of the OIDC provider metadata this tool
// consumes. It is fetched fresh for every login attempt and never cached
// across invocations.
type DiscoveryDocument struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserinfoEndpoint              string   `json:"userinfo_endpoint,omitempty"`
	JwksURI                       string   `json:"jwks_uri,omitempty"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// Endpoints is the resolved authorization/token endpoint pair, produced
// either from a discovery document or directly from profile configuration.
type Endpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// SupportsPKCE reports whether the provider advertises S256. An absent
// code_challenge_methods_supported field is treated as supported, since many
// providers omit it while still accepting PKCE.
func (d *DiscoveryDocument) SupportsPKCE() bool {
	if d.CodeChallengeMethodsSupported == nil {
		return true
	}
	for _, m := range d.CodeChallengeMethodsSupported {
		if m == "S256" {
			return true
		}
	}
	return false
}

// SupportsAuthorizationCode reports whether the provider advertises the code
// response type. As with PKCE, an absent field is treated as supported.
func (d *DiscoveryDocument) SupportsAuthorizationCode() bool {
	if d.ResponseTypesSupported == nil {
		return true
	}
	for _, rt := range d.ResponseTypesSupported {
		if rt == "code" {
			return true
		}
	}
	return false
}

// Discover fetches and validates the OIDC discovery document from the given
// URI. A single attempt is made with a bounded timeout; transient network
// failures propagate to the caller as *DiscoveryError.
func Discover(ctx context.Context, httpClient *http.Client, discoveryURI string) (*DiscoveryDocument, error) {
	if _, err := url.ParseRequestURI(discoveryURI); err != nil {
		return nil, &DiscoveryError{URI: discoveryURI, Reason: "invalid discovery URI", Err: err}
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultHTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURI, nil)
	if err != nil {
		return nil, &DiscoveryError{URI: discoveryURI, Reason: "invalid discovery request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URI: discoveryURI, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{
			URI:    discoveryURI,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DiscoveryError{URI: discoveryURI, Reason: "failed to read response", Err: err}
	}

	var doc DiscoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &DiscoveryError{URI: discoveryURI, Reason: "malformed discovery document", Err: err}
	}

	if err := validateDiscoveryDocument(discoveryURI, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// validateDiscoveryDocument enforces the presence and well-formedness of the
// fields the flow relies on.
func validateDiscoveryDocument(uri string, doc *DiscoveryDocument) error {
	if doc.AuthorizationEndpoint == "" {
		return &DiscoveryError{URI: uri, Reason: "missing authorization_endpoint"}
	}
	if doc.TokenEndpoint == "" {
		return &DiscoveryError{URI: uri, Reason: "missing token_endpoint"}
	}

	if err := validateEndpointURL(doc.AuthorizationEndpoint); err != nil {
		return &DiscoveryError{URI: uri, Reason: "invalid authorization_endpoint", Err: err}
	}
	if err := validateEndpointURL(doc.TokenEndpoint); err != nil {
		return &DiscoveryError{URI: uri, Reason: "invalid token_endpoint", Err: err}
	}

	if !doc.SupportsAuthorizationCode() {
		return &DiscoveryError{URI: uri, Reason: "provider does not support the authorization code flow"}
	}

	return nil
}

// validateEndpointURL requires an absolute https URL. http is tolerated only
// for loopback hosts, which matters for local test providers.
func validateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("endpoint URL %q is not absolute", raw)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopbackHost(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("endpoint URL %q uses http for a non-loopback host", raw)
	default:
		return fmt.Errorf("endpoint URL %q uses unsupported scheme %q", raw, u.Scheme)
	}
}

// isLoopbackHost reports whether host is localhost or a loopback address.
func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
