package oauth

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when the user aborts the login flow, typically
// via an interrupt while waiting for the browser callback.
var ErrCancelled = errors.New("login cancelled by user")

// DiscoveryError indicates the OIDC discovery document could not be fetched
// or failed validation. The flow never retries discovery; the user re-runs
// the login command.
type DiscoveryError struct {
	URI    string
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery failed for %s: %s: %v", e.URI, e.Reason, e.Err)
	}
	return fmt.Sprintf("discovery failed for %s: %s", e.URI, e.Reason)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// BindError indicates the local callback port could not be bound. This is
// reported to the user as-is; the flow never falls back to another port,
// because the redirect URI registered with the provider pins the port.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind callback listener on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// StateMismatchError indicates the state parameter returned by the provider
// does not match the one generated for this attempt. This is treated as a
// CSRF attempt: the flow aborts and the authorization code is discarded
// without being exchanged.
type StateMismatchError struct{}

func (e *StateMismatchError) Error() string {
	return "state parameter mismatch - possible CSRF attack, aborting login"
}

// ProviderError carries an OAuth error returned by the identity provider on
// the authorization redirect (e.g. access_denied).
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider returned error %q: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("provider returned error %q", e.Code)
}

// TimeoutError indicates no valid callback arrived within the configured
// deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for authentication callback after %s", e.After)
}

// TokenExchangeError indicates the authorization-code exchange failed, either
// at the HTTP level or because the token response failed validation. When the
// token endpoint returned a structured OAuth error body, OAuthError and
// OAuthErrorDescription carry what the provider said.
type TokenExchangeError struct {
	Endpoint              string
	StatusCode            int
	OAuthError            string
	OAuthErrorDescription string
	Reason                string
	Err                   error
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.OAuthError != "" && e.OAuthErrorDescription != "":
		return fmt.Sprintf("token exchange with %s failed: %s: %s", e.Endpoint, e.OAuthError, e.OAuthErrorDescription)
	case e.OAuthError != "":
		return fmt.Sprintf("token exchange with %s failed: %s", e.Endpoint, e.OAuthError)
	case e.Err != nil:
		return fmt.Sprintf("token exchange with %s failed: %s: %v", e.Endpoint, e.Reason, e.Err)
	default:
		return fmt.Sprintf("token exchange with %s failed: %s", e.Endpoint, e.Reason)
	}
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}
