package oauth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "discovery without cause",
			err:  &DiscoveryError{URI: "https://idp/.well-known/openid-configuration", Reason: "missing token_endpoint"},
			want: "missing token_endpoint",
		},
		{
			name: "bind",
			err:  &BindError{Addr: "127.0.0.1:8080", Err: errors.New("address already in use")},
			want: "127.0.0.1:8080",
		},
		{
			name: "state mismatch",
			err:  &StateMismatchError{},
			want: "CSRF",
		},
		{
			name: "provider with description",
			err:  &ProviderError{Code: "access_denied", Description: "user cancelled"},
			want: "user cancelled",
		},
		{
			name: "timeout",
			err:  &TimeoutError{After: 5 * time.Minute},
			want: "5m0s",
		},
		{
			name: "exchange with oauth error",
			err:  &TokenExchangeError{Endpoint: "https://idp/token", OAuthError: "invalid_grant", OAuthErrorDescription: "code expired"},
			want: "invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	var err error = &DiscoveryError{URI: "https://idp", Reason: "request failed", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("DiscoveryError does not unwrap to its cause")
	}

	err = &TokenExchangeError{Endpoint: "https://idp/token", Reason: "request failed", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("TokenExchangeError does not unwrap to its cause")
	}
}
