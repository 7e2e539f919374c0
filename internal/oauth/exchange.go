package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the parsed result of a successful code exchange. It lives
// in process memory for the lifetime of the CLI invocation and is never
// persisted.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// ExpiresAt is the absolute expiry computed from expires_in at receipt
	// time. Zero when the provider did not send expires_in.
	ExpiresAt time.Time `json:"-"`
}

// ToOAuth2Token converts the response to the standard oauth2 token type for
// interop with callers that speak golang.org/x/oauth2.
func (t *TokenResponse) ToOAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
	if t.IDToken != "" {
		tok = tok.WithExtra(map[string]interface{}{
			"id_token": t.IDToken,
		})
	}
	return tok
}

// ExchangeRequest carries everything needed for one authorization-code
// exchange.
type ExchangeRequest struct {
	Endpoint     string
	Code         string
	CodeVerifier string
	RedirectURI  string
	ClientID     string

	// ClientSecret is set only for confidential clients and is sent as a
	// form field, never in the authorization URL.
	ClientSecret string
}

// oauthErrorBody is the structured error a token endpoint may return.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode performs a single form-encoded POST to the token endpoint and
// validates the response. There is no retry; transient failures surface as
// *TokenExchangeError and the user re-runs the login.
func ExchangeCode(ctx context.Context, httpClient *http.Client, req ExchangeRequest) (*TokenResponse, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {req.Code},
		"redirect_uri":  {req.RedirectURI},
		"client_id":     {req.ClientID},
		"code_verifier": {req.CodeVerifier},
	}
	if req.ClientSecret != "" {
		data.Set("client_secret", req.ClientSecret)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultHTTPTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "invalid request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "failed to read response", Err: err}
	}
	receivedAt := time.Now()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		exchErr := &TokenExchangeError{
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Reason:     "unexpected status " + resp.Status,
		}
		// Providers return structured OAuth errors; keep what they said so
		// the user sees invalid_grant instead of a bare 400.
		var oe oauthErrorBody
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			exchErr.OAuthError = oe.Error
			exchErr.OAuthErrorDescription = oe.ErrorDescription
		}
		return nil, exchErr
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "malformed token response", Err: err}
	}

	// A 200 without the mandatory fields is still a failure.
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "token response missing access_token"}
	}
	if token.TokenType == "" {
		return nil, &TokenExchangeError{Endpoint: req.Endpoint, Reason: "token response missing token_type"}
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = receivedAt.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}
