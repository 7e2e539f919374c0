package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config carries everything a single login attempt needs. It is the profile
// record flattened to the fields this package understands.
type Config struct {
	// DiscoveryURI points at the provider's OIDC discovery document. It is
	// consulted only when the manual endpoints below are not both set.
	DiscoveryURI string

	ClientID string

	// ClientSecret is set for confidential clients. It is used only in the
	// token exchange, never in the authorization URL.
	ClientSecret string

	RedirectURI string
	Scope       string

	// AuthorizationEndpoint and TokenEndpoint configure manual mode. When
	// both are present they take precedence and discovery is skipped
	// entirely.
	AuthorizationEndpoint string
	TokenEndpoint         string

	// Timeout bounds the wait for the browser callback. Zero means
	// DefaultCallbackTimeout.
	Timeout time.Duration
}

// FlowState is the explicit progress marker of a login attempt. Transitions
// only ever move forward; any failure lands in StateFailed and the flow
// cannot be reused.
type FlowState int

const (
	StateInitialized FlowState = iota
	StateEndpointsResolved
	StateListenerArmed
	StateAwaitingCallback
	StateCodeReceived
	StateTokenExchanged
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateEndpointsResolved:
		return "EndpointsResolved"
	case StateListenerArmed:
		return "ListenerArmed"
	case StateAwaitingCallback:
		return "AwaitingCallback"
	case StateCodeReceived:
		return "CodeReceived"
	case StateTokenExchanged:
		return "TokenExchanged"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Flow drives one authorization-code login attempt through its states. A
// Flow is single-use: Run may be called once, and exactly one listener
// socket is open during its lifetime.
type Flow struct {
	cfg        Config
	httpClient *http.Client

	portOverride  int
	launchBrowser func(string) error
	manualCode    func(context.Context) (string, error)
	onAuthURL     func(string)
	onAwait       func()

	state     FlowState
	pkce      *PKCEChallenge
	authState string
	endpoints Endpoints
	server    *CallbackServer
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithHTTPClient sets the HTTP client used for discovery and token exchange.
func WithHTTPClient(c *http.Client) FlowOption {
	return func(f *Flow) { f.httpClient = c }
}

// WithPortOverride binds the callback listener to the given port instead of
// the one in the redirect URI. The redirect URI sent to the provider is
// unchanged.
func WithPortOverride(port int) FlowOption {
	return func(f *Flow) { f.portOverride = port }
}

// WithBrowserLauncher replaces the default browser launcher. The launcher is
// best-effort; its error downgrades to a fallback URL display.
func WithBrowserLauncher(launch func(string) error) FlowOption {
	return func(f *Flow) { f.launchBrowser = launch }
}

// WithManualCodeEntry supplies the collaborator used when the redirect URI is
// not a loopback address and no local listener can capture the callback.
func WithManualCodeEntry(entry func(context.Context) (string, error)) FlowOption {
	return func(f *Flow) { f.manualCode = entry }
}

// WithAuthURLDisplay sets the callback invoked with the authorization URL
// when the browser could not be opened.
func WithAuthURLDisplay(display func(string)) FlowOption {
	return func(f *Flow) { f.onAuthURL = display }
}

// WithAwaitNotifier sets a hook invoked immediately before the flow blocks
// waiting for the callback. The login command uses it to start its spinner.
func WithAwaitNotifier(fn func()) FlowOption {
	return func(f *Flow) { f.onAwait = fn }
}

// NewFlow creates a flow in StateInitialized.
func NewFlow(cfg Config, opts ...FlowOption) *Flow {
	f := &Flow{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		launchBrowser: OpenBrowser,
		state:         StateInitialized,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the flow's current state.
func (f *Flow) State() FlowState {
	return f.state
}

// legalTransitions maps each state to its single legal successor. Error
// transitions to StateFailed are always allowed.
var legalTransitions = map[FlowState]FlowState{
	StateInitialized:       StateEndpointsResolved,
	StateEndpointsResolved: StateListenerArmed,
	StateListenerArmed:     StateAwaitingCallback,
	StateAwaitingCallback:  StateCodeReceived,
	StateCodeReceived:      StateTokenExchanged,
}

func (f *Flow) advance(to FlowState) error {
	if legalTransitions[f.state] != to {
		return fmt.Errorf("invalid flow transition %s -> %s", f.state, to)
	}
	f.state = to
	return nil
}

func (f *Flow) fail(err error) error {
	f.state = StateFailed
	if f.server != nil {
		f.server.Stop()
	}
	return err
}

// Run executes the whole flow: endpoint resolution, PKCE and state
// generation, listener arming, browser hand-off, callback wait, state
// verification, and the code exchange. The returned token exists only in
// memory; persisting it is the caller's concern and outside this tool.
func (f *Flow) Run(ctx context.Context) (*TokenResponse, error) {
	if f.state != StateInitialized {
		return nil, fmt.Errorf("flow already ran (state %s)", f.state)
	}

	if err := f.resolveEndpoints(ctx); err != nil {
		return nil, f.fail(err)
	}

	authURL, err := f.arm()
	if err != nil {
		return nil, f.fail(err)
	}

	code, err := f.obtainCode(ctx, authURL)
	if err != nil {
		return nil, f.fail(err)
	}

	token, err := f.exchange(ctx, code)
	if err != nil {
		return nil, f.fail(err)
	}

	if err := f.advance(StateTokenExchanged); err != nil {
		return nil, f.fail(err)
	}

	slog.Info("authentication successful",
		"client_id", f.cfg.ClientID,
		"token_endpoint", f.endpoints.TokenEndpoint,
	)

	// The verifier/state pair is single-use; drop it with the flow.
	f.pkce = nil
	f.authState = ""

	return token, nil
}

// resolveEndpoints moves Initialized -> EndpointsResolved. Manual endpoints,
// when both are configured, win over the discovery URI and skip the fetch
// entirely.
func (f *Flow) resolveEndpoints(ctx context.Context) error {
	if f.cfg.AuthorizationEndpoint != "" && f.cfg.TokenEndpoint != "" {
		if err := validateEndpointURL(f.cfg.AuthorizationEndpoint); err != nil {
			return &DiscoveryError{URI: f.cfg.AuthorizationEndpoint, Reason: "invalid authorization endpoint", Err: err}
		}
		if err := validateEndpointURL(f.cfg.TokenEndpoint); err != nil {
			return &DiscoveryError{URI: f.cfg.TokenEndpoint, Reason: "invalid token endpoint", Err: err}
		}
		f.endpoints = Endpoints{
			AuthorizationEndpoint: f.cfg.AuthorizationEndpoint,
			TokenEndpoint:         f.cfg.TokenEndpoint,
		}
		return f.advance(StateEndpointsResolved)
	}

	if f.cfg.DiscoveryURI == "" {
		return &DiscoveryError{Reason: "profile has neither a discovery URI nor manual endpoints"}
	}

	doc, err := Discover(ctx, f.httpClient, f.cfg.DiscoveryURI)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		return err
	}

	f.endpoints = Endpoints{
		AuthorizationEndpoint: doc.AuthorizationEndpoint,
		TokenEndpoint:         doc.TokenEndpoint,
	}
	return f.advance(StateEndpointsResolved)
}

// arm moves EndpointsResolved -> ListenerArmed: generates the PKCE pair and
// state, binds the callback listener for loopback redirects, and builds the
// authorization URL.
func (f *Flow) arm() (string, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	f.pkce = pkce
	f.authState = state

	redirectHost, err := url.Parse(f.cfg.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI %q: %w", f.cfg.RedirectURI, err)
	}

	if isLoopbackHost(redirectHost.Hostname()) {
		server, err := NewCallbackServer(f.cfg.RedirectURI, f.portOverride)
		if err != nil {
			return "", err
		}
		if err := server.Start(); err != nil {
			return "", err
		}
		f.server = server
	}

	authURL, err := f.buildAuthorizationURL()
	if err != nil {
		return "", err
	}

	return authURL, f.advance(StateListenerArmed)
}

// buildAuthorizationURL constructs the browser-navigated URL. The client
// secret is deliberately absent: PKCE binds the code to this attempt instead.
func (f *Flow) buildAuthorizationURL() (string, error) {
	authURL, err := url.Parse(f.endpoints.AuthorizationEndpoint)
	if err != nil {
		return "", err
	}

	params := authURL.Query()
	params.Set("response_type", "code")
	params.Set("client_id", f.cfg.ClientID)
	params.Set("redirect_uri", f.cfg.RedirectURI)
	params.Set("scope", f.cfg.Scope)
	params.Set("state", f.authState)
	params.Set("code_challenge", f.pkce.CodeChallenge)
	params.Set("code_challenge_method", f.pkce.CodeChallengeMethod)

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// obtainCode moves ListenerArmed -> AwaitingCallback -> CodeReceived. It
// hands the URL to the browser, blocks on the callback (or manual entry for
// non-loopback redirects), and verifies the returned state.
func (f *Flow) obtainCode(ctx context.Context, authURL string) (string, error) {
	if err := f.launchBrowser(authURL); err != nil {
		slog.Debug("browser launch failed", "error", err)
		if f.onAuthURL != nil {
			f.onAuthURL(authURL)
		}
	}

	if err := f.advance(StateAwaitingCallback); err != nil {
		return "", err
	}

	if f.server == nil {
		return f.obtainCodeManually(ctx)
	}

	if f.onAwait != nil {
		f.onAwait()
	}

	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	result := f.server.WaitForCallback(ctx, timeout)
	switch result.Outcome {
	case OutcomeSuccess:
		if result.State != f.authState {
			slog.Warn("state mismatch detected - possible CSRF attack",
				"expected_state_len", len(f.authState),
				"received_state_len", len(result.State),
			)
			return "", &StateMismatchError{}
		}
		return result.Code, f.advance(StateCodeReceived)
	case OutcomeProviderError:
		slog.Warn("authorization failed",
			"error", result.Error,
			"error_description", result.ErrorDescription,
		)
		return "", &ProviderError{Code: result.Error, Description: result.ErrorDescription}
	case OutcomeTimeout:
		return "", &TimeoutError{After: timeout}
	case OutcomeCancelled:
		return "", ErrCancelled
	default:
		return "", fmt.Errorf("unexpected callback outcome %d", result.Outcome)
	}
}

// obtainCodeManually covers non-loopback redirect URIs, where no local
// listener can capture the callback and the user pastes the code instead.
// The state round-trip cannot be verified on this path.
func (f *Flow) obtainCodeManually(ctx context.Context) (string, error) {
	if f.manualCode == nil {
		return "", fmt.Errorf("redirect URI %q is not a loopback address and no manual code entry is configured", f.cfg.RedirectURI)
	}
	code, err := f.manualCode(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", ErrCancelled
		}
		return "", err
	}
	return code, f.advance(StateCodeReceived)
}

// exchange moves CodeReceived -> TokenExchanged via the token endpoint.
func (f *Flow) exchange(ctx context.Context, code string) (*TokenResponse, error) {
	token, err := ExchangeCode(ctx, f.httpClient, ExchangeRequest{
		Endpoint:     f.endpoints.TokenEndpoint,
		Code:         code,
		CodeVerifier: f.pkce.CodeVerifier,
		RedirectURI:  f.cfg.RedirectURI,
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		slog.Warn("token exchange failed",
			"token_endpoint", f.endpoints.TokenEndpoint,
			"error", err.Error(),
		)
		return nil, err
	}
	return token, nil
}
