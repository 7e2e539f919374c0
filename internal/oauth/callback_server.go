package oauth

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCallbackTimeout is how long to wait for the OAuth callback when the
// profile does not configure its own timeout.
const DefaultCallbackTimeout = 5 * time.Minute

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

// CallbackOutcome tags the result of waiting for the provider redirect.
type CallbackOutcome int

const (
	// OutcomeSuccess means the redirect carried both code and state.
	OutcomeSuccess CallbackOutcome = iota
	// OutcomeProviderError means the redirect carried an OAuth error.
	OutcomeProviderError
	// OutcomeMalformed means the request hit the callback path without the
	// parameters of either form. The listener answers 400 and keeps waiting,
	// so this outcome never escapes WaitForCallback.
	OutcomeMalformed
	// OutcomeTimeout means no valid callback arrived within the deadline.
	OutcomeTimeout
	// OutcomeCancelled means the wait was aborted by the caller.
	OutcomeCancelled
)

// CallbackResult is the single result produced by one callback wait.
type CallbackResult struct {
	Outcome CallbackOutcome

	// Code and State are set for OutcomeSuccess.
	Code  string
	State string

	// Error and ErrorDescription are set for OutcomeProviderError.
	Error            string
	ErrorDescription string
}

// CallbackServer is a transient local HTTP server that captures exactly one
// OAuth redirect. It binds the host:port declared in the profile's redirect
// URI, yields the first terminal callback, and releases the socket on every
// exit path.
type CallbackServer struct {
	host string
	port int
	path string

	server   *http.Server
	listener net.Listener
	group    *errgroup.Group

	resultCh chan *CallbackResult
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer creates a callback server for the given redirect URI.
// portOverride, when non-zero, replaces the port from the URI (the original
// --port flag behavior). The redirect URI must point at a loopback host;
// non-loopback redirects go through manual code entry instead.
func NewCallbackServer(redirectURI string, portOverride int) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	if !isLoopbackHost(u.Hostname()) {
		return nil, fmt.Errorf("redirect URI %q is not a loopback address", redirectURI)
	}

	port := portOverride
	if port == 0 {
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid port in redirect URI %q: %w", redirectURI, err)
			}
		} else {
			port = 80
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &CallbackServer{
		host:     u.Hostname(),
		port:     port,
		path:     path,
		resultCh: make(chan *CallbackResult, 1),
	}, nil
}

// Start binds the socket and begins serving. A port that is already taken
// yields a *BindError immediately; the listener never hops to another port.
func (s *CallbackServer) Start() error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.group = &errgroup.Group{}
	s.group.Go(func() error {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	return nil
}

// WaitForCallback blocks until one of three wake conditions: a terminal
// callback, the timeout, or context cancellation. The socket is released
// before the result is returned, on every path.
func (s *CallbackServer) WaitForCallback(ctx context.Context, timeout time.Duration) *CallbackResult {
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result *CallbackResult
	select {
	case result = <-s.resultCh:
		// Give the browser a moment to receive the confirmation page before
		// the connection is torn down.
		time.Sleep(100 * time.Millisecond)
	case <-timer.C:
		result = &CallbackResult{Outcome: OutcomeTimeout}
	case <-ctx.Done():
		result = &CallbackResult{Outcome: OutcomeCancelled}
	}

	s.Stop()
	return result
}

// Stop shuts the server down and closes the listener. Safe to call more than
// once and from any exit path.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.group != nil {
			_ = s.group.Wait()
		}
	})
}

// RedirectURI returns the effective redirect URI after binding, which matters
// when the profile's URI carried port 0.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(s.host, strconv.Itoa(s.port)), s.path)
}

// Port returns the bound port.
func (s *CallbackServer) Port() int {
	return s.port
}

// classifyCallback turns the query parameters of one request into a tagged
// result.
func classifyCallback(query url.Values) *CallbackResult {
	if errCode := query.Get("error"); errCode != "" {
		return &CallbackResult{
			Outcome:          OutcomeProviderError,
			State:            query.Get("state"),
			Error:            errCode,
			ErrorDescription: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	state := query.Get("state")
	if code != "" && state != "" {
		return &CallbackResult{Outcome: OutcomeSuccess, Code: code, State: state}
	}

	return &CallbackResult{Outcome: OutcomeMalformed}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	result := classifyCallback(r.URL.Query())
	if result.Outcome == OutcomeMalformed {
		// Stray probes and incomplete requests must not consume the single
		// callback slot; keep waiting for a proper redirect.
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	completed := false
	s.once.Do(func() {
		completed = true
		s.writeResponse(w, result)
		s.resultCh <- result
	})

	if !completed {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// writeResponse renders the static confirmation page shown in the browser.
func (s *CallbackServer) writeResponse(w http.ResponseWriter, result *CallbackResult) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")

	if result.Outcome == OutcomeProviderError {
		w.WriteHeader(http.StatusBadRequest)
		tmpl := template.Must(template.New("error").Parse(callbackErrorHTML))
		description := result.ErrorDescription
		if description == "" {
			description = "An authentication error occurred"
		}
		_ = tmpl.Execute(w, map[string]string{
			"Error":       result.Error,
			"Description": description,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, callbackSuccessHTML)
}
