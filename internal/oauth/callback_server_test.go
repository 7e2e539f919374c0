package oauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

// startTestServer binds a callback server on an ephemeral loopback port and
// returns it along with its effective callback URL.
func startTestServer(t *testing.T) (*CallbackServer, string) {
	t.Helper()

	srv, err := NewCallbackServer("http://127.0.0.1:0/callback", 0)
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)

	return srv, fmt.Sprintf("http://127.0.0.1:%d/callback", srv.Port())
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s error = %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestCallbackServer_Success(t *testing.T) {
	srv, callbackURL := startTestServer(t)

	status, body := get(t, callbackURL+"?code=abc123&state=xyz789")
	if status != http.StatusOK {
		t.Errorf("callback status = %d, want %d", status, http.StatusOK)
	}
	if !strings.Contains(body, "Authentication Successful") {
		t.Errorf("callback body missing success message: %q", body)
	}

	result := srv.WaitForCallback(context.Background(), time.Second)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want OutcomeSuccess", result.Outcome)
	}
	if result.Code != "abc123" {
		t.Errorf("Code = %q, want %q", result.Code, "abc123")
	}
	if result.State != "xyz789" {
		t.Errorf("State = %q, want %q", result.State, "xyz789")
	}
}

func TestCallbackServer_ProviderError(t *testing.T) {
	srv, callbackURL := startTestServer(t)

	status, body := get(t, callbackURL+"?error=access_denied&error_description=user+said+no")
	if status != http.StatusBadRequest {
		t.Errorf("callback status = %d, want %d", status, http.StatusBadRequest)
	}
	if !strings.Contains(body, "access_denied") {
		t.Errorf("error page missing error code: %q", body)
	}
	if !strings.Contains(body, "user said no") {
		t.Errorf("error page missing description: %q", body)
	}

	result := srv.WaitForCallback(context.Background(), time.Second)
	if result.Outcome != OutcomeProviderError {
		t.Fatalf("Outcome = %v, want OutcomeProviderError", result.Outcome)
	}
	if result.Error != "access_denied" {
		t.Errorf("Error = %q, want %q", result.Error, "access_denied")
	}
	if result.ErrorDescription != "user said no" {
		t.Errorf("ErrorDescription = %q, want %q", result.ErrorDescription, "user said no")
	}
}

func TestCallbackServer_MalformedRequestKeepsWaiting(t *testing.T) {
	srv, callbackURL := startTestServer(t)

	// A request without code/state or error must be answered 400 without
	// consuming the callback slot
	status, _ := get(t, callbackURL)
	if status != http.StatusBadRequest {
		t.Errorf("malformed callback status = %d, want %d", status, http.StatusBadRequest)
	}
	status, _ = get(t, callbackURL+"?code=onlycode")
	if status != http.StatusBadRequest {
		t.Errorf("code-only callback status = %d, want %d", status, http.StatusBadRequest)
	}

	// The real callback afterwards still wins
	get(t, callbackURL+"?code=real&state=st")

	result := srv.WaitForCallback(context.Background(), time.Second)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want OutcomeSuccess", result.Outcome)
	}
	if result.Code != "real" {
		t.Errorf("Code = %q, want %q", result.Code, "real")
	}
}

func TestCallbackServer_SecondCallbackRejected(t *testing.T) {
	srv, callbackURL := startTestServer(t)

	status, _ := get(t, callbackURL+"?code=first&state=st")
	if status != http.StatusOK {
		t.Fatalf("first callback status = %d, want %d", status, http.StatusOK)
	}

	status, body := get(t, callbackURL+"?code=second&state=st")
	if status != http.StatusBadRequest {
		t.Errorf("second callback status = %d, want %d", status, http.StatusBadRequest)
	}
	if !strings.Contains(body, "already processed") {
		t.Errorf("second callback body = %q, want already-processed message", body)
	}

	result := srv.WaitForCallback(context.Background(), time.Second)
	if result.Code != "first" {
		t.Errorf("Code = %q, want the first callback's code", result.Code)
	}
}

func TestCallbackServer_WrongPath(t *testing.T) {
	_, callbackURL := startTestServer(t)

	u, _ := url.Parse(callbackURL)
	u.Path = "/other"
	status, _ := get(t, u.String())
	if status != http.StatusNotFound {
		t.Errorf("wrong-path status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestCallbackServer_Timeout(t *testing.T) {
	srv, _ := startTestServer(t)
	port := srv.Port()

	start := time.Now()
	result := srv.WaitForCallback(context.Background(), 100*time.Millisecond)
	if result.Outcome != OutcomeTimeout {
		t.Fatalf("Outcome = %v, want OutcomeTimeout", result.Outcome)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("WaitForCallback returned after %v, before the timeout", elapsed)
	}

	// The socket must be released on timeout
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("port %d still bound after timeout: %v", port, err)
	}
	ln.Close()
}

func TestCallbackServer_ContextCancelled(t *testing.T) {
	srv, _ := startTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := srv.WaitForCallback(ctx, time.Minute)
	if result.Outcome != OutcomeCancelled {
		t.Fatalf("Outcome = %v, want OutcomeCancelled", result.Outcome)
	}
}

func TestCallbackServer_PortAlreadyBound(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv, err := NewCallbackServer(fmt.Sprintf("http://127.0.0.1:%d/callback", port), 0)
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}

	err = srv.Start()
	if err == nil {
		srv.Stop()
		t.Fatal("Start() error = nil, want *BindError")
	}
	if _, ok := err.(*BindError); !ok {
		t.Fatalf("Start() error type = %T, want *BindError", err)
	}
}

func TestCallbackServer_PortOverride(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	srv, err := NewCallbackServer("http://localhost:8080/callback", port)
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	if srv.Port() != port {
		t.Errorf("Port() = %d, want override %d", srv.Port(), port)
	}
	want := fmt.Sprintf("http://localhost:%d/callback", port)
	if got := srv.RedirectURI(); got != want {
		t.Errorf("RedirectURI() = %q, want %q", got, want)
	}
}

func TestNewCallbackServer_RejectsNonLoopback(t *testing.T) {
	_, err := NewCallbackServer("https://example.com/callback", 0)
	if err == nil {
		t.Fatal("NewCallbackServer() error = nil, want loopback rejection")
	}
}

func TestCallbackServer_StopIdempotent(t *testing.T) {
	srv, _ := startTestServer(t)
	srv.Stop()
	srv.Stop()
}
