package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discoveryHandler(doc string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, doc)
	}
}

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(discoveryHandler(`{
		"issuer": "https://idp.example.com",
		"authorization_endpoint": "https://idp.example.com/authorize",
		"token_endpoint": "https://idp.example.com/token",
		"code_challenge_methods_supported": ["S256", "plain"],
		"response_types_supported": ["code"]
	}`))
	defer srv.Close()

	doc, err := Discover(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if doc.AuthorizationEndpoint != "https://idp.example.com/authorize" {
		t.Errorf("AuthorizationEndpoint = %q, want %q", doc.AuthorizationEndpoint, "https://idp.example.com/authorize")
	}
	if doc.TokenEndpoint != "https://idp.example.com/token" {
		t.Errorf("TokenEndpoint = %q, want %q", doc.TokenEndpoint, "https://idp.example.com/token")
	}
	if !doc.SupportsPKCE() {
		t.Error("SupportsPKCE() = false, want true")
	}
	if !doc.SupportsAuthorizationCode() {
		t.Error("SupportsAuthorizationCode() = false, want true")
	}
}

func TestDiscover_MissingTokenEndpoint(t *testing.T) {
	srv := httptest.NewServer(discoveryHandler(`{
		"issuer": "https://idp.example.com",
		"authorization_endpoint": "https://idp.example.com/authorize"
	}`))
	defer srv.Close()

	_, err := Discover(context.Background(), srv.Client(), srv.URL)
	if err == nil {
		t.Fatal("Discover() error = nil, want discovery error")
	}

	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error type = %T, want *DiscoveryError", err)
	}
}

func TestDiscover_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(discoveryHandler(`{not json`))
	defer srv.Close()

	_, err := Discover(context.Background(), srv.Client(), srv.URL)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
}

func TestDiscover_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Discover(context.Background(), srv.Client(), srv.URL)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
}

func TestDiscover_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(discoveryHandler(`{}`))
	url := srv.URL
	srv.Close()

	_, err := Discover(context.Background(), nil, url)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
}

func TestDiscover_InvalidURI(t *testing.T) {
	_, err := Discover(context.Background(), nil, "not a uri")
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
}

func TestDiscover_RejectsPlainHTTPEndpoints(t *testing.T) {
	// Endpoints in the document must be https unless they are loopback
	srv := httptest.NewServer(discoveryHandler(`{
		"issuer": "https://idp.example.com",
		"authorization_endpoint": "http://idp.example.com/authorize",
		"token_endpoint": "https://idp.example.com/token"
	}`))
	defer srv.Close()

	_, err := Discover(context.Background(), srv.Client(), srv.URL)
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
}

func TestSupportsPKCE_AbsentField(t *testing.T) {
	doc := &DiscoveryDocument{}
	if !doc.SupportsPKCE() {
		t.Error("SupportsPKCE() with absent field = false, want true")
	}

	doc.CodeChallengeMethodsSupported = []string{"plain"}
	if doc.SupportsPKCE() {
		t.Error("SupportsPKCE() without S256 = true, want false")
	}
}
