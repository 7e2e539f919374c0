package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validProfile() Profile {
	return Profile{
		DiscoveryURI: "https://idp.example.com/.well-known/openid-configuration",
		ClientID:     "my-client",
		RedirectURI:  "http://localhost:8080/callback",
		Scope:        "openid profile email",
	}
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{
			name:   "valid with discovery",
			mutate: func(p *Profile) {},
		},
		{
			name: "valid with manual endpoints",
			mutate: func(p *Profile) {
				p.DiscoveryURI = ""
				p.AuthorizationEndpoint = "https://idp.example.com/authorize"
				p.TokenEndpoint = "https://idp.example.com/token"
			},
		},
		{
			name: "valid with loopback http endpoints",
			mutate: func(p *Profile) {
				p.DiscoveryURI = "http://localhost:5556/.well-known/openid-configuration"
			},
		},
		{
			name:    "missing client id",
			mutate:  func(p *Profile) { p.ClientID = "" },
			wantErr: "client_id",
		},
		{
			name:    "client id with surrounding whitespace",
			mutate:  func(p *Profile) { p.ClientID = " my-client " },
			wantErr: "whitespace",
		},
		{
			name:    "client id too long",
			mutate:  func(p *Profile) { p.ClientID = strings.Repeat("x", 256) },
			wantErr: "255",
		},
		{
			name:    "missing redirect uri",
			mutate:  func(p *Profile) { p.RedirectURI = "" },
			wantErr: "redirect",
		},
		{
			name:    "redirect uri without scheme",
			mutate:  func(p *Profile) { p.RedirectURI = "localhost:8080/callback" },
			wantErr: "redirect",
		},
		{
			name:    "scope with invalid characters",
			mutate:  func(p *Profile) { p.Scope = "openid <script>" },
			wantErr: "scope",
		},
		{
			name: "no endpoints at all",
			mutate: func(p *Profile) {
				p.DiscoveryURI = ""
			},
			wantErr: "either discovery_uri",
		},
		{
			name: "only authorization endpoint",
			mutate: func(p *Profile) {
				p.DiscoveryURI = ""
				p.AuthorizationEndpoint = "https://idp.example.com/authorize"
			},
			wantErr: "either discovery_uri",
		},
		{
			name: "plain http discovery for remote host",
			mutate: func(p *Profile) {
				p.DiscoveryURI = "http://idp.example.com/.well-known/openid-configuration"
			},
			wantErr: "HTTPS",
		},
		{
			name: "plain http token endpoint for remote host",
			mutate: func(p *Profile) {
				p.DiscoveryURI = ""
				p.AuthorizationEndpoint = "https://idp.example.com/authorize"
				p.TokenEndpoint = "http://idp.example.com/token"
			},
			wantErr: "HTTPS",
		},
		{
			name:    "negative timeout",
			mutate:  func(p *Profile) { p.TimeoutSeconds = -1 },
			wantErr: "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestProfile_FlowConfig(t *testing.T) {
	p := Profile{
		DiscoveryURI:   "https://idp.example.com/.well-known/openid-configuration",
		ClientID:       "my-client",
		ClientSecret:   "secret",
		RedirectURI:    "http://localhost:8080/callback",
		Scope:          "openid",
		TimeoutSeconds: 120,
	}

	cfg := p.FlowConfig()
	assert.Equal(t, p.DiscoveryURI, cfg.DiscoveryURI)
	assert.Equal(t, p.ClientID, cfg.ClientID)
	assert.Equal(t, p.ClientSecret, cfg.ClientSecret)
	assert.Equal(t, p.RedirectURI, cfg.RedirectURI)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "my-client", Sanitize("  my-client\n"))
	assert.Equal(t, "", Sanitize("   "))
}
