// Package oauth implements the OAuth 2.0 Authorization Code flow with PKCE
// for command-line logins.
//
// A login is driven by a Flow, which walks through explicit states: resolve
// the provider endpoints (OIDC discovery or a manual pair), generate a fresh
// PKCE verifier/challenge and CSRF state, arm a transient loopback callback
// server, hand the authorization URL to the browser, wait for the redirect,
// verify the state, and exchange the authorization code for tokens. Each
// Flow is single-use; a failed attempt is discarded and the user re-runs the
// login command.
//
// Tokens exist only in process memory. Nothing in this package persists or
// refreshes them.
package oauth
