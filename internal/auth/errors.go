package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrTokenExpired is returned by the collaborator surface when the stored
// access token is inside the expiry buffer. Remediation: run 'pup auth
// refresh' or 'pup auth login'.
var ErrTokenExpired = errors.New("access token is expired")

// Reasons attached to TokenExchangeError and TokenRefreshError.
const (
	// ReasonInvalidGrant means the server rejected the code or refresh token.
	ReasonInvalidGrant = "invalid_grant"
	// ReasonNetwork means the token endpoint could not be reached.
	ReasonNetwork = "network"
	// ReasonMalformedResponse means the endpoint answered with an unparseable body.
	ReasonMalformedResponse = "malformed_response"
	// ReasonServerError means the endpoint answered non-2xx with an OAuth
	// error other than invalid_grant.
	ReasonServerError = "server_error"
)

// RegistrationError indicates that Dynamic Client Registration failed,
// either at the transport level or because the server answered non-2xx or
// with a malformed body.
type RegistrationError struct {
	StatusCode int // 0 when the request never completed
	Body       string
	Err        error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client registration failed: %v", e.Err)
	}
	return fmt.Sprintf("client registration failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// AuthorizationError carries an explicit OAuth error returned by the
// authorization server via the redirect, surfaced verbatim.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// StateMismatchError means the state echoed by the authorization server did
// not match the one generated for this login attempt. This is the CSRF
// defense tripping; the flow is aborted before any code exchange and is
// never retried.
type StateMismatchError struct{}

func (e *StateMismatchError) Error() string {
	return "state mismatch (possible CSRF attack)"
}

// CallbackTimeoutError means no browser redirect arrived within the budget.
// User-actionable: re-run 'pup auth login'.
type CallbackTimeoutError struct {
	Budget time.Duration
}

func (e *CallbackTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for the OAuth callback", e.Budget)
}

// TokenExchangeError indicates that exchanging the authorization code for
// tokens failed. Reason is one of the Reason* constants.
type TokenExchangeError struct {
	Reason string
	Err    error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token exchange failed (%s)", e.Reason)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError indicates that the refresh grant failed. Remediation:
// re-run 'pup auth login'.
type TokenRefreshError struct {
	Reason string
	Err    error
}

func (e *TokenRefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token refresh failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token refresh failed (%s)", e.Reason)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// NoCredentialsError means a token or status was requested before any login
// for the (site, org) pair.
type NoCredentialsError struct {
	Site string
	Org  string
}

func (e *NoCredentialsError) Error() string {
	if e.Org != "" {
		return fmt.Sprintf("no credentials for site %s (org: %s), run 'pup auth login' first", e.Site, e.Org)
	}
	return fmt.Sprintf("no credentials for site %s, run 'pup auth login' first", e.Site)
}
