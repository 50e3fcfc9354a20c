package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// expiryBuffer is subtracted from the token lifetime when checking
// expiration, so a token is never used moments before the server rejects it.
const expiryBuffer = 5 * time.Minute

// TokenSet represents OAuth2 tokens for one (site, org) session.
// The JSON field names are camelCase for cross-compatibility with blobs
// written by earlier pup releases.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	IssuedAt     int64  `json:"issuedAt"` // Unix timestamp in seconds
	Scope        string `json:"scope,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
}

// ExpiresAt returns the wall-clock time the access token expires.
func (t *TokenSet) ExpiresAt() time.Time {
	return time.Unix(t.IssuedAt+t.ExpiresIn, 0)
}

// IsExpired reports whether the access token is expired or will expire
// within the 5-minute safety buffer.
func (t *TokenSet) IsExpired() bool {
	return !time.Now().Add(expiryBuffer).Before(t.ExpiresAt())
}

// ToOAuth2Token converts a TokenSet to an oauth2.Token for callers that
// speak the x/oauth2 vocabulary.
func (t *TokenSet) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt(),
	}
}

// ClientCredentials represents a DCR client registration.
// There is one registration per site, shared by all org sessions on that
// site. Public clients do not receive a client secret.
type ClientCredentials struct {
	ClientID     string   `json:"clientId"`
	ClientName   string   `json:"clientName"`
	RedirectURIs []string `json:"redirectUris"`
	RegisteredAt int64    `json:"registeredAt"` // Unix timestamp in seconds
	Site         string   `json:"site"`
}

// OAuthError is the error document returned by OAuth endpoints.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuthError) String() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// DefaultScopes returns the OAuth2 scopes requested during login.
func DefaultScopes() []string {
	return []string{
		// Dashboards
		"dashboards_read",
		"dashboards_write",
		// Monitors
		"monitors_read",
		"monitors_write",
		"monitors_downtime",
		// APM/Traces
		"apm_read",
		// SLOs
		"slos_read",
		"slos_write",
		"slos_corrections",
		// Incidents
		"incident_read",
		"incident_write",
		// Synthetics
		"synthetics_read",
		"synthetics_write",
		"synthetics_global_variable_read",
		"synthetics_global_variable_write",
		"synthetics_private_location_read",
		"synthetics_private_location_write",
		// Security
		"security_monitoring_signals_read",
		"security_monitoring_rules_read",
		"security_monitoring_findings_read",
		"security_monitoring_suppressions_read",
		"security_monitoring_filters_read",
		// RUM
		"rum_apps_read",
		"rum_apps_write",
		"rum_retention_filters_read",
		"rum_retention_filters_write",
		// Infrastructure
		"hosts_read",
		// Users
		"user_access_read",
		"user_self_profile_read",
		// Cases
		"cases_read",
		"cases_write",
		// Events
		"events_read",
		// Logs
		"logs_read_data",
		"logs_read_index_data",
		// Metrics
		"metrics_read",
		"timeseries_query",
		// CI Visibility / Test Optimization
		"ci_visibility_read",
		"test_optimization_read",
		// Usage
		"usage_read",
	}
}
