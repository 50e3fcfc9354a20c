package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// defaultClientName is the client_name sent during Dynamic Client Registration.
const defaultClientName = "pup CLI"

// Client talks to a site's OAuth2 endpoints: Dynamic Client Registration
// (RFC 7591), the authorization endpoint and the token endpoint.
// Endpoints are derived from the site but can be overridden for tests.
type Client struct {
	site       string
	clientName string
	httpClient *http.Client

	registrationEndpoint  string
	authorizationEndpoint string
	tokenEndpoint         string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides the site-derived endpoint URLs.
func WithEndpoints(registration, authorization, token string) ClientOption {
	return func(c *Client) {
		c.registrationEndpoint = registration
		c.authorizationEndpoint = authorization
		c.tokenEndpoint = token
	}
}

// NewClient creates an OAuth client for the given site.
func NewClient(site string, opts ...ClientOption) *Client {
	c := &Client{
		site:                  site,
		clientName:            defaultClientName,
		httpClient:            &http.Client{Timeout: DefaultHTTPTimeout},
		registrationEndpoint:  fmt.Sprintf("https://api.%s/oauth2/v1/clients/register", site),
		authorizationEndpoint: fmt.Sprintf("https://app.%s/oauth2/v1/authorize", site),
		tokenEndpoint:         fmt.Sprintf("https://api.%s/oauth2/v1/token", site),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// registrationRequest is the DCR request body (RFC 7591).
type registrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope,omitempty"`
}

// registrationResponse is the DCR response body.
type registrationResponse struct {
	ClientID         string   `json:"client_id"`
	ClientIDIssuedAt int64    `json:"client_id_issued_at"`
	ClientName       string   `json:"client_name"`
	RedirectURIs     []string `json:"redirect_uris"`
	Scope            string   `json:"scope,omitempty"`
}

// tokenResponse is the token endpoint response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Register registers pup as an OAuth client with the site's DCR endpoint.
// Registration happens once per site; the returned credentials are persisted
// by the caller and shared by every org session on that site.
func (c *Client) Register(ctx context.Context, redirectURI string, scopes []string) (*ClientCredentials, error) {
	reqBody := registrationRequest{
		ClientName:              c.clientName,
		RedirectURIs:            []string{redirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none", // public client, PKCE only
		Scope:                   strings.Join(scopes, " "),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.registrationEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RegistrationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var regResp registrationResponse
	if err := json.Unmarshal(body, &regResp); err != nil {
		return nil, &RegistrationError{Err: fmt.Errorf("malformed registration response: %w", err)}
	}
	if regResp.ClientID == "" {
		return nil, &RegistrationError{Err: fmt.Errorf("registration response missing client_id")}
	}

	clientName := regResp.ClientName
	if clientName == "" {
		clientName = c.clientName
	}
	redirectURIs := regResp.RedirectURIs
	if len(redirectURIs) == 0 {
		redirectURIs = []string{redirectURI}
	}

	return &ClientCredentials{
		ClientID:     regResp.ClientID,
		ClientName:   clientName,
		RedirectURIs: redirectURIs,
		RegisteredAt: time.Now().Unix(),
		Site:         c.site,
	}, nil
}

// BuildAuthorizationURL constructs the authorization-code+PKCE URL.
// Pure function: no network call, no failure.
func (c *Client) BuildAuthorizationURL(clientID, redirectURI, state string, pkce *PKCEChallenge, scopes []string) string {
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"state":                 {state},
		"code_challenge":        {pkce.Challenge},
		"code_challenge_method": {pkce.Method},
		"scope":                 {strings.Join(scopes, " ")},
	}
	return c.authorizationEndpoint + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
// The returned TokenSet's issuedAt is stamped from the local clock, never
// trusted from the server, so IsExpired comparisons stay self-consistent.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, verifier string, creds *ClientCredentials) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
		"client_id":     {creds.ClientID},
	}

	tokResp, reason, err := c.doTokenRequest(ctx, form)
	if err != nil {
		return nil, &TokenExchangeError{Reason: reason, Err: err}
	}

	return c.makeTokenSet(tokResp, creds.ClientID, ""), nil
}

// RefreshToken obtains a fresh TokenSet with a refresh grant.
// If the server omits a new refresh token the previous one is carried over,
// so the session stays refreshable.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, creds *ClientCredentials) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {creds.ClientID},
	}

	tokResp, reason, err := c.doTokenRequest(ctx, form)
	if err != nil {
		return nil, &TokenRefreshError{Reason: reason, Err: err}
	}

	return c.makeTokenSet(tokResp, creds.ClientID, refreshToken), nil
}

// doTokenRequest POSTs a form to the token endpoint and classifies failures
// into the Reason* taxonomy.
func (c *Client) doTokenRequest(ctx context.Context, form url.Values) (*tokenResponse, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ReasonNetwork, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ReasonNetwork, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ReasonNetwork, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var oauthErr OAuthError
		if json.Unmarshal(body, &oauthErr) == nil && oauthErr.Code != "" {
			reason := ReasonServerError
			if oauthErr.Code == "invalid_grant" {
				reason = ReasonInvalidGrant
			}
			return nil, reason, fmt.Errorf("%s", oauthErr.String())
		}
		return nil, ReasonServerError, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokResp tokenResponse
	if err := json.Unmarshal(body, &tokResp); err != nil {
		return nil, ReasonMalformedResponse, err
	}
	if tokResp.AccessToken == "" {
		return nil, ReasonMalformedResponse, fmt.Errorf("token response missing access_token")
	}

	return &tokResp, "", nil
}

// makeTokenSet converts a token endpoint response into a TokenSet,
// stamping issuedAt from the local clock.
func (c *Client) makeTokenSet(resp *tokenResponse, clientID, previousRefreshToken string) *TokenSet {
	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = previousRefreshToken
	}

	return &TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresIn:    resp.ExpiresIn,
		IssuedAt:     time.Now().Unix(),
		Scope:        resp.Scope,
		ClientID:     clientID,
	}
}
