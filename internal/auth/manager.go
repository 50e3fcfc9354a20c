package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pup/pkg/logging"
)

// Store is the slice of the storage layer the Manager consumes. It is
// implemented by pup/internal/storage.Store; operations serialize internally
// and must never be invoked while a network call is pending on their inputs.
type Store interface {
	SaveTokens(site, org string, tokens *TokenSet) error
	LoadTokens(site, org string) (*TokenSet, error)
	DeleteTokens(site, org string) error
	SaveClientCredentials(site string, creds *ClientCredentials) error
	LoadClientCredentials(site string) (*ClientCredentials, error)
	DeleteClientCredentials(site string) error
	SaveSession(site, org string) error
	RemoveSession(site, org string) error
}

// ManagerConfig wires the Manager's collaborators. Zero fields get sensible
// defaults; tests swap in fakes.
type ManagerConfig struct {
	// Store persists tokens, client registrations and session entries.
	Store Store

	// Scopes requested during login. Defaults to DefaultScopes().
	Scopes []string

	// CallbackTimeout bounds the wait for the browser redirect.
	// Defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// OpenBrowser opens the authorization URL. Defaults to OpenBrowser.
	OpenBrowser func(url string) error

	// NewClient builds the OAuth client for a site. Defaults to NewClient.
	NewClient func(site string) *Client

	// Printf emits user-facing progress messages. Defaults to fmt.Printf.
	Printf func(format string, args ...any)

	// OnWaiting runs when the flow starts waiting for the browser redirect
	// and returns a function invoked when the wait ends. Used for the
	// spinner; may be nil.
	OnWaiting func() (stop func())
}

// Manager orchestrates login, refresh, logout and status over the store,
// the OAuth client and the callback listener.
type Manager struct {
	store           Store
	scopes          []string
	callbackTimeout time.Duration
	openBrowser     func(string) error
	newClient       func(string) *Client
	printf          func(string, ...any)
	onWaiting       func() func()
}

// NewManager creates a Manager, filling unset config fields with defaults.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		store:           cfg.Store,
		scopes:          cfg.Scopes,
		callbackTimeout: cfg.CallbackTimeout,
		openBrowser:     cfg.OpenBrowser,
		newClient:       cfg.NewClient,
		printf:          cfg.Printf,
		onWaiting:       cfg.OnWaiting,
	}
	if m.scopes == nil {
		m.scopes = DefaultScopes()
	}
	if m.callbackTimeout <= 0 {
		m.callbackTimeout = DefaultCallbackTimeout
	}
	if m.openBrowser == nil {
		m.openBrowser = OpenBrowser
	}
	if m.newClient == nil {
		m.newClient = func(site string) *Client { return NewClient(site) }
	}
	if m.printf == nil {
		m.printf = func(format string, args ...any) { fmt.Printf(format, args...) }
	}
	if m.onWaiting == nil {
		m.onWaiting = func() func() { return func() {} }
	}
	return m
}

// Login runs the full browser-based authorization-code flow for (site, org)
// and persists the resulting tokens and session entry.
func (m *Manager) Login(ctx context.Context, site, org string) error {
	flowID := uuid.NewString()
	logging.Info("Auth", "[%s] starting login for site %s org %q", flowID, site, org)

	server, err := NewCallbackServer()
	if err != nil {
		return err
	}
	defer server.Stop()
	redirectURI := server.RedirectURI()

	client := m.newClient(site)

	creds, err := m.store.LoadClientCredentials(site)
	if err != nil {
		return err
	}
	if creds == nil {
		logging.Info("Auth", "[%s] no client registration for %s, registering", flowID, site)
		creds, err = client.Register(ctx, redirectURI, m.scopes)
		if err != nil {
			return err
		}
		if err := m.store.SaveClientCredentials(site, creds); err != nil {
			return err
		}
		logging.Info("Auth", "[%s] registered client %s", flowID, creds.ClientID)
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return err
	}
	state, err := GenerateState()
	if err != nil {
		return err
	}

	authURL := client.BuildAuthorizationURL(creds.ClientID, redirectURI, state, pkce, m.scopes)
	server.Start()

	m.printf("Opening your browser to sign in to %s...\n", site)
	if err := m.openBrowser(authURL); err != nil {
		logging.Warn("Auth", "[%s] could not open browser: %v", flowID, err)
		m.printf("Could not open a browser automatically. Visit this URL to continue:\n\n  %s\n\n", authURL)
	}

	stopWaiting := m.onWaiting()
	result, err := server.WaitForCallback(ctx, m.callbackTimeout)
	stopWaiting()
	if err != nil {
		return err
	}

	// CSRF defense: the echoed state must match exactly as received, before
	// any exchange request leaves the process.
	if result.State != state {
		logging.Warn("Auth", "[%s] state mismatch, aborting before code exchange", flowID)
		return &StateMismatchError{}
	}

	tokens, err := client.ExchangeCode(ctx, result.Code, redirectURI, pkce.Verifier, creds)
	if err != nil {
		return err
	}

	if err := m.store.SaveTokens(site, org, tokens); err != nil {
		return err
	}
	if err := m.store.SaveSession(site, org); err != nil {
		return err
	}

	logging.Info("Auth", "[%s] login complete, token expires at %s", flowID, tokens.ExpiresAt().Format(time.RFC3339))
	return nil
}

// Refresh exchanges the stored refresh token for a fresh TokenSet and
// persists it under the same (site, org) key.
func (m *Manager) Refresh(ctx context.Context, site, org string) error {
	tokens, err := m.store.LoadTokens(site, org)
	if err != nil {
		return err
	}
	creds, err := m.store.LoadClientCredentials(site)
	if err != nil {
		return err
	}
	if tokens == nil || tokens.RefreshToken == "" || creds == nil {
		return &NoCredentialsError{Site: site, Org: org}
	}

	fresh, err := m.newClient(site).RefreshToken(ctx, tokens.RefreshToken, creds)
	if err != nil {
		return err
	}

	if err := m.store.SaveTokens(site, org, fresh); err != nil {
		return err
	}
	logging.Info("Auth", "refreshed tokens for site %s org %q, expires at %s", site, org, fresh.ExpiresAt().Format(time.RFC3339))
	return nil
}

// Logout removes the org's tokens and session entry. The site's shared
// client registration is removed only when the default (org-less) session
// logs out, since other orgs on the site still depend on it. Logging out a
// session that does not exist succeeds.
func (m *Manager) Logout(site, org string) error {
	if err := m.store.DeleteTokens(site, org); err != nil {
		return err
	}
	if org == "" {
		if err := m.store.DeleteClientCredentials(site); err != nil {
			return err
		}
	}
	if err := m.store.RemoveSession(site, org); err != nil {
		return err
	}
	logging.Info("Auth", "logged out of site %s org %q", site, org)
	return nil
}

// Status describes the stored session for one (site, org) pair.
type Status struct {
	Site            string
	Org             string
	Authenticated   bool
	Expired         bool
	ExpiresAt       time.Time
	HasRefreshToken bool
	TokenType       string
	Scope           string
}

// Status reports the state of the stored session without side effects. It
// never refreshes; an expired session is reported as expired.
func (m *Manager) Status(site, org string) (*Status, error) {
	st := &Status{Site: site, Org: org}

	tokens, err := m.store.LoadTokens(site, org)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return st, nil
	}

	st.Authenticated = true
	st.Expired = tokens.IsExpired()
	st.ExpiresAt = tokens.ExpiresAt()
	st.HasRefreshToken = tokens.RefreshToken != ""
	st.TokenType = tokens.TokenType
	st.Scope = tokens.Scope
	return st, nil
}

// AccessToken returns the bearer token for (site, org). This is the sole
// surface the API command layer consumes. It fails with NoCredentialsError
// when nothing is stored and ErrTokenExpired when the token is inside the
// expiry buffer; it never refreshes implicitly.
func (m *Manager) AccessToken(site, org string) (string, error) {
	tokens, err := m.store.LoadTokens(site, org)
	if err != nil {
		return "", err
	}
	if tokens == nil {
		return "", &NoCredentialsError{Site: site, Org: org}
	}
	if tokens.IsExpired() {
		return "", ErrTokenExpired
	}
	return tokens.AccessToken, nil
}
