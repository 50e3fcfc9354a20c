// Package auth implements pup's OAuth2 authentication core.
//
// It covers the full browser-based login flow for public clients:
// PKCE challenge generation, Dynamic Client Registration (RFC 7591) against
// the site's registration endpoint, a throwaway local HTTP listener that
// catches the browser redirect, authorization-code exchange and token
// refresh, all orchestrated by the Manager.
//
// Tokens and client registrations are persisted through pup/internal/storage;
// this package never touches the backing store directly except through the
// mutex-guarded Store, and never holds that lock across a network call.
package auth
