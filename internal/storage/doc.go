// Package storage persists OAuth tokens and client registrations across
// pluggable backends: the OS keychain, plain files under the config
// directory, a no-op in-memory variant and a host-provided key/value store.
//
// Tokens are stored as one blob per site, keyed inside by org, so several
// organizational identities on the same site share a single backing record.
// Blobs written by pre-multi-org releases (a bare token object) are promoted
// transparently on read.
//
// A process uses exactly one backend, constructed lazily by Get and guarded
// by the Store mutex. The session registry is a separate secret-free file so
// listing known logins never has to touch the keychain.
package storage
