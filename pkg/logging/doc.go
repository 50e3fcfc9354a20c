// Package logging provides a thin, subsystem-tagged wrapper around log/slog
// for CLI diagnostics.
//
// All pup packages log through this wrapper rather than calling slog
// directly, so the verbosity of the whole tool is controlled from one place
// (the --verbose flag on the root command).
//
// Usage:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Auth", "starting login for site %s", site)
//	logging.Error("Storage", err, "failed to persist tokens")
//
// Token and credential values must never be passed to this package; callers
// log sites, orgs and flow ids only.
package logging
