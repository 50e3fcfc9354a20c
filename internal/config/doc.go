// Package config resolves pup's runtime configuration.
//
// Precedence, lowest to highest: built-in defaults, the optional config file
// (~/.config/pup/config.yaml), environment variables (DD_SITE, DD_ORG,
// DD_ACCESS_TOKEN, DD_TOKEN_STORAGE), and finally command-line flags applied
// by the caller. A missing config file is never an error.
package config
