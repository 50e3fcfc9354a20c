// Package cli renders pup's terminal output: the session table and the
// colored status markers shared by the auth subcommands.
package cli
