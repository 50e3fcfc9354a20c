package cmd

import (
	"fmt"

	"pup/internal/auth"
	"pup/internal/config"
	"pup/internal/storage"

	"github.com/spf13/cobra"
)

var (
	authSite  string
	authOrg   string
	authQuiet bool
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for pup",
	Long: `Manage authentication for pup CLI commands.

The auth command group provides subcommands to login, logout, check status,
refresh tokens, and list known sessions across Datadog sites and
organizations.

Examples:
  pup auth login                       # Sign in to the configured site
  pup auth login --org staging         # Sign in to a specific org
  pup auth status                      # Show authentication status
  pup auth token                       # Print the current bearer token
  pup auth refresh                     # Force a token refresh
  pup auth list                        # List all known sessions
  pup auth logout                      # Sign out of the configured site`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored authentication tokens",
	Long: `Clear stored OAuth tokens for a site and organization.

Logging out the default (org-less) session also removes the site's shared
client registration; org-scoped logouts leave it in place for the other
organizations on that site.

Examples:
  pup auth logout                      # Sign out of the configured site
  pup auth logout --org staging        # Sign out of one org only`,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force token refresh",
	Long: `Force a refresh of the stored access token.

This exchanges the stored refresh token for a fresh access token, which can
be useful when a long session is about to expire.

Examples:
  pup auth refresh                     # Refresh the configured session
  pup auth refresh --org staging       # Refresh a specific org's session`,
	RunE: runAuthRefresh,
}

// authTokenCmd represents the auth token command
var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the current bearer token",
	Long: `Print the bearer token for the configured site and organization.

A DD_ACCESS_TOKEN environment variable takes precedence over stored OAuth
tokens. Fails when no token is stored or the stored token is expired.

Examples:
  pup auth token                       # Print the token
  curl -H "Authorization: Bearer $(pup auth token)" ...`,
	RunE: runAuthToken,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(format string, args ...interface{}) {
	if !authQuiet {
		fmt.Printf(format, args...)
	}
}

// resolveTarget loads the configuration and applies the --site/--org flag
// overrides.
func resolveTarget() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if authSite != "" {
		cfg.Site = authSite
	}
	if authOrg != "" {
		cfg.Org = authOrg
	}
	return cfg, nil
}

// newManager wires the auth Manager over the process-wide store.
func newManager() (*auth.Manager, *storage.Store, error) {
	store, err := storage.Get()
	if err != nil {
		return nil, nil, err
	}
	mgr := auth.NewManager(auth.ManagerConfig{
		Store:     store,
		Printf:    authPrint,
		OnWaiting: loginSpinner,
	})
	return mgr, store, nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cfg, err := resolveTarget()
	if err != nil {
		return err
	}
	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Logout(cfg.Site, cfg.Org); err != nil {
		return err
	}
	authPrint("Logged out of %s\n", describeTarget(cfg))
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := resolveTarget()
	if err != nil {
		return err
	}
	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Refresh(cmd.Context(), cfg.Site, cfg.Org); err != nil {
		return err
	}
	authPrint("Refreshed tokens for %s\n", describeTarget(cfg))
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	cfg, err := resolveTarget()
	if err != nil {
		return err
	}

	// An explicit bearer token from the environment or config file wins over
	// anything in storage.
	if cfg.AccessToken != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.AccessToken)
		return nil
	}

	mgr, _, err := newManager()
	if err != nil {
		return err
	}
	token, err := mgr.AccessToken(cfg.Site, cfg.Org)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// describeTarget names a (site, org) pair for user-facing messages.
func describeTarget(cfg *config.Config) string {
	if cfg.Org != "" {
		return fmt.Sprintf("%s (org: %s)", cfg.Site, cfg.Org)
	}
	return cfg.Site
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authListCmd)

	authCmd.PersistentFlags().StringVar(&authSite, "site", "", "Datadog site (default from config or DD_SITE)")
	authCmd.PersistentFlags().StringVar(&authOrg, "org", "", "Organization label (default from config or DD_ORG)")
	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress progress output")
}
