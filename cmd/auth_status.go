package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the authentication status for a site and organization.

This reports whether tokens are stored, whether they are expired, and when
they expire. It never refreshes anything; use 'pup auth refresh' for that.

Examples:
  pup auth status                      # Status for the configured session
  pup auth status --org staging        # Status for a specific org`,
	RunE: runAuthStatus,
}

// statusDoc is the machine-readable shape printed by `pup auth status`.
type statusDoc struct {
	Authenticated bool   `json:"authenticated"`
	Status        string `json:"status"`
	Site          string `json:"site"`
	Org           string `json:"org,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	HasRefresh    bool   `json:"has_refresh"`
	TokenType     string `json:"token_type,omitempty"`
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := resolveTarget()
	if err != nil {
		return err
	}
	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	st, err := mgr.Status(cfg.Site, cfg.Org)
	if err != nil {
		return err
	}

	doc := statusDoc{
		Authenticated: st.Authenticated && !st.Expired,
		Site:          st.Site,
		Org:           st.Org,
		HasRefresh:    st.HasRefreshToken,
		TokenType:     st.TokenType,
	}

	switch {
	case !st.Authenticated:
		doc.Status = "unauthenticated"
		authPrint("%s Not signed in to %s\n", text.FgYellow.Sprint("○"), describeTarget(cfg))
	case st.Expired:
		doc.Status = "expired"
		doc.ExpiresAt = st.ExpiresAt.Format(time.RFC3339)
		authPrint("%s Token for %s expired at %s\n", text.FgRed.Sprint("✗"), describeTarget(cfg), st.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	default:
		doc.Status = "authenticated"
		doc.ExpiresAt = st.ExpiresAt.Format(time.RFC3339)
		authPrint("%s Signed in to %s, token expires at %s\n", text.FgGreen.Sprint("✓"), describeTarget(cfg), st.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}

	blob, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(blob))
	return nil
}
