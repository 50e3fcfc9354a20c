package cmd

import (
	"pup/internal/cli"

	"github.com/spf13/cobra"
)

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions",
	Long: `List every (site, organization) pair pup has signed in to.

The list comes from a secret-free registry, so it never has to unlock the
OS keychain; per-session state is looked up alongside it.

Examples:
  pup auth list                        # Show all known sessions`,
	RunE: runAuthList,
}

func runAuthList(cmd *cobra.Command, args []string) error {
	mgr, store, err := newManager()
	if err != nil {
		return err
	}

	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		authPrint("No known sessions. Run 'pup auth login' to sign in.\n")
		return nil
	}

	rows := make([]cli.SessionRow, 0, len(sessions))
	for _, session := range sessions {
		st, err := mgr.Status(session.Site, session.Org)
		if err != nil {
			return err
		}
		rows = append(rows, cli.SessionRow{
			Site:          session.Site,
			Org:           session.Org,
			Authenticated: st.Authenticated,
			Expired:       st.Expired,
			ExpiresAt:     st.ExpiresAt,
		})
	}

	cli.RenderSessionTable(cmd.OutOrStdout(), rows)
	return nil
}
