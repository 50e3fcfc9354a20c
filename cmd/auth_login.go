package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through your browser",
	Long: `Sign in to a Datadog site with OAuth2.

This opens your browser to authorize pup, waits for the redirect on a local
port, and stores the resulting tokens in your OS keychain (or a local file
when no keychain is available). On first login to a site pup registers
itself as an OAuth client automatically.

Examples:
  pup auth login                       # Sign in to the configured site
  pup auth login --site datadoghq.eu   # Sign in to the EU site
  pup auth login --org staging         # Sign in to a specific org`,
	RunE: runAuthLogin,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := resolveTarget()
	if err != nil {
		return err
	}
	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Login(cmd.Context(), cfg.Site, cfg.Org); err != nil {
		return err
	}
	authPrint("Signed in to %s\n", describeTarget(cfg))
	return nil
}

// loginSpinner shows a spinner while the flow waits for the browser
// redirect. Quiet mode gets no spinner.
func loginSpinner() func() {
	if authQuiet {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for browser sign-in..."
	s.Start()
	return s.Stop
}
