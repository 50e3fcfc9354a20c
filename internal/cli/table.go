package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionRow is one line of the `pup auth list` table.
type SessionRow struct {
	Site          string
	Org           string
	Authenticated bool
	Expired       bool
	ExpiresAt     time.Time
}

// StatusLabel renders a session state as a colored, human-readable word.
func (r SessionRow) StatusLabel() string {
	switch {
	case !r.Authenticated:
		return text.FgYellow.Sprint("no tokens")
	case r.Expired:
		return text.FgRed.Sprint("expired")
	default:
		return text.FgGreen.Sprint("authenticated")
	}
}

// RenderSessionTable writes the known sessions as a rounded table.
func RenderSessionTable(w io.Writer, rows []SessionRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SITE"),
		text.FgHiCyan.Sprint("ORG"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("EXPIRES"),
	})

	for _, row := range rows {
		org := row.Org
		if org == "" {
			org = "(default)"
		}
		expires := "-"
		if row.Authenticated {
			expires = row.ExpiresAt.Local().Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{row.Site, org, row.StatusLabel(), expires})
	}

	t.Render()
}
