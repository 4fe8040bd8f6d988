// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"formplay/cli/internal/session"
	"formplay/cli/internal/store"
)

var sessionsOpts struct {
	prune     bool
	olderThan time.Duration
	delete    string
}

// sessionsCmd lists and maintains the local history of form sessions.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List resumable form sessions",
	Long: `The sessions command lists the form sessions recorded on this machine, most
recent first. A session that was not submitted can be continued with
'formplay fill --session ID' or 'formplay fill --form NAME --resume'.

--prune removes submitted sessions and those untouched for longer than
--older-than. --delete removes a single entry by its key, DOMAIN/USER/FORM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		st, err := store.Open(a.cfg.StorePath, a.log)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		switch {
		case sessionsOpts.delete != "":
			if err := st.Delete(ctx, sessionsOpts.delete); err != nil {
				return err
			}
			fmt.Printf("✅ Removed %s\n", sessionsOpts.delete)
			return nil
		case sessionsOpts.prune:
			n, err := st.Prune(ctx, time.Now().Add(-sessionsOpts.olderThan), session.Submitted.String())
			if err != nil {
				return err
			}
			fmt.Printf("✅ Removed %d session(s)\n", n)
			return nil
		}

		recs, err := st.List(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			pterm.Println("No sessions recorded yet. Start one with: formplay fill --form NAME")
			return nil
		}
		data := pterm.TableData{{"Form", "Domain", "User", "State", "Lang", "Updated", "Session"}}
		for _, r := range recs {
			data = append(data, []string{
				orDash(r.FormName), orDash(r.Domain), orDash(r.Username),
				stateLabel(r.State), orDash(r.Lang),
				r.UpdatedAt.Local().Format("2006-01-02 15:04"), r.SessionID,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func stateLabel(state string) string {
	if state == session.Submitted.String() {
		return pterm.FgGreen.Sprint(state)
	}
	return orDash(state)
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsOpts.prune, "prune", false, "Remove submitted and stale sessions")
	sessionsCmd.Flags().DurationVar(&sessionsOpts.olderThan, "older-than", 30*24*time.Hour, "Age after which --prune removes a session")
	sessionsCmd.Flags().StringVar(&sessionsOpts.delete, "delete", "", "Remove the session with this DOMAIN/USER/FORM key")
	rootCmd.AddCommand(sessionsCmd)
}
