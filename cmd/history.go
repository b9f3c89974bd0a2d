package cmd

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/tui/theme"
	"tasnim.dev/eksops/internal/utils"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent update, validate, backup and rollback runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// --env narrows to the environment's cluster; --cluster alone works too.
			cluster := g.cluster
			if g.env != "" {
				t, err := g.resolveTarget()
				if err != nil {
					return err
				}
				cluster = t.ClusterName
			}

			store, err := history.Open(ctx, g.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(ctx, cluster, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				lipgloss.Fprintln(out, theme.MutedStyle.Render("no runs recorded"))
				return nil
			}
			lipgloss.Fprintln(out, historyTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func historyTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = utils.Elapsed(d)
		}
		rows = append(rows, []string{
			r.Started.Local().Format(utils.DateTimeSec),
			string(r.Kind),
			r.Cluster,
			r.Scope,
			r.Status,
			duration,
			r.Detail,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(theme.MutedStyle).
		Headers("STARTED", "KIND", "CLUSTER", "SCOPE", "STATUS", "DURATION", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Inherit(theme.TitleStyle)
			case col == 4:
				return s.Foreground(theme.StatusColor(rows[row][col]))
			}
			return s
		}).
		String()
}
