package cmd

import (
	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/rollback"
	"tasnim.dev/eksops/internal/tui"
	"tasnim.dev/eksops/internal/update"
)

type rollbackOptions struct {
	backupDir string
	snapshot  string
	apply     bool
	force     bool
}

func newRollbackCmd(g *globalOptions) *cobra.Command {
	o := &rollbackOptions{}

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Plan or apply a rollback to a backup snapshot",
		Long: `Compares the live cluster with a backup snapshot and lists what can be
reverted. Node group and add-on versions are reverted with --apply; a control
plane that has already been upgraded cannot be downgraded and is reported as a
manual step.`,
		Example: `  eksops rollback -e staging
  eksops rollback -e staging --snapshot backups/eks-staging-20260101-120000 --apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.backupDir, "backup-dir", "", "Backup root directory (default from config)")
	f.StringVar(&o.snapshot, "snapshot", "", "Snapshot directory (default the latest for the cluster)")
	f.BoolVar(&o.apply, "apply", false, "Execute the rollback instead of only printing it")
	f.BoolVar(&o.force, "force", false, "Skip the confirmation prompt")

	return cmd
}

func runRollback(cmd *cobra.Command, g *globalOptions, o *rollbackOptions) error {
	ctx := cmd.Context()

	t, err := g.resolveTarget()
	if err != nil {
		return err
	}
	sess, err := g.connect(ctx, t)
	if err != nil {
		return err
	}

	prompter := tui.NewPrompter()
	out := cmd.OutOrStdout()
	r := &rollback.Runner{
		Target:    sess.target,
		EKS:       sess.svc.EKS,
		Snapshots: &backup.Manager{Dir: first(o.backupDir, g.cfg.BackupDir)},
		Confirm:   prompter,
		Policy:    g.policy(0),
		OnPlan: func(p *update.Plan) {
			printPlan(out, "Rollback plan for "+sess.target.String(), p)
			prompter.Details = stepLabels(p)
		},
		OnProgress: progressPrinter(out),
	}

	return g.record(ctx, history.KindRollback, sess.target, "", func() (string, error) {
		res, err := r.Run(ctx, rollback.Options{Snapshot: o.snapshot, Apply: o.apply, Force: o.force})
		printResult(out, res)
		return resultDetail(res, err), err
	})
}
