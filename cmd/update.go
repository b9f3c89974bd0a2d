package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/tui"
	"tasnim.dev/eksops/internal/update"
)

type updateOptions struct {
	scope      string
	version    string
	configFile string
	dryRun     bool
	force      bool
	skipBackup bool
	backupDir  string
	timeout    time.Duration
}

func newUpdateCmd(g *globalOptions) *cobra.Command {
	o := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the control plane, node groups and add-ons of a cluster",
		Example: `  eksops update -e staging -t control-plane -k 1.30 --dry-run
  eksops update -e dev -t all -k 1.30
  eksops update -e production -t config -f cluster.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.scope, "type", "t", string(target.ScopeAll), "Update type: all, control-plane, nodegroups, addons or config")
	f.StringVarP(&o.version, "version", "k", "", "Target Kubernetes version (major.minor)")
	f.StringVarP(&o.configFile, "config-file", "f", "", "Desired-state ClusterConfig file, required for --type config")
	f.BoolVar(&o.dryRun, "dry-run", false, "Print the plan without changing anything")
	f.BoolVar(&o.force, "force", false, "Skip the confirmation prompt")
	f.BoolVar(&o.skipBackup, "skip-backup", false, "Do not take a backup before applying")
	f.StringVar(&o.backupDir, "backup-dir", "", "Backup root directory (default from config)")
	f.DurationVar(&o.timeout, "timeout", 0, "Maximum wait per update (default from config)")

	return cmd
}

func runUpdate(cmd *cobra.Command, g *globalOptions, o *updateOptions) error {
	ctx := cmd.Context()

	t, err := g.resolveTarget()
	if err != nil {
		return err
	}
	scope, err := target.ParseUpdateScope(o.scope)
	if err != nil {
		return err
	}
	if o.version != "" {
		if _, err := target.ParseVersion(o.version); err != nil {
			return err
		}
	}
	var desired *update.DesiredState
	if scope == target.ScopeConfig {
		if o.configFile == "" {
			return fmt.Errorf("%w: --type config requires --config-file", target.ErrInvalidInput)
		}
		if desired, err = update.LoadDesiredState(o.configFile); err != nil {
			return err
		}
	}

	sess, err := g.connect(ctx, t)
	if err != nil {
		return err
	}

	prompter := tui.NewPrompter()
	out := cmd.OutOrStdout()
	seq := &update.Sequencer{
		Target:  sess.target,
		EKS:     sess.svc.EKS,
		Confirm: prompter,
		Policy:  g.policy(o.timeout),
		Backup: &backup.Manager{
			Dir:  first(o.backupDir, g.cfg.BackupDir),
			EKS:  sess.svc.EKS,
			Kube: sess.kube.Clientset,
		},
		OnPlan: func(p *update.Plan) {
			printPlan(out, "Update plan for "+sess.target.String(), p)
			prompter.Details = stepLabels(p)
		},
		OnProgress: progressPrinter(out),
	}

	return g.record(ctx, history.KindUpdate, sess.target, string(scope), func() (string, error) {
		res, err := seq.Run(ctx, update.Options{
			Scope:      scope,
			Version:    o.version,
			Desired:    desired,
			DryRun:     o.dryRun,
			Force:      o.force,
			SkipBackup: o.skipBackup,
		})
		printResult(out, res)
		return resultDetail(res, err), err
	})
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
