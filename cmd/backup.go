package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/tui/theme"
)

type backupOptions struct {
	backupDir string
	s3Bucket  string
	s3Prefix  string
}

func newBackupCmd(g *globalOptions) *cobra.Command {
	o := &backupOptions{}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the cluster description and Kubernetes state",
		Example: `  eksops backup -e staging
  eksops backup -e production --s3-bucket my-eks-backups`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.backupDir, "backup-dir", "", "Backup root directory (default from config)")
	f.StringVar(&o.s3Bucket, "s3-bucket", "", "Also upload the snapshot to this S3 bucket")
	f.StringVar(&o.s3Prefix, "s3-prefix", "", "Key prefix inside the S3 bucket")

	return cmd
}

func runBackup(cmd *cobra.Command, g *globalOptions, o *backupOptions) error {
	ctx := cmd.Context()

	t, err := g.resolveTarget()
	if err != nil {
		return err
	}
	sess, err := g.connect(ctx, t)
	if err != nil {
		return err
	}

	m := &backup.Manager{
		Dir:    first(o.backupDir, g.cfg.BackupDir),
		EKS:    sess.svc.EKS,
		Kube:   sess.kube.Clientset,
		Bucket: first(o.s3Bucket, g.cfg.S3.Bucket),
		Prefix: first(o.s3Prefix, g.cfg.S3.Prefix),
	}
	if m.Bucket != "" {
		if err := sess.svc.S3.CheckBucket(ctx, m.Bucket); err != nil {
			return err
		}
		m.Uploader = sess.svc.S3
	}

	return g.record(ctx, history.KindBackup, sess.target, "", func() (string, error) {
		snap, err := m.Create(ctx, sess.target.ClusterName)
		if err != nil {
			return snap.Dir, err
		}

		out := cmd.OutOrStdout()
		lipgloss.Fprintln(out, theme.Mark("completed")+" backup written to "+theme.TitleStyle.Render(snap.Dir))
		if len(snap.Uploaded) > 0 {
			lipgloss.Fprintln(out, theme.MutedStyle.Render(fmt.Sprintf("  %d file(s) uploaded to s3://%s", len(snap.Uploaded), m.Bucket)))
		}
		return snap.Dir, nil
	})
}
