package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/kube"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/validate"
)

type validateOptions struct {
	scope       string
	strict      bool
	output      string
	reportDir   string
	metricsFile string
	skipDNSTest bool
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	o := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run health checks against a cluster and write a report",
		Example: `  eksops validate -e staging
  eksops validate -e production -t pre-update --strict -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.scope, "type", "t", string(target.ValidateHealth), "Validation type: health, pre-update, post-update or rollback")
	f.BoolVar(&o.strict, "strict", false, "Treat warnings as failures")
	f.StringVarP(&o.output, "output", "o", string(target.FormatText), "Report format: text, json or yaml")
	f.StringVar(&o.reportDir, "report-dir", "", "Report directory (default from config)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Also write Prometheus textfile metrics to this path")
	f.BoolVar(&o.skipDNSTest, "skip-dns-test", false, "Skip the in-cluster DNS resolution pod")

	return cmd
}

func runValidate(cmd *cobra.Command, g *globalOptions, o *validateOptions) error {
	ctx := cmd.Context()

	t, err := g.resolveTarget()
	if err != nil {
		return err
	}
	scope, err := target.ParseValidationScope(o.scope)
	if err != nil {
		return err
	}
	format, err := target.ParseOutputFormat(o.output)
	if err != nil {
		return err
	}

	sess, err := g.connect(ctx, t)
	if err != nil {
		return err
	}

	v := &validate.Validator{
		Target:           sess.target,
		EKS:              sess.svc.EKS,
		Kube:             sess.kube.Clientset,
		Dynamic:          sess.kube.Dynamic,
		IAM:              sess.svc.IAM,
		Logs:             sess.svc.Logs,
		EC2:              sess.svc.EC2,
		ELB:              sess.svc.ELB,
		VPC:              sess.svc.VPC,
		Backups:          &backup.Manager{Dir: g.cfg.BackupDir},
		SystemNamespaces: g.cfg.SystemNamespaces,
		DNSTest:          kube.DNSTest{Image: g.cfg.DNSTestImage},
		SkipDNSTest:      o.skipDNSTest,
	}

	return g.record(ctx, history.KindValidate, sess.target, string(scope), func() (string, error) {
		report, err := v.Run(ctx, scope, o.strict)
		if err != nil {
			return "", err
		}

		path, err := report.Write(first(o.reportDir, g.cfg.ReportDir), format)
		if err != nil {
			return "", err
		}
		log.WithField("path", path).Info("validation report written")

		if o.metricsFile != "" {
			if err := report.WriteMetrics(o.metricsFile); err != nil {
				return "", err
			}
			log.WithField("path", o.metricsFile).Info("validation metrics written")
		}

		report.Console(cmd.OutOrStdout())
		return report.Status, report.Err()
	})
}
