package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/discovery"

	awsclient "tasnim.dev/eksops/internal/aws"
	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/history"
	"tasnim.dev/eksops/internal/prereq"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/tui/theme"
	"tasnim.dev/eksops/internal/update"
	"tasnim.dev/eksops/internal/utils"
	"tasnim.dev/eksops/internal/waiter"
)

// session is everything a command needs once prerequisites have passed.
type session struct {
	target  target.Target
	svc     *awsclient.ServiceClient
	cluster eks.Cluster
	kube    *eks.K8sClient
}

func (g *globalOptions) resolveTarget() (target.Target, error) {
	return target.Resolve(g.env, g.cluster, g.region, g.profile, g.cfg)
}

// connect runs the prerequisite checks in order. Tools are checked before the
// AWS config is loaded so a missing tool never leads to a remote call. The
// Kubernetes API is checked on every run, dry runs included.
func (g *globalOptions) connect(ctx context.Context, t target.Target) (*session, error) {
	checker := &prereq.Checker{Tools: g.cfg.RequiredTools}
	if err := checker.CheckTools(); err != nil {
		return nil, err
	}

	svc, err := awsclient.NewServiceClient(ctx, t.Profile, t.Region)
	if err != nil {
		return nil, err
	}
	t.Region = svc.Region()

	var kc *eks.K8sClient
	checker.Tools = nil
	checker.STS = svc.STS
	checker.EKS = svc.EKS
	checker.Kube = func(c eks.Cluster) (discovery.ServerVersionInterface, error) {
		var err error
		if kc, err = eks.NewK8sClient(c, eks.NewTokenProvider(svc.Config, t.ClusterName)); err != nil {
			return nil, err
		}
		return kc.Clientset.Discovery(), nil
	}
	res, err := checker.Run(ctx, t.ClusterName)
	if err != nil {
		return nil, err
	}
	return &session{target: t, svc: svc, cluster: res.Cluster, kube: kc}, nil
}

// policy builds the waiter bounds from config, with an optional override.
func (g *globalOptions) policy(timeout time.Duration) waiter.Policy {
	p := waiter.DefaultPolicy()
	p.InitialInterval = g.cfg.Poll.InitialInterval
	p.MaxInterval = g.cfg.Poll.MaxInterval
	p.Timeout = g.cfg.Poll.Timeout
	if timeout > 0 {
		p.Timeout = timeout
	}
	return p
}

// record runs fn and stores the outcome in the run history. History is best
// effort: a store that cannot be opened only logs a warning.
func (g *globalOptions) record(ctx context.Context, kind history.Kind, t target.Target, scope string, fn func() (string, error)) error {
	store, err := history.Open(ctx, g.cfg.HistoryDB)
	if err != nil {
		log.WithError(err).Warn("run history unavailable")
		_, runErr := fn()
		return runErr
	}
	defer store.Close()

	run, err := store.Start(ctx, history.Run{
		Kind:        kind,
		Cluster:     t.ClusterName,
		Environment: string(t.Environment),
		Region:      t.Region,
		Scope:       scope,
	})
	if err != nil {
		log.WithError(err).Warn("recording run start")
		_, runErr := fn()
		return runErr
	}

	detail, runErr := fn()
	// The run context may already be cancelled; the row should still close.
	if err := store.Finish(context.WithoutCancel(ctx), run.ID, detail, runErr); err != nil {
		log.WithError(err).Warn("recording run result")
	}
	return runErr
}

func printPlan(w io.Writer, title string, p *update.Plan) {
	db := utils.NewDetailBuilder(planLabelWidth(p.Steps), theme.SectionStyle)
	db.Section(title)
	if len(p.Steps) == 0 {
		db.WriteString(theme.MutedStyle.Render("  no steps") + "\n")
	}
	for _, s := range p.Steps {
		db.Item(theme.Mark(string(s.Outcome)), s.Label(), stepNote(s))
	}
	lipgloss.Fprintln(w, db.String())
}

func printResult(w io.Writer, res *update.RunResult) {
	if res == nil {
		return
	}
	counts := make([]string, 0, 4)
	for _, o := range []update.Outcome{update.Completed, update.Failed, update.Manual, update.Skipped} {
		if n := res.Count(o); n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(counts) == 0 {
		counts = append(counts, "no changes")
	}
	lipgloss.Fprintln(w, theme.TitleStyle.Render(res.Cluster)+" "+strings.Join(counts, ", "))
	if res.BackupPath != "" {
		lipgloss.Fprintln(w, theme.MutedStyle.Render("snapshot: "+res.BackupPath))
	}
}

func stepNote(s update.Step) string {
	switch {
	case s.Error != "":
		return string(s.Outcome) + ": " + s.Error
	case s.Message != "":
		return string(s.Outcome) + ": " + s.Message
	default:
		return string(s.Outcome)
	}
}

func planLabelWidth(steps []update.Step) int {
	w := 12
	for _, s := range steps {
		w = max(w, len(s.Label())+2)
	}
	return w
}

func stepLabels(p *update.Plan) []string {
	var labels []string
	for _, s := range p.Steps {
		if s.Outcome == update.Planned {
			labels = append(labels, s.Label())
		}
	}
	return labels
}

// progressPrinter reports long-running waits as status lines on w.
func progressPrinter(w io.Writer) update.ProgressFunc {
	return func(s update.Step, state string, elapsed time.Duration) {
		log.WithFields(log.Fields{"step": s.Label(), "state": state}).Debug("progress")
		lipgloss.Fprintln(w, fmt.Sprintf("  %s %s %s %s",
			theme.Mark("in-progress"), s.Label(), state, theme.MutedStyle.Render("("+utils.Elapsed(elapsed)+")")))
	}
}

func resultDetail(res *update.RunResult, err error) string {
	if res == nil {
		return ""
	}
	d := fmt.Sprintf("%d completed, %d failed, %d manual", res.Count(update.Completed), res.Count(update.Failed), res.Count(update.Manual))
	if res.DryRun {
		d = "dry run, " + d
	}
	if errors.Is(err, update.ErrDeclined) {
		d = "declined"
	}
	return d
}
