package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"gopkg.in/yaml.v3"

	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/tui/theme"
	"tasnim.dev/eksops/internal/utils"
)

const reportTimestamp = "20060102-150405"

// Report is the outcome of one validation run.
type Report struct {
	Cluster        string    `json:"cluster" yaml:"cluster"`
	Environment    string    `json:"environment" yaml:"environment"`
	Region         string    `json:"region" yaml:"region"`
	ValidationType string    `json:"validation_type" yaml:"validation_type"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	Strict         bool      `json:"strict" yaml:"strict"`
	Tally          `yaml:",inline"`
	Status         string   `json:"status" yaml:"status"`
	Checks         []Result `json:"checks" yaml:"checks"`
}

// OK reports whether the overall status is PASSED.
func (r *Report) OK() bool { return r.Status == StatusPassed }

// Err returns ErrValidationFailed for a FAILED report.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %d failed, %d warnings", ErrValidationFailed, r.Failed, r.Warnings)
}

// Render encodes the report in format.
func (r *Report) Render(format target.OutputFormat) ([]byte, error) {
	switch format {
	case target.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case target.FormatYAML:
		return yaml.Marshal(r)
	case target.FormatText, "":
		return []byte(r.text()), nil
	default:
		return nil, fmt.Errorf("%w: output format %q", target.ErrInvalidInput, format)
	}
}

func (r *Report) text() string {
	db := utils.NewDetailBuilder(16, lipgloss.NewStyle())
	db.Section("Validation")
	r.header(db)
	db.Blank()
	db.Section("Checks")
	width := r.nameWidth()
	for _, c := range r.Checks {
		db.WriteString(fmt.Sprintf("  [%-4s] %-*s %s\n", strings.ToUpper(string(c.Status)), width, c.Name, c.Message))
	}
	db.Blank()
	db.Row("Result", r.Status)
	return db.String()
}

func (r *Report) header(db *utils.DetailBuilder) {
	db.Row("Cluster", r.Cluster)
	db.Row("Environment", r.Environment)
	db.Row("Region", r.Region)
	db.Row("Type", r.ValidationType)
	db.Row("Timestamp", utils.TimeOrDash(r.Timestamp, utils.DateTimeSec))
	db.Row("Passed", fmt.Sprint(r.Tally.Passed))
	db.Row("Warnings", fmt.Sprint(r.Warnings))
	db.Row("Failed", fmt.Sprint(r.Failed))
}

func (r *Report) nameWidth() int {
	w := 0
	for _, c := range r.Checks {
		w = max(w, len(c.Name))
	}
	return w
}

// FileName is validation-<cluster>-<timestamp>.<ext>.
func (r *Report) FileName(format target.OutputFormat) string {
	return fmt.Sprintf("validation-%s-%s.%s", r.Cluster, r.Timestamp.Format(reportTimestamp), format.Ext())
}

// Write renders the report into dir and returns the file path.
func (r *Report) Write(dir string, format target.OutputFormat) (string, error) {
	data, err := r.Render(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	p := filepath.Join(dir, r.FileName(format))
	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return p, nil
}

// Console prints the report with colored status markers.
func (r *Report) Console(w io.Writer) {
	lipgloss.Fprintln(w, theme.TitleStyle.Render(fmt.Sprintf("Validation %s: %s (%s)", r.ValidationType, r.Cluster, r.Region)))
	width := r.nameWidth()
	for _, c := range r.Checks {
		lipgloss.Fprintln(w, fmt.Sprintf("  %s %-*s %s", theme.Mark(string(c.Status)), width, c.Name, theme.MutedStyle.Render(c.Message)))
	}
	summary := fmt.Sprintf("%d passed, %d warnings, %d failed", r.Tally.Passed, r.Warnings, r.Failed)
	if r.Strict {
		summary += " (strict)"
	}
	lipgloss.Fprintln(w, "\n"+theme.Verdict(r.Status)+"  "+summary)
}
