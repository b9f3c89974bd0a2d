package validate

import "errors"

// ErrValidationFailed is returned by callers when a report's overall status
// is FAILED.
var ErrValidationFailed = errors.New("validation failed")

type Status string

const (
	Pass Status = "pass"
	Warn Status = "warn"
	Fail Status = "fail"
)

const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

// Result is the outcome of one check.
type Result struct {
	Name    string `json:"name" yaml:"name"`
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

func passf(name, msg string) Result { return Result{Name: name, Status: Pass, Message: msg} }
func warnf(name, msg string) Result { return Result{Name: name, Status: Warn, Message: msg} }
func failf(name, msg string) Result { return Result{Name: name, Status: Fail, Message: msg} }

// Tally accumulates check outcomes for one run.
type Tally struct {
	Passed   int `json:"passed" yaml:"passed"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Failed   int `json:"failed" yaml:"failed"`
}

func (t *Tally) Add(s Status) {
	switch s {
	case Pass:
		t.Passed++
	case Warn:
		t.Warnings++
	default:
		t.Failed++
	}
}

// Overall is FAILED when any check failed, or in strict mode when any check
// warned.
func (t Tally) Overall(strict bool) string {
	if t.Failed > 0 || (strict && t.Warnings > 0) {
		return StatusFailed
	}
	return StatusPassed
}
