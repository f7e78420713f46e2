package actions

import (
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is what an action reports for a row it handled without error.
type Outcome struct {
	Status Status
	Detail string
}

func ok(detail string) Outcome {
	return Outcome{Status: StatusOK, Detail: detail}
}

func skipped(detail string) Outcome {
	return Outcome{Status: StatusSkipped, Detail: detail}
}

// Result records what happened to one roster row.
type Result struct {
	Row    int
	Label  string
	Target string
	Status Status
	Detail string
	Err    error
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID    string
	Action   string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

func (s Summary) Count(status Status) int {
	return lo.CountBy(s.Results, func(r Result) bool { return r.Status == status })
}

func (s Summary) Failed() bool {
	return s.Count(StatusFailed) > 0
}

// ExitCode is 0 when every row succeeded or was skipped, 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed() {
		return 1
	}
	return 0
}

func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
