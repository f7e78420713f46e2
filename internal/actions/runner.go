package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/apiarycd/glroster/internal/roster"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RunID tags the log lines and metrics of one invocation.
type RunID string

type RunnerParams struct {
	fx.In

	Roster  *roster.Roster
	Action  Action
	Request Request
	RunID   RunID
	Logger  *zap.Logger
}

// Runner applies one action to every roster row in file order. A failing
// row never stops the rows after it.
type Runner struct {
	roster      *roster.Roster
	action      Action
	labelColumn string
	dryRun      bool
	runID       RunID

	logger *zap.Logger
}

func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		roster:      p.Roster,
		action:      p.Action,
		labelColumn: p.Request.LoginColumn,
		dryRun:      p.Request.DryRun,
		runID:       p.RunID,

		logger: p.Logger,
	}
}

// Run processes all rows. The error is reserved for failures that prevent
// the run as a whole, such as an output file that cannot be created; row
// failures are recorded in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:   string(r.runID),
		Action:  r.action.Name(),
		Started: time.Now(),
	}

	logger := r.logger.With(zap.String("run_id", summary.RunID), zap.String("action", summary.Action))
	logger.Info("starting run", zap.Int("rows", r.roster.Len()), zap.Bool("dry_run", r.dryRun))

	if p, ok := r.action.(preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			summary.Finished = time.Now()
			return summary, fmt.Errorf("failed to prepare %s: %w", summary.Action, err)
		}
	}

	scoped := false
	if s, ok := r.action.(projectScoped); ok {
		scoped = s.ProjectScoped()
	}
	mutates := Mutating(summary.Action)

	seen := map[string]int{}
	for row := range r.roster.Rows() {
		result := r.runRow(ctx, logger, row, scoped, mutates, seen)
		summary.Results = append(summary.Results, result)
	}

	if f, ok := r.action.(finisher); ok {
		if err := f.Finish(); err != nil {
			summary.Finished = time.Now()
			return summary, fmt.Errorf("failed to finish %s: %w", summary.Action, err)
		}
	}

	summary.Finished = time.Now()

	logger.Info("run finished",
		zap.Int(string(StatusOK), summary.Count(StatusOK)),
		zap.Int(string(StatusSkipped), summary.Count(StatusSkipped)),
		zap.Int(string(StatusFailed), summary.Count(StatusFailed)),
		zap.Duration("duration", summary.Duration()))

	return summary, nil
}

func (r *Runner) runRow(
	ctx context.Context,
	logger *zap.Logger,
	row roster.Row,
	scoped, mutates bool,
	seen map[string]int,
) Result {
	result := Result{
		Row:   row.Number(),
		Label: r.label(row),
	}
	logger = logger.With(zap.Int("row", result.Row), zap.String("label", result.Label))

	fail := func(err error) Result {
		result.Status = StatusFailed
		result.Detail = err.Error()
		result.Err = err
		logger.Error("row failed", zap.String("target", result.Target), zap.Error(err))
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrCancelled, err))
	}

	target, err := r.action.Target(row)
	if err != nil {
		return fail(err)
	}
	result.Target = target

	if scoped {
		if first, dup := seen[target]; dup {
			result.Status = StatusSkipped
			result.Detail = fmt.Sprintf("duplicate project, see row %d", first)
			logger.Info("duplicate project", zap.String("target", target), zap.Int("first_row", first))
			return result
		}
		seen[target] = result.Row
	}

	if r.dryRun && mutates {
		result.Status = StatusSkipped
		result.Detail = "dry run"
		logger.Info("dry run, would apply", zap.String("target", target))
		return result
	}

	outcome, err := r.action.Apply(ctx, row, target)
	if err != nil {
		return fail(err)
	}

	result.Status = outcome.Status
	result.Detail = outcome.Detail

	logger.Info("row done",
		zap.String("target", target),
		zap.String("status", string(result.Status)),
		zap.String("detail", result.Detail))

	return result
}

func (r *Runner) label(row roster.Row) string {
	if v, ok := row.Get(r.labelColumn); ok && v != "" {
		return v
	}
	return fmt.Sprintf("row %d", row.Number())
}
