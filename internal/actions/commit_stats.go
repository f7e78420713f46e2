package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/apiarycd/glroster/internal/roster"
	"go.uber.org/zap"
)

type lineStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

type commitStat struct {
	Parents     []string  `json:"parents"`
	Subject     string    `json:"subject"`
	LineStats   lineStats `json:"line_stats"`
	AuthorEmail string    `json:"author_email"`
	AuthorDate  string    `json:"author_date"`
}

type projectStats struct {
	Project string                `json:"project"`
	Commits map[string]commitStat `json:"commits"`
}

// commitStats dumps per-commit line statistics of every project as JSON.
type commitStats struct {
	projectAction

	branch branchTemplate
	stats  []projectStats

	host Host
	out  *sink

	logger *zap.Logger
}

func newCommitStats(req Request, host Host, out Output, logger *zap.Logger) (*commitStats, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	return &commitStats{
		projectAction: base,

		branch: branch,
		stats:  []projectStats{},

		host: host,
		out:  newSink(req.Output, out),

		logger: logger,
	}, nil
}

func (a *commitStats) Name() string        { return NameCommitStats }
func (a *commitStats) ProjectScoped() bool { return true }

func (a *commitStats) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.expand(row)
	if err != nil {
		return Outcome{}, err
	}

	commits, err := a.host.ListCommits(ctx, project, branch, time.Time{})
	if err != nil {
		return Outcome{}, err
	}

	stats := projectStats{Project: project.Path, Commits: make(map[string]commitStat, len(commits))}
	for _, c := range commits {
		details, err := a.host.CommitDetails(ctx, project, c.ID)
		if err != nil {
			return Outcome{}, err
		}

		stats.Commits[details.ID] = commitStat{
			Parents:     details.ParentIDs,
			Subject:     details.Title,
			LineStats:   lineStats{Additions: details.Additions, Deletions: details.Deletions, Total: details.Total},
			AuthorEmail: details.AuthorEmail,
			AuthorDate:  details.AuthoredDate.Format(time.RFC3339),
		}
	}

	a.stats = append(a.stats, stats)

	a.logger.Debug("commit statistics collected",
		zap.String("target", target),
		zap.Int("commits", len(commits)))

	return ok(fmt.Sprintf("%d commits", len(commits))), nil
}

func (a *commitStats) Finish() error {
	if err := a.out.writeJSON(a.stats); err != nil {
		return err
	}
	return a.out.close()
}
