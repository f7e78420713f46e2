package actions

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"github.com/samber/lo"
)

const pipelineNone = "none"

type jobReport struct {
	Status string `json:"status"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
}

type pipelineReport struct {
	Status string      `json:"status"`
	ID     int         `json:"id,omitempty"`
	Commit string      `json:"commit,omitempty"`
	Jobs   []jobReport `json:"jobs,omitempty"`
}

// pipelineReports collects one pipeline per project and writes them as a
// JSON object keyed by project path, or as a status histogram.
type pipelineReports struct {
	summaryOnly bool
	reports     map[string]pipelineReport

	host Host
	out  *sink
}

func newPipelineReports(req Request, host Host, out Output) pipelineReports {
	return pipelineReports{
		summaryOnly: req.SummaryOnly,
		reports:     map[string]pipelineReport{},

		host: host,
		out:  newSink(req.Output, out),
	}
}

// record stores pipeline for project, fetching its jobs. A nil pipeline is
// recorded as status none.
func (r pipelineReports) record(ctx context.Context, project *gitlab.Project, pipeline *gitlab.Pipeline) (Outcome, error) {
	if pipeline == nil {
		r.reports[project.Path] = pipelineReport{Status: pipelineNone}
		return skipped("no pipeline"), nil
	}

	report := pipelineReport{Status: pipeline.Status, ID: pipeline.ID, Commit: pipeline.SHA}

	if !r.summaryOnly {
		withJobs, err := r.host.PipelineJobs(ctx, project, *pipeline)
		if err != nil {
			return Outcome{}, err
		}
		report.Jobs = lo.Map(withJobs.Jobs, func(j gitlab.Job, _ int) jobReport {
			return jobReport{Status: j.Status, ID: j.ID, Name: j.Name}
		})
	}

	r.reports[project.Path] = report

	return ok(fmt.Sprintf("%s #%d", pipeline.Status, pipeline.ID)), nil
}

func (r pipelineReports) Finish() error {
	var err error
	if r.summaryOnly {
		err = r.writeSummary()
	} else {
		err = r.out.writeJSON(r.reports)
	}
	if err != nil {
		return err
	}

	return r.out.close()
}

// writeSummary prints "status: count (percent%)" lines, most common first.
func (r pipelineReports) writeSummary() error {
	counts := lo.CountValuesBy(lo.Values(r.reports), func(p pipelineReport) string { return p.Status })

	statuses := lo.Keys(counts)
	slices.SortFunc(statuses, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	total := len(r.reports)
	for _, status := range statuses {
		line := fmt.Sprintf("%s: %d (%.0f%%)", status, counts[status], 100*float64(counts[status])/float64(total))
		if err := r.out.writeLine(line); err != nil {
			return err
		}
	}

	return r.out.writeLine(fmt.Sprintf("total: %d", total))
}

// lastPipeline reports the newest pipeline of every project.
type lastPipeline struct {
	projectAction
	pipelineReports
}

func newLastPipeline(req Request, host Host, out Output) (*lastPipeline, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	return &lastPipeline{projectAction: base, pipelineReports: newPipelineReports(req, host, out)}, nil
}

func (a *lastPipeline) Name() string        { return NameGetLastPipeline }
func (a *lastPipeline) ProjectScoped() bool { return true }

func (a *lastPipeline) Apply(ctx context.Context, _ roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	pipelines, err := a.host.Pipelines(ctx, project)
	if err != nil {
		return Outcome{}, err
	}

	if len(pipelines) == 0 {
		return a.record(ctx, project, nil)
	}

	return a.record(ctx, project, &pipelines[0])
}

// pipelineAtCommit reports the pipeline that ran for a given commit. When
// that pipeline was skipped the next older one that was not is used.
type pipelineAtCommit struct {
	projectAction
	pipelineReports

	commit *template.Template
}

func newPipelineAtCommit(req Request, host Host, out Output) (*pipelineAtCommit, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	commit, err := parseTemplate("commit", req.Commit)
	if err != nil {
		return nil, err
	}

	return &pipelineAtCommit{
		projectAction:   base,
		pipelineReports: newPipelineReports(req, host, out),
		commit:          commit,
	}, nil
}

func (a *pipelineAtCommit) Name() string        { return NameGetPipelineAtCommit }
func (a *pipelineAtCommit) ProjectScoped() bool { return true }

func (a *pipelineAtCommit) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	sha, err := a.commit.Expand(row, nil)
	if err != nil {
		return Outcome{}, err
	}

	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	pipelines, err := a.host.Pipelines(ctx, project)
	if err != nil {
		return Outcome{}, err
	}

	return a.record(ctx, project, pipelineFrom(pipelines, sha))
}

// pipelineFrom walks pipelines newest first, starting at the first one run
// for sha, and returns the first that was not skipped.
func pipelineFrom(pipelines []gitlab.Pipeline, sha string) *gitlab.Pipeline {
	start := slices.IndexFunc(pipelines, func(p gitlab.Pipeline) bool { return p.SHA == sha })
	if start < 0 {
		return nil
	}

	for i := start; i < len(pipelines); i++ {
		if pipelines[i].Status != "skipped" {
			return &pipelines[i]
		}
	}

	return nil
}
