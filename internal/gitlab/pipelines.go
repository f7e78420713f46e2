package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// Pipelines returns the project's pipelines, newest first, without jobs.
// The listing stops after CommitsMaxPages pages.
func (s *Service) Pipelines(ctx context.Context, project *Project) ([]Pipeline, error) {
	opts := &gl.ListProjectPipelinesOptions{
		ListOptions: gl.ListOptions{Page: 1, PerPage: s.config.CommitsPageSize},
		OrderBy:     gl.Ptr("id"),
		Sort:        gl.Ptr("desc"),
	}

	var pipelines []Pipeline
	for pages := 0; s.config.CommitsMaxPages <= 0 || pages < s.config.CommitsMaxPages; pages++ {
		page, resp, err := s.client.Pipelines.ListProjectPipelines(project.ID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, apiError("list pipelines of "+project.Path, resp, err)
		}

		for _, p := range page {
			pipelines = append(pipelines, Pipeline{ID: p.ID, Status: p.Status, SHA: p.SHA})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return pipelines, nil
}

// PipelineJobs fills in the jobs of pipeline.
func (s *Service) PipelineJobs(ctx context.Context, project *Project, pipeline Pipeline) (Pipeline, error) {
	opts := &gl.ListJobsOptions{
		ListOptions: gl.ListOptions{Page: 1, PerPage: s.config.CommitsPageSize},
	}

	pipeline.Jobs = []Job{}
	for {
		page, resp, err := s.client.Jobs.ListPipelineJobs(project.ID, pipeline.ID, opts, gl.WithContext(ctx))
		if err != nil {
			return Pipeline{}, apiError(fmt.Sprintf("list jobs of pipeline %d in %s", pipeline.ID, project.Path), resp, err)
		}

		for _, j := range page {
			pipeline.Jobs = append(pipeline.Jobs, Job{ID: j.ID, Name: j.Name, Status: j.Status})
		}

		if resp.NextPage == 0 {
			return pipeline, nil
		}
		opts.Page = resp.NextPage
	}
}
