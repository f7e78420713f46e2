package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apiarycd/glroster/internal/actions"
	"github.com/apiarycd/glroster/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func summary() actions.Summary {
	started := time.Date(2020, time.January, 20, 12, 0, 0, 0, time.UTC)
	return actions.Summary{
		RunID:    "0b6d6c1e",
		Action:   actions.NameUnprotect,
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Results: []actions.Result{
			{Row: 1, Label: "alice", Target: "students/alice", Status: actions.StatusOK, Detail: "unprotected main"},
			{Row: 2, Label: "bob", Target: "students/bob", Status: actions.StatusFailed, Detail: "not found", Err: errors.New("not found")},
			{Row: 3, Label: "carol", Target: "students/carol", Status: actions.StatusSkipped, Detail: "dry run"},
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	report.WriteTable(&buf, summary())

	out := buf.String()
	for _, want := range []string{"Target", "students/alice", "unprotected main", "failed", "carol"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "unprotect: 1 ok, 1 skipped, 1 failed in 1.5s\n")
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glroster.prom")

	require.NoError(t, report.WriteMetrics(path, summary()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `glroster_rows{action="unprotect",status="failed"} 1`)
	assert.Contains(t, out, `glroster_rows{action="unprotect",status="ok"} 1`)
	assert.Contains(t, out, `glroster_run_duration_seconds{action="unprotect"} 1.5`)
	assert.Contains(t, out, `glroster_last_run_timestamp_seconds{action="unprotect",run_id="0b6d6c1e"}`)
}

func TestService_Report(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "glroster.prom")

	svc := report.NewService(report.Params{
		Config: report.Config{MetricsFile: path},
		Logger: zaptest.NewLogger(t),
		Output: &buf,
	})
	svc.Report(summary())

	assert.Contains(t, buf.String(), "students/bob")
	assert.FileExists(t, path)

	// Metrics are best effort.
	svc = report.NewService(report.Params{
		Config: report.Config{MetricsFile: filepath.Join(t.TempDir(), "missing", "dir", "x.prom")},
		Logger: zaptest.NewLogger(t),
		Output: &buf,
	})
	assert.NotPanics(t, func() { svc.Report(summary()) })
}
