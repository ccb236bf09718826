package inmem

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/stretchr/testify/require"
)

func sampleReport(runId string) model.RunReport {
	return model.RunReport{
		RunId:        runId,
		WorkflowName: "ci",
		State:        model.RUN_SUCCEEDED,
		Jobs: []model.JobReport{
			{Name: "build", State: model.JOB_SUCCEEDED, Steps: []model.StepReport{{Name: "compile", Kind: "shell", State: model.STEP_SUCCEEDED}}},
		},
	}
}

func TestRunArchiveSaveAndGet(t *testing.T) {
	archive := NewInMemoryRunArchive(0)
	require.NoError(t, archive.SaveRunReport(sampleReport("run-1")))

	report, err := archive.GetRunReport("run-1")
	require.NoError(t, err)
	require.Equal(t, model.RUN_SUCCEEDED, report.State)
	require.Len(t, report.Jobs, 1)
}

func TestRunArchiveGetMissing(t *testing.T) {
	archive := NewInMemoryRunArchive(0)
	_, err := archive.GetRunReport("missing")
	var notFound persistence.NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "run", notFound.Kind)
}

func TestRunArchiveRecentOrdering(t *testing.T) {
	archive := NewInMemoryRunArchive(0)
	for i := 1; i <= 3; i++ {
		require.NoError(t, archive.SaveRunReport(sampleReport(fmt.Sprintf("run-%d", i))))
	}

	recent, err := archive.GetRecentRunReports(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "run-3", recent[0].RunId)
	require.Equal(t, "run-2", recent[1].RunId)

	all, err := archive.GetRecentRunReports(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestRunArchiveRetentionExpiry(t *testing.T) {
	archive := NewInMemoryRunArchive(30 * time.Millisecond)
	require.NoError(t, archive.SaveRunReport(sampleReport("run-1")))
	time.Sleep(60 * time.Millisecond)

	_, err := archive.GetRunReport("run-1")
	var notFound persistence.NotFoundError
	require.True(t, errors.As(err, &notFound))

	recent, err := archive.GetRecentRunReports(10)
	require.NoError(t, err)
	require.Empty(t, recent)
}
