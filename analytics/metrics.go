package analytics

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	runsStarted    = stats.Int64("conveyor/runs_started", "Number of runs started.", stats.UnitDimensionless)
	runsCompleted  = stats.Int64("conveyor/runs_completed", "Number of runs reaching a terminal state.", stats.UnitDimensionless)
	jobsCompleted  = stats.Int64("conveyor/jobs_completed", "Number of jobs reaching a terminal state.", stats.UnitDimensionless)
	stepsCompleted = stats.Int64("conveyor/steps_completed", "Number of steps reaching a terminal state.", stats.UnitDimensionless)
	activeRuns     = stats.Int64("conveyor/active_runs", "Number of runs currently executing.", stats.UnitDimensionless)
)

var (
	workflowKey = tag.MustNewKey("workflow")
	stateKey    = tag.MustNewKey("state")
)

func MetricViews() []*view.View {
	return []*view.View{
		{
			Name:        "conveyor/runs_started",
			Description: "Number of runs started.",
			Measure:     runsStarted,
			TagKeys:     []tag.Key{workflowKey},
			Aggregation: view.Count(),
		},
		{
			Name:        "conveyor/runs_completed",
			Description: "Number of runs reaching a terminal state.",
			Measure:     runsCompleted,
			TagKeys:     []tag.Key{workflowKey, stateKey},
			Aggregation: view.Count(),
		},
		{
			Name:        "conveyor/jobs_completed",
			Description: "Number of jobs reaching a terminal state.",
			Measure:     jobsCompleted,
			TagKeys:     []tag.Key{workflowKey, stateKey},
			Aggregation: view.Count(),
		},
		{
			Name:        "conveyor/steps_completed",
			Description: "Number of steps reaching a terminal state.",
			Measure:     stepsCompleted,
			TagKeys:     []tag.Key{workflowKey, stateKey},
			Aggregation: view.Count(),
		},
		{
			Name:        "conveyor/active_runs",
			Description: "Number of runs currently executing.",
			Measure:     activeRuns,
			Aggregation: view.LastValue(),
		},
	}
}

func RegisterMetricViews() error {
	return view.Register(MetricViews()...)
}

func RecordRunStarted(wfName string) {
	stats.RecordWithTags(context.Background(),
		[]tag.Mutator{tag.Upsert(workflowKey, wfName)}, runsStarted.M(1))
}

func RecordRunCompleted(wfName string, state string) {
	stats.RecordWithTags(context.Background(),
		[]tag.Mutator{tag.Upsert(workflowKey, wfName), tag.Upsert(stateKey, state)}, runsCompleted.M(1))
}

func RecordJobCompleted(wfName string, state string) {
	stats.RecordWithTags(context.Background(),
		[]tag.Mutator{tag.Upsert(workflowKey, wfName), tag.Upsert(stateKey, state)}, jobsCompleted.M(1))
}

func RecordStepCompleted(wfName string, state string) {
	stats.RecordWithTags(context.Background(),
		[]tag.Mutator{tag.Upsert(workflowKey, wfName), tag.Upsert(stateKey, state)}, stepsCompleted.M(1))
}

func RecordActiveRuns(count int64) {
	stats.Record(context.Background(), activeRuns.M(count))
}
