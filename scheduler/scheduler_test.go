package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mohitkumar/conveyor/graph"
	"github.com/mohitkumar/conveyor/model"
	"github.com/stretchr/testify/require"
)

// fakeRunner completes jobs with scripted results. Jobs listed in block
// hold their slot until the matching channel closes or the run context is
// cancelled.
type fakeRunner struct {
	mu       sync.Mutex
	started  []string
	outcomes map[string]model.JobState
	reasons  map[string]string
	block    map[string]chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outcomes: make(map[string]model.JobState),
		reasons:  make(map[string]string),
		block:    make(map[string]chan struct{}),
	}
}

func (f *fakeRunner) ExecuteJob(ctx context.Context, job *model.JobInstance, progress chan<- model.StepResult, release func()) model.JobResult {
	defer release()
	f.mu.Lock()
	f.started = append(f.started, job.Name)
	state, scripted := f.outcomes[job.Name]
	reason := f.reasons[job.Name]
	blocker := f.block[job.Name]
	f.mu.Unlock()
	if !scripted {
		state = model.JOB_SUCCEEDED
	}
	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return model.JobResult{JobName: job.Name, State: model.JOB_CANCELLED, Reason: "cancelled"}
		}
	}
	return model.JobResult{JobName: job.Name, State: state, Reason: reason}
}

func (f *fakeRunner) startedJobs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.started))
	copy(out, f.started)
	return out
}

func buildGraph(t *testing.T, jobs []model.JobDef) *graph.JobGraph {
	t.Helper()
	g, err := graph.Build(&model.WorkflowDefinition{Name: "wf", Jobs: jobs})
	require.NoError(t, err)
	return g
}

func jobDef(name string, needs ...string) model.JobDef {
	return model.JobDef{
		Name:  name,
		Needs: needs,
		Steps: []model.StepDef{{Name: "run", Kind: "shell", With: map[string]string{"command": "true"}}},
	}
}

func awaitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not drain")
	}
}

func awaitWorkers(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain")
	}
}

func reportByName(t *testing.T, reports []model.JobReport, name string) model.JobReport {
	t.Helper()
	for _, report := range reports {
		if report.Name == name {
			return report
		}
	}
	t.Fatalf("no report for job %s", name)
	return model.JobReport{}
}

func TestSchedulerChainRunsInOrder(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("build"),
		jobDef("test", "build"),
		jobDef("publish", "test"),
	})
	fake := newFakeRunner()
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(2, 0), fake, 0, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	require.Equal(t, []string{"build", "test", "publish"}, fake.startedJobs())
	state, reports := s.Result()
	require.Equal(t, model.RUN_SUCCEEDED, state)
	for _, name := range []string{"build", "test", "publish"} {
		require.Equal(t, model.JOB_SUCCEEDED, reportByName(t, reports, name).State)
	}
}

func TestSchedulerDiamondRunsParallelBranches(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("build"),
		jobDef("test", "build"),
		jobDef("lint", "build"),
		jobDef("publish", "test", "lint"),
	})
	fake := newFakeRunner()
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(4, 0), fake, 0, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	order := fake.startedJobs()
	require.Len(t, order, 4)
	require.Equal(t, "build", order[0])
	require.Equal(t, "publish", order[3])
	state, _ := s.Result()
	require.Equal(t, model.RUN_SUCCEEDED, state)
}

func TestSchedulerFailureSkipsDependents(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("build"),
		jobDef("test", "build"),
		jobDef("publish", "test"),
	})
	fake := newFakeRunner()
	fake.outcomes["build"] = model.JOB_FAILED
	fake.reasons["build"] = "step compile failed"
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(2, 0), fake, 0, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	require.Equal(t, []string{"build"}, fake.startedJobs())
	state, reports := s.Result()
	require.Equal(t, model.RUN_FAILED, state)

	testReport := reportByName(t, reports, "test")
	require.Equal(t, model.JOB_SKIPPED, testReport.State)
	require.Contains(t, testReport.Reason, "build")
	require.Contains(t, testReport.Reason, "FAILED")
	require.Equal(t, model.STEP_SKIPPED, testReport.Steps[0].State)

	publishReport := reportByName(t, reports, "publish")
	require.Equal(t, model.JOB_SKIPPED, publishReport.State)
	require.Contains(t, publishReport.Reason, "test")
}

func TestSchedulerSkippedDependencySkipsDownstream(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("build"),
		jobDef("test", "build"),
		jobDef("publish", "test"),
	})
	fake := newFakeRunner()
	fake.outcomes["test"] = model.JOB_SKIPPED
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(2, 0), fake, 0, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	state, reports := s.Result()
	require.Equal(t, model.RUN_SUCCEEDED, state)
	require.Equal(t, model.JOB_SKIPPED, reportByName(t, reports, "publish").State)
}

func TestSchedulerInsertionOrderTieBreak(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("first"),
		jobDef("second"),
		jobDef("third"),
	})
	fake := newFakeRunner()
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(4, 0), fake, 1, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	require.Equal(t, []string{"first", "second", "third"}, fake.startedJobs())
}

func TestSchedulerCancellationMidRun(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("long"),
		jobDef("after", "long"),
	})
	fake := newFakeRunner()
	fake.block["long"] = make(chan struct{})
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(2, 0), fake, 0, &wg)
	s.Start()

	require.Eventually(t, func() bool {
		return len(fake.startedJobs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snapshot := s.Snapshot()
	require.Equal(t, model.JOB_BLOCKED, reportByName(t, snapshot, "after").State)

	s.Cancel()
	awaitDone(t, s)
	awaitWorkers(t, &wg)

	state, reports := s.Result()
	require.Equal(t, model.RUN_CANCELLED, state)
	require.Equal(t, model.JOB_CANCELLED, reportByName(t, reports, "long").State)

	afterReport := reportByName(t, reports, "after")
	require.Equal(t, model.JOB_SKIPPED, afterReport.State)
	require.Equal(t, "cancelled", afterReport.Reason)
}

func TestSchedulerSlotTimeoutFailsJob(t *testing.T) {
	g := buildGraph(t, []model.JobDef{jobDef("starved")})
	fake := newFakeRunner()
	pool := NewSlotPool(1, 50*time.Millisecond)
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, pool, fake, 0, &wg)
	s.Start()
	awaitDone(t, s)
	awaitWorkers(t, &wg)
	pool.Release(held)

	require.Empty(t, fake.startedJobs())
	state, reports := s.Result()
	require.Equal(t, model.RUN_FAILED, state)
	starved := reportByName(t, reports, "starved")
	require.Equal(t, model.JOB_FAILED, starved.State)
	require.Equal(t, model.REASON_SLOT_TIMEOUT, starved.Reason)
}

func TestSchedulerSnapshotWhileRunning(t *testing.T) {
	g := buildGraph(t, []model.JobDef{
		jobDef("long"),
		jobDef("after", "long"),
	})
	fake := newFakeRunner()
	blocker := make(chan struct{})
	fake.block["long"] = blocker
	var wg sync.WaitGroup
	s := New(context.Background(), "wf", "run-1", g, NewSlotPool(1, 0), fake, 0, &wg)
	s.Start()

	require.Eventually(t, func() bool {
		snapshot := s.Snapshot()
		return reportByName(t, snapshot, "long").State == model.JOB_RUNNING
	}, 2*time.Second, 10*time.Millisecond)

	close(blocker)
	awaitDone(t, s)
	awaitWorkers(t, &wg)
	state, _ := s.Result()
	require.Equal(t, model.RUN_SUCCEEDED, state)
}
