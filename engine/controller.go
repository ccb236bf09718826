package engine

import (
	"sync"
	"time"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/scheduler"
)

// runController owns a single run from dispatch to archive. The
// scheduler owns job state while the run is live, the controller only
// tracks the run level record around it.
type runController struct {
	mu    sync.Mutex
	run   model.Run
	sched *scheduler.Scheduler
}

func newRunController(run model.Run, sched *scheduler.Scheduler) *runController {
	return &runController{
		run:   run,
		sched: sched,
	}
}

func (c *runController) markRunning() {
	c.mu.Lock()
	c.run.State = model.RUN_RUNNING
	c.run.StartedAt = time.Now()
	c.mu.Unlock()
}

func (c *runController) finish(state model.RunState) {
	c.mu.Lock()
	c.run.State = state
	c.run.FinishedAt = time.Now()
	c.mu.Unlock()
}

func (c *runController) runSnapshot() model.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

// report assembles the externally visible view of the run. For a live
// run the job section is the scheduler's current snapshot.
func (c *runController) report(jobs []model.JobReport) model.RunReport {
	run := c.runSnapshot()
	return model.RunReport{
		RunId:        run.Id,
		WorkflowName: run.WorkflowName,
		Event:        run.Event,
		State:        run.State,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Jobs:         jobs,
	}
}

func (c *runController) liveReport() model.RunReport {
	return c.report(c.sched.Snapshot())
}
