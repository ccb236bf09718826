package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohitkumar/conveyor/analytics"
	"github.com/mohitkumar/conveyor/graph"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"go.uber.org/zap"
)

// JobRunner executes one job to a terminal result. Implementations post
// per step progress to the progress sink and must invoke release on every
// exit path, the leased slot is not reusable until they do.
type JobRunner interface {
	ExecuteJob(ctx context.Context, job *model.JobInstance, progress chan<- model.StepResult, release func()) model.JobResult
}

// Scheduler drives the job graph of one run. It is the sole consumer of
// completion events and the sole mutator of job state, every transition
// happens on its loop goroutine. Job workers only post events.
type Scheduler struct {
	wfName      string
	runId       string
	graph       *graph.JobGraph
	pool        *SlotPool
	runner      JobRunner
	maxParallel int

	ctx    context.Context
	cancel context.CancelFunc

	startedChannel    chan string
	stepChannel       chan model.StepResult
	completionChannel chan model.JobResult
	cancelChannel     chan struct{}
	snapshotChannel   chan chan []model.JobReport
	done              chan struct{}

	wg         *sync.WaitGroup
	reports    []model.JobReport
	dispatched map[int]bool
	cancelled  bool
}

// New prepares a scheduler for one run. maxParallel bounds concurrently
// dispatched jobs, zero means bounded by slots only.
func New(parent context.Context, wfName string, runId string, g *graph.JobGraph, pool *SlotPool, runner JobRunner, maxParallel int, wg *sync.WaitGroup) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	totalSteps := 0
	for i := 0; i < g.Len(); i++ {
		totalSteps += len(g.Job(i).Steps)
	}
	return &Scheduler{
		wfName:            wfName,
		runId:             runId,
		graph:             g,
		pool:              pool,
		runner:            runner,
		maxParallel:       maxParallel,
		ctx:               ctx,
		cancel:            cancel,
		startedChannel:    make(chan string, g.Len()),
		stepChannel:       make(chan model.StepResult, 2*totalSteps+g.Len()),
		completionChannel: make(chan model.JobResult, g.Len()),
		cancelChannel:     make(chan struct{}, 1),
		snapshotChannel:   make(chan chan []model.JobReport),
		done:              make(chan struct{}),
		wg:                wg,
		reports:           g.Reports(),
		dispatched:        make(map[int]bool),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Done is closed once every job is terminal and every worker has reported
// back. The run is never reported complete before the loop drains.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Cancel requests cooperative cancellation. Running jobs receive a stop
// signal through their context, jobs that never started are skipped and no
// further jobs are dispatched.
func (s *Scheduler) Cancel() {
	select {
	case s.cancelChannel <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current job reports, served by the loop
// goroutine while the run is live and from the final state afterwards.
func (s *Scheduler) Snapshot() []model.JobReport {
	respChannel := make(chan []model.JobReport, 1)
	select {
	case s.snapshotChannel <- respChannel:
		return <-respChannel
	case <-s.done:
		return s.copyReports()
	}
}

// Result aggregates the run outcome. Valid only after Done is closed.
func (s *Scheduler) Result() (model.RunState, []model.JobReport) {
	if s.cancelled {
		return model.RUN_CANCELLED, s.copyReports()
	}
	for i := 0; i < s.graph.Len(); i++ {
		if s.graph.Job(i).State == model.JOB_FAILED {
			return model.RUN_FAILED, s.copyReports()
		}
	}
	return model.RUN_SUCCEEDED, s.copyReports()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	defer close(s.done)
	defer s.cancel()
	s.dispatchReady()
	ctxDone := s.ctx.Done()
	for {
		if s.isDrained() {
			return
		}
		select {
		case jobName := <-s.startedChannel:
			s.markRunning(jobName)
		case stepResult := <-s.stepChannel:
			s.applyStepResult(stepResult)
		case result := <-s.completionChannel:
			s.applyResult(result)
		case <-s.cancelChannel:
			s.handleCancel()
			ctxDone = nil
		case <-ctxDone:
			s.handleCancel()
			ctxDone = nil
		case respChannel := <-s.snapshotChannel:
			respChannel <- s.copyReports()
		}
	}
}

// dispatchReady hands ready jobs to workers in declaration order, the tie
// break among jobs that became ready together.
func (s *Scheduler) dispatchReady() {
	for i := 0; i < s.graph.Len(); i++ {
		if s.maxParallel > 0 && len(s.dispatched) >= s.maxParallel {
			return
		}
		job := s.graph.Job(i)
		if job.State != model.JOB_READY || s.dispatched[i] {
			continue
		}
		s.dispatched[i] = true
		s.runJob(job)
	}
}

func (s *Scheduler) runJob(job *model.JobInstance) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		slot, err := s.pool.Acquire(s.ctx)
		if err != nil {
			s.completionChannel <- s.acquireFailure(job.Name, err)
			return
		}
		s.startedChannel <- job.Name
		s.completionChannel <- s.runner.ExecuteJob(s.ctx, job, s.stepChannel, func() { s.pool.Release(slot) })
	}()
}

func (s *Scheduler) acquireFailure(jobName string, err error) model.JobResult {
	var timeout SlotTimeoutError
	if errors.As(err, &timeout) {
		logger.Error("no execution slot for job", zap.String("workflow", s.wfName), zap.String("runId", s.runId), zap.String("job", jobName), zap.Error(err))
		return model.JobResult{JobName: jobName, State: model.JOB_FAILED, Reason: model.REASON_SLOT_TIMEOUT}
	}
	return model.JobResult{JobName: jobName, State: model.JOB_CANCELLED, Reason: "cancelled"}
}

func (s *Scheduler) markRunning(jobName string) {
	idx, ok := s.graph.IndexOf(jobName)
	if !ok {
		return
	}
	job := s.graph.Job(idx)
	if job.State != model.JOB_READY {
		return
	}
	job.State = model.JOB_RUNNING
	job.StartedAt = time.Now()
	s.reports[idx].State = model.JOB_RUNNING
	logger.Info("job running", zap.String("workflow", s.wfName), zap.String("runId", s.runId), zap.String("job", jobName))
}

func (s *Scheduler) applyStepResult(result model.StepResult) {
	idx, ok := s.graph.IndexOf(result.JobName)
	if !ok || result.StepIndex < 0 || result.StepIndex >= len(s.reports[idx].Steps) {
		return
	}
	// A completion event may be consumed before step events still queued
	// behind it. Terminal step events stay valid, only a stale RUNNING
	// event must not overwrite the finished report.
	if s.graph.Job(idx).State.IsTerminal() && result.Report.State == model.STEP_RUNNING {
		return
	}
	s.reports[idx].Steps[result.StepIndex] = result.Report
	if result.Report.State != model.STEP_RUNNING {
		analytics.RecordStepResult(s.wfName, s.runId, result.JobName, result.Report)
		analytics.RecordStepCompleted(s.wfName, string(result.Report.State))
	}
}

func (s *Scheduler) applyResult(result model.JobResult) {
	idx, ok := s.graph.IndexOf(result.JobName)
	if !ok {
		return
	}
	delete(s.dispatched, idx)
	job := s.graph.Job(idx)
	if !job.State.IsTerminal() {
		job.State = result.State
		job.Reason = result.Reason
		job.FinishedAt = time.Now()
		report := job.Report()
		s.reports[idx] = report
		logger.Info("job finished", zap.String("workflow", s.wfName), zap.String("runId", s.runId), zap.String("job", job.Name), zap.String("state", string(job.State)), zap.String("reason", job.Reason))
		analytics.RecordJobResult(s.wfName, s.runId, report)
		analytics.RecordJobCompleted(s.wfName, string(job.State))
		if !s.cancelled {
			s.resolveBlocked()
		}
	}
	if !s.cancelled {
		s.dispatchReady()
	}
}

// resolveBlocked re-evaluates every blocked job after a completion. A job
// whose dependencies all succeeded becomes ready, a job with a failed,
// skipped or cancelled dependency is skipped. Skips cascade until the set
// is stable.
func (s *Scheduler) resolveBlocked() {
	for changed := true; changed; {
		changed = false
		for i := 0; i < s.graph.Len(); i++ {
			job := s.graph.Job(i)
			if job.State != model.JOB_BLOCKED {
				continue
			}
			allSucceeded := true
			var skipReason string
			for _, depIdx := range s.graph.Dependencies(i) {
				dep := s.graph.Job(depIdx)
				if dep.State == model.JOB_SUCCEEDED {
					continue
				}
				allSucceeded = false
				if dep.State.IsTerminal() {
					skipReason = fmt.Sprintf("dependency %s ended %s", dep.Name, dep.State)
					break
				}
			}
			if skipReason != "" {
				s.skipJob(i, skipReason)
				changed = true
			} else if allSucceeded {
				job.State = model.JOB_READY
				s.reports[i].State = model.JOB_READY
				changed = true
			}
		}
	}
}

func (s *Scheduler) skipJob(idx int, reason string) {
	job := s.graph.Job(idx)
	job.State = model.JOB_SKIPPED
	job.Reason = reason
	job.FinishedAt = time.Now()
	report := &s.reports[idx]
	report.State = model.JOB_SKIPPED
	report.Reason = reason
	for i := range report.Steps {
		if report.Steps[i].State == model.STEP_PENDING {
			report.Steps[i].State = model.STEP_SKIPPED
		}
	}
	logger.Info("job skipped", zap.String("workflow", s.wfName), zap.String("runId", s.runId), zap.String("job", job.Name), zap.String("reason", reason))
	analytics.RecordJobResult(s.wfName, s.runId, *report)
	analytics.RecordJobCompleted(s.wfName, string(model.JOB_SKIPPED))
}

func (s *Scheduler) handleCancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.cancel()
	logger.Info("cancelling run", zap.String("workflow", s.wfName), zap.String("runId", s.runId))
	for i := 0; i < s.graph.Len(); i++ {
		job := s.graph.Job(i)
		if job.State == model.JOB_BLOCKED || job.State == model.JOB_READY {
			s.skipJob(i, "cancelled")
		}
	}
}

func (s *Scheduler) isDrained() bool {
	if len(s.dispatched) > 0 {
		return false
	}
	for i := 0; i < s.graph.Len(); i++ {
		if !s.graph.Job(i).State.IsTerminal() {
			return false
		}
	}
	return true
}

func (s *Scheduler) copyReports() []model.JobReport {
	reports := make([]model.JobReport, len(s.reports))
	copy(reports, s.reports)
	for i := range reports {
		steps := make([]model.StepReport, len(reports[i].Steps))
		copy(steps, reports[i].Steps)
		reports[i].Steps = steps
	}
	return reports
}
