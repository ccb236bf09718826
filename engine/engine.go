package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/conveyor/analytics"
	"github.com/mohitkumar/conveyor/executor"
	"github.com/mohitkumar/conveyor/graph"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/metadata"
	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/scheduler"
	"github.com/mohitkumar/conveyor/secret"
	"github.com/mohitkumar/conveyor/trigger"
	"github.com/mohitkumar/conveyor/util"
	"go.uber.org/zap"
)

const activeRunsGaugeInterval = 10 * time.Second

// Engine turns accepted events into runs and supervises every run
// until its report lands in the archive.
type Engine struct {
	metadataService metadata.MetadataService
	archive         persistence.RunArchive
	pool            *scheduler.SlotPool
	registry        *executor.Registry
	secrets         secret.Provider
	maxParallelJobs int

	// runWg tracks scheduler loops, job workers and run supervisors.
	// Stop waits on it so every live run is archived before the agent
	// tears down the collector behind them.
	runWg sync.WaitGroup

	mu      sync.Mutex
	active  map[string]*runController
	stopped bool

	gaugeWorker *util.TickWorker
}

func NewEngine(metadataService metadata.MetadataService, archive persistence.RunArchive,
	pool *scheduler.SlotPool, registry *executor.Registry, secrets secret.Provider,
	maxParallelJobs int, wg *sync.WaitGroup) *Engine {
	e := &Engine{
		metadataService: metadataService,
		archive:         archive,
		pool:            pool,
		registry:        registry,
		secrets:         secrets,
		maxParallelJobs: maxParallelJobs,
		active:          make(map[string]*runController),
	}
	e.gaugeWorker = util.NewTickWorker("active-runs-gauge", activeRunsGaugeInterval, e.emitActiveRuns, wg)
	return e
}

func (e *Engine) Start() {
	e.gaugeWorker.Start()
}

// Stop cancels every live run and blocks until each one has drained
// and its report is archived.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	controllers := make([]*runController, 0, len(e.active))
	for _, ctrl := range e.active {
		controllers = append(controllers, ctrl)
	}
	e.mu.Unlock()
	for _, ctrl := range controllers {
		ctrl.sched.Cancel()
	}
	e.runWg.Wait()
	e.gaugeWorker.Stop()
}

// OnEvent checks the event against every stored workflow definition
// and starts a run for each accepting one. Returns the started run ids.
func (e *Engine) OnEvent(event model.Event) ([]string, error) {
	if len(event.Kind) == 0 {
		return nil, fmt.Errorf("event kind is empty")
	}
	if len(event.Id) == 0 {
		event.Id = uuid.New().String()
	}
	workflows, err := e.metadataService.GetAllWorkflows()
	if err != nil {
		return nil, err
	}
	started := make([]string, 0)
	for _, wf := range workflows {
		decision := trigger.Evaluate(wf.On, event)
		if !decision.Accepted {
			logger.Debug("event rejected by workflow triggers",
				zap.String("workflow", wf.Name),
				zap.String("kind", event.Kind),
				zap.String("reason", decision.Reason))
			continue
		}
		runId, err := e.StartRun(wf, event)
		if err != nil {
			logger.Error("error starting run for event",
				zap.String("workflow", wf.Name),
				zap.String("eventId", event.Id), zap.Error(err))
			continue
		}
		started = append(started, runId)
	}
	return started, nil
}

// StartRun builds the job graph and hands the run to a scheduler. A
// definition error means the run never starts.
func (e *Engine) StartRun(wf model.WorkflowDefinition, event model.Event) (string, error) {
	g, err := graph.Build(&wf)
	if err != nil {
		return "", err
	}
	runId := uuid.New().String()
	run := model.Run{
		Id:           runId,
		WorkflowName: wf.Name,
		Event:        event,
		State:        model.RUN_PENDING,
		CreatedAt:    time.Now(),
	}
	runner := executor.NewJobExecutor(wf.Name, runId, buildBaseEnv(wf, runId, event),
		buildEventData(event), e.registry, e.secrets)
	sched := scheduler.New(context.Background(), wf.Name, runId, g, e.pool, runner, e.maxParallelJobs, &e.runWg)
	ctrl := newRunController(run, sched)

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return "", fmt.Errorf("engine is stopping, not accepting runs")
	}
	e.active[runId] = ctrl
	ctrl.markRunning()
	sched.Start()
	e.runWg.Add(1)
	go e.supervise(ctrl)
	e.mu.Unlock()

	logger.Info("starting run", zap.String("workflow", wf.Name),
		zap.String("runId", runId), zap.String("event", event.Kind))
	analytics.RecordRunStarted(wf.Name)
	return runId, nil
}

// CancelRun asks a live run to stop. Cancelling a finished run is a
// no-op.
func (e *Engine) CancelRun(runId string) error {
	e.mu.Lock()
	ctrl, ok := e.active[runId]
	e.mu.Unlock()
	if ok {
		logger.Info("cancelling run", zap.String("runId", runId))
		ctrl.sched.Cancel()
		return nil
	}
	if _, err := e.archive.GetRunReport(runId); err != nil {
		return err
	}
	return nil
}

// GetRun serves live runs from the active registry and finished runs
// from the archive.
func (e *Engine) GetRun(runId string) (*model.RunReport, error) {
	e.mu.Lock()
	ctrl, ok := e.active[runId]
	e.mu.Unlock()
	if ok {
		report := ctrl.liveReport()
		return &report, nil
	}
	return e.archive.GetRunReport(runId)
}

// GetRecentRuns lists live runs first, then archived reports.
func (e *Engine) GetRecentRuns(count int) ([]model.RunReport, error) {
	e.mu.Lock()
	controllers := make([]*runController, 0, len(e.active))
	for _, ctrl := range e.active {
		controllers = append(controllers, ctrl)
	}
	e.mu.Unlock()
	out := make([]model.RunReport, 0, len(controllers))
	for _, ctrl := range controllers {
		out = append(out, ctrl.liveReport())
	}
	archived, err := e.archive.GetRecentRunReports(count)
	if err != nil {
		return nil, err
	}
	out = append(out, archived...)
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (e *Engine) supervise(ctrl *runController) {
	defer e.runWg.Done()
	<-ctrl.sched.Done()
	state, jobs := ctrl.sched.Result()
	ctrl.finish(state)
	report := ctrl.report(jobs)

	if err := e.archive.SaveRunReport(report); err != nil {
		logger.Error("error archiving run report",
			zap.String("runId", report.RunId), zap.Error(err))
	}
	analytics.RecordRunResult(report)
	analytics.RecordRunCompleted(report.WorkflowName, string(state))
	logger.Info("run finished", zap.String("workflow", report.WorkflowName),
		zap.String("runId", report.RunId), zap.String("state", string(state)))

	e.mu.Lock()
	delete(e.active, report.RunId)
	e.mu.Unlock()
}

func (e *Engine) emitActiveRuns() {
	e.mu.Lock()
	count := len(e.active)
	e.mu.Unlock()
	analytics.RecordActiveRuns(int64(count))
}

func buildBaseEnv(wf model.WorkflowDefinition, runId string, event model.Event) map[string]string {
	env := make(map[string]string)
	for k, v := range wf.Env {
		env[k] = v
	}
	env["CONVEYOR_RUN_ID"] = runId
	env["CONVEYOR_WORKFLOW"] = wf.Name
	env["CONVEYOR_EVENT"] = event.Kind
	env["CONVEYOR_REF"] = event.Ref
	return env
}

func buildEventData(event model.Event) map[string]any {
	return map[string]any{
		"id":      event.Id,
		"kind":    event.Kind,
		"ref":     event.Ref,
		"branch":  trigger.ShortRef(event.Ref),
		"payload": event.Payload,
	}
}
