package executor

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/secret"
	"github.com/mohitkumar/conveyor/util"
	"go.uber.org/zap"
)

// JobExecutor runs the jobs of one run. The same executor serves all of
// the run's workers and carries no per job state, so it is safe for
// concurrent use.
type JobExecutor struct {
	wfName    string
	runId     string
	baseEnv   map[string]string
	eventData map[string]any
	registry  *Registry
	secrets   secret.Provider
}

func NewJobExecutor(wfName string, runId string, baseEnv map[string]string, eventData map[string]any, registry *Registry, secrets secret.Provider) *JobExecutor {
	return &JobExecutor{
		wfName:    wfName,
		runId:     runId,
		baseEnv:   baseEnv,
		eventData: eventData,
		registry:  registry,
		secrets:   secrets,
	}
}

// ExecuteJob drives the job's steps strictly in declared order. The first
// failing step aborts the rest unless it is marked continue-on-error, a
// cancelled context marks the remaining steps skipped. The slot release
// runs on every exit path.
func (e *JobExecutor) ExecuteJob(ctx context.Context, job *model.JobInstance, progress chan<- model.StepResult, release func()) model.JobResult {
	defer release()
	logger.Info("executing job", zap.String("workflow", e.wfName), zap.String("runId", e.runId), zap.String("job", job.Name))
	env := e.seedEnv(job)
	var (
		aborted    bool
		cancelled  bool
		failReason string
	)
	for i := range job.Steps {
		step := job.Steps[i]
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if cancelled || aborted {
			step.State = model.STEP_SKIPPED
			if cancelled {
				step.Reason = "cancelled"
			} else {
				step.Reason = "previous step failed"
			}
			postStep(progress, job.Name, i, step)
			continue
		}
		switch e.runStep(ctx, job, i, env, progress) {
		case model.STEP_SUCCEEDED, model.STEP_SKIPPED:
		case model.STEP_CANCELLED:
			cancelled = true
		case model.STEP_FAILED:
			if !step.Def.ContinueOnError {
				aborted = true
				failReason = fmt.Sprintf("step %s failed", step.Def.Name)
			}
		}
	}
	switch {
	case cancelled:
		return model.JobResult{JobName: job.Name, State: model.JOB_CANCELLED, Reason: "cancelled"}
	case aborted:
		return model.JobResult{JobName: job.Name, State: model.JOB_FAILED, Reason: failReason}
	default:
		return model.JobResult{JobName: job.Name, State: model.JOB_SUCCEEDED}
	}
}

func (e *JobExecutor) runStep(ctx context.Context, job *model.JobInstance, idx int, env map[string]string, progress chan<- model.StepResult) model.StepState {
	step := job.Steps[idx]
	data := e.stepData(job, env)
	if step.Def.If != "" {
		ok, err := evaluateCondition(step.Def.If, data)
		if err != nil {
			return e.finishStep(progress, job.Name, idx, step, model.STEP_FAILED, -1, fmt.Sprintf("condition: %v", err))
		}
		if !ok {
			return e.finishStep(progress, job.Name, idx, step, model.STEP_SKIPPED, 0, "condition false")
		}
	}
	runner, ok := e.registry.Resolve(step.Def.Kind)
	if !ok {
		logger.Error("no runner for step kind", zap.String("workflow", e.wfName), zap.String("runId", e.runId), zap.String("job", job.Name), zap.String("step", step.Def.Name), zap.String("kind", step.Def.Kind))
		return e.finishStep(progress, job.Name, idx, step, model.STEP_FAILED, -1, model.REASON_STEP_UNRESOLVABLE)
	}
	with, err := util.ResolveTokens(step.Def.With, data, e.lookupSecret)
	if err != nil {
		return e.finishStep(progress, job.Name, idx, step, model.STEP_FAILED, -1, err.Error())
	}
	stepEnv, err := util.ResolveTokens(step.Def.Env, data, e.lookupSecret)
	if err != nil {
		return e.finishStep(progress, job.Name, idx, step, model.STEP_FAILED, -1, err.Error())
	}

	logger.Info("running step", zap.String("workflow", e.wfName), zap.String("runId", e.runId), zap.String("job", job.Name), zap.String("step", step.Def.Name), zap.String("kind", step.Def.Kind))
	step.State = model.STEP_RUNNING
	postStep(progress, job.Name, idx, step)

	request := StepRequest{
		Workflow: e.wfName,
		RunId:    e.runId,
		JobName:  job.Name,
		StepName: step.Def.Name,
		With:     with,
		Env:      overlay(env, stepEnv),
	}
	var outcome StepOutcome
	lastExit := -1
	operation := func() error {
		step.Attempts++
		out, err := runner.Run(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		outcome = out
		lastExit = out.ExitCode
		if out.ExitCode != 0 {
			return fmt.Errorf("exit code %d", out.ExitCode)
		}
		return nil
	}
	err = backoff.Retry(operation, retryBackOff(ctx, step.Def.Retry))
	if err != nil {
		if ctx.Err() != nil {
			return e.finishStep(progress, job.Name, idx, step, model.STEP_CANCELLED, lastExit, "cancelled")
		}
		return e.finishStep(progress, job.Name, idx, step, model.STEP_FAILED, lastExit, err.Error())
	}
	for k, v := range outcome.Exports {
		env[k] = v
	}
	return e.finishStep(progress, job.Name, idx, step, model.STEP_SUCCEEDED, 0, "")
}

func (e *JobExecutor) finishStep(progress chan<- model.StepResult, jobName string, idx int, step *model.StepInstance, state model.StepState, exitCode int, reason string) model.StepState {
	step.State = state
	step.ExitCode = exitCode
	step.Reason = reason
	postStep(progress, jobName, idx, step)
	return state
}

func (e *JobExecutor) seedEnv(job *model.JobInstance) map[string]string {
	env := make(map[string]string, len(e.baseEnv)+len(job.Env)+1)
	for k, v := range e.baseEnv {
		env[k] = v
	}
	for k, v := range job.Env {
		env[k] = v
	}
	env["CONVEYOR_JOB"] = job.Name
	return env
}

// stepData builds the $ view conditions and tokens evaluate against.
func (e *JobExecutor) stepData(job *model.JobInstance, env map[string]string) map[string]any {
	envView := make(map[string]any, len(env))
	for k, v := range env {
		envView[k] = v
	}
	return map[string]any{
		"run": map[string]any{
			"id":       e.runId,
			"workflow": e.wfName,
			"job":      job.Name,
		},
		"event": e.eventData,
		"env":   envView,
	}
}

func (e *JobExecutor) lookupSecret(name string) (string, bool) {
	if e.secrets == nil {
		return "", false
	}
	return e.secrets.GetSecret(name)
}

func postStep(progress chan<- model.StepResult, jobName string, idx int, step *model.StepInstance) {
	progress <- model.StepResult{
		JobName:   jobName,
		StepIndex: idx,
		Report:    step.Report(),
	}
}

func overlay(base map[string]string, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func retryBackOff(ctx context.Context, spec *model.RetrySpec) backoff.BackOff {
	if spec == nil || spec.Count <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	interval := time.Duration(spec.IntervalSeconds) * time.Second
	var policy backoff.BackOff
	switch spec.Policy {
	case model.RETRY_POLICY_BACKOFF:
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = interval
		exponential.MaxElapsedTime = 0
		policy = exponential
	default:
		policy = backoff.NewConstantBackOff(interval)
	}
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(spec.Count)), ctx)
}
