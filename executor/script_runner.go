package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

const KIND_SCRIPT = "script"

// ScriptRunner executes a step's javascript source in an embedded vm,
// for glue steps that should not cost a process. The script sees $ bound
// to {workflow, runId, job, step, env}, may publish values to later steps
// by assigning to $.exports and may fail the step by setting $.exitCode
// or by throwing.
type ScriptRunner struct{}

func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{}
}

func (r *ScriptRunner) Kind() string {
	return KIND_SCRIPT
}

func (r *ScriptRunner) Run(ctx context.Context, req StepRequest) (StepOutcome, error) {
	source := req.With["script"]
	if source == "" {
		return StepOutcome{}, fmt.Errorf("script step %s has no script", req.StepName)
	}
	if ctx.Err() != nil {
		return StepOutcome{}, ctx.Err()
	}
	data := map[string]any{
		"workflow": req.Workflow,
		"runId":    req.RunId,
		"job":      req.JobName,
		"step":     req.StepName,
		"env":      req.Env,
		"exports":  map[string]any{},
		"exitCode": 0,
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return StepOutcome{}, err
	}

	vm := goja.New()
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("cancelled")
		case <-watcherDone:
		}
	}()

	script := fmt.Sprintf("var $ = %s;\n%s", payload, source)
	if _, err := vm.RunString(script); err != nil {
		if ctx.Err() != nil {
			return StepOutcome{}, ctx.Err()
		}
		return StepOutcome{}, fmt.Errorf("error executing javascript %w", err)
	}
	value, err := vm.RunString("$")
	if err != nil {
		if ctx.Err() != nil {
			return StepOutcome{}, ctx.Err()
		}
		return StepOutcome{}, fmt.Errorf("error executing javascript %w", err)
	}
	return scriptOutcome(value)
}

// scriptOutcome reads the final $ back out of the vm. The json round trip
// normalizes goja values into plain go types.
func scriptOutcome(value goja.Value) (StepOutcome, error) {
	raw, err := json.Marshal(value.Export())
	if err != nil {
		return StepOutcome{}, err
	}
	var result struct {
		ExitCode int            `json:"exitCode"`
		Exports  map[string]any `json:"exports"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return StepOutcome{}, fmt.Errorf("script produced an unreadable result %w", err)
	}
	exports := make(map[string]string, len(result.Exports))
	for k, v := range result.Exports {
		exports[k] = fmt.Sprintf("%v", v)
	}
	return StepOutcome{ExitCode: result.ExitCode, Exports: exports}, nil
}
