package executor

import (
	"context"
	"sync"
)

// StepRequest is one fully resolved step invocation. With and Env arrive
// with all tokens substituted.
type StepRequest struct {
	Workflow string
	RunId    string
	JobName  string
	StepName string
	With     map[string]string
	Env      map[string]string
}

// StepOutcome is what one attempt of a step produced. Exports become part
// of the job environment visible to later steps.
type StepOutcome struct {
	ExitCode int
	Exports  map[string]string
}

// StepRunner executes steps of one kind. A non nil error means the attempt
// could not be driven to an exit signal at all, for example a process
// launch failure.
type StepRunner interface {
	Kind() string
	Run(ctx context.Context, req StepRequest) (StepOutcome, error)
}

// Registry resolves a step's opaque kind reference to a runner. A kind
// with no registered runner makes the step fail as unresolvable.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]StepRunner
}

func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]StepRunner),
	}
}

func (r *Registry) Register(runner StepRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Kind()] = runner
}

func (r *Registry) Resolve(kind string) (StepRunner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[kind]
	return runner, ok
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.runners))
	for kind := range r.runners {
		kinds = append(kinds, kind)
	}
	return kinds
}
