package graph

import (
	"fmt"

	"github.com/mohitkumar/conveyor/model"
)

// DefinitionError is a workflow definition problem detected while building
// the job graph. It aborts run construction entirely, no job ever starts.
type DefinitionError struct {
	Reason string
	Detail string
}

func (e DefinitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// JobGraph is the executable DAG for one run: one JobInstance per declared
// job with dependency edges resolved by name. Indices follow the
// declaration order of jobs in the workflow definition, which is also the
// tie break order for slot assignment.
//
// The graph structure is immutable after Build. Job instance state is
// mutated by the scheduler loop only.
type JobGraph struct {
	jobs     []*model.JobInstance
	index    map[string]int
	outgoing [][]int
	incoming [][]int
	indeg    []int
}

// Build resolves a workflow definition into a run's initial job instances.
// Every declared dependency must reference a declared job and the
// dependency relation must be acyclic. Jobs without dependencies start
// Ready, all others start Blocked.
func Build(def *model.WorkflowDefinition) (*JobGraph, error) {
	if len(def.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %s declares no jobs", def.Name)
	}
	jobs := make([]*model.JobInstance, 0, len(def.Jobs))
	index := make(map[string]int, len(def.Jobs))
	for i, jobDef := range def.Jobs {
		if jobDef.Name == "" {
			return nil, fmt.Errorf("workflow %s declares a job with an empty name", def.Name)
		}
		if _, exists := index[jobDef.Name]; exists {
			return nil, fmt.Errorf("workflow %s declares job %q twice", def.Name, jobDef.Name)
		}
		steps := make([]*model.StepInstance, 0, len(jobDef.Steps))
		for _, stepDef := range jobDef.Steps {
			steps = append(steps, &model.StepInstance{
				Def:   stepDef,
				State: model.STEP_PENDING,
			})
		}
		jobs = append(jobs, &model.JobInstance{
			Name:  jobDef.Name,
			State: model.JOB_PENDING,
			Needs: jobDef.Needs,
			Env:   jobDef.Env,
			Steps: steps,
		})
		index[jobDef.Name] = i
	}

	outgoing := make([][]int, len(jobs))
	incoming := make([][]int, len(jobs))
	indeg := make([]int, len(jobs))
	for i, jobDef := range def.Jobs {
		seen := make(map[int]struct{}, len(jobDef.Needs))
		for _, dep := range jobDef.Needs {
			depIdx, ok := index[dep]
			if !ok {
				return nil, DefinitionError{
					Reason: model.REASON_UNKNOWN_DEPENDENCY,
					Detail: fmt.Sprintf("job %q needs undeclared job %q", jobDef.Name, dep),
				}
			}
			if _, dup := seen[depIdx]; dup {
				return nil, fmt.Errorf("job %q declares dependency %q twice", jobDef.Name, dep)
			}
			seen[depIdx] = struct{}{}
			outgoing[depIdx] = append(outgoing[depIdx], i)
			incoming[i] = append(incoming[i], depIdx)
			indeg[i]++
		}
	}

	g := &JobGraph{
		jobs:     jobs,
		index:    index,
		outgoing: outgoing,
		incoming: incoming,
		indeg:    indeg,
	}
	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	for i, job := range g.jobs {
		if g.indeg[i] == 0 {
			job.State = model.JOB_READY
		} else {
			job.State = model.JOB_BLOCKED
		}
	}
	return g, nil
}

func (g *JobGraph) Len() int {
	return len(g.jobs)
}

// Job returns the instance at declaration index i.
func (g *JobGraph) Job(i int) *model.JobInstance {
	return g.jobs[i]
}

func (g *JobGraph) IndexOf(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Dependencies returns the declaration indices job i depends on.
func (g *JobGraph) Dependencies(i int) []int {
	return g.incoming[i]
}

// Dependents returns the declaration indices of jobs depending on job i.
func (g *JobGraph) Dependents(i int) []int {
	return g.outgoing[i]
}

// Reports renders every job instance in declaration order.
func (g *JobGraph) Reports() []model.JobReport {
	reports := make([]model.JobReport, 0, len(g.jobs))
	for _, job := range g.jobs {
		reports = append(reports, job.Report())
	}
	return reports
}
