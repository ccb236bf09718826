package model

import "time"

type RunState string

const RUN_PENDING RunState = "PENDING"
const RUN_RUNNING RunState = "RUNNING"
const RUN_SUCCEEDED RunState = "SUCCEEDED"
const RUN_FAILED RunState = "FAILED"
const RUN_CANCELLED RunState = "CANCELLED"

func (s RunState) IsTerminal() bool {
	return s == RUN_SUCCEEDED || s == RUN_FAILED || s == RUN_CANCELLED
}

type JobState string

const JOB_PENDING JobState = "PENDING"
const JOB_BLOCKED JobState = "BLOCKED"
const JOB_READY JobState = "READY"
const JOB_RUNNING JobState = "RUNNING"
const JOB_SUCCEEDED JobState = "SUCCEEDED"
const JOB_FAILED JobState = "FAILED"
const JOB_SKIPPED JobState = "SKIPPED"
const JOB_CANCELLED JobState = "CANCELLED"

func (s JobState) IsTerminal() bool {
	switch s {
	case JOB_SUCCEEDED, JOB_FAILED, JOB_SKIPPED, JOB_CANCELLED:
		return true
	}
	return false
}

type StepState string

const STEP_PENDING StepState = "PENDING"
const STEP_RUNNING StepState = "RUNNING"
const STEP_SUCCEEDED StepState = "SUCCEEDED"
const STEP_FAILED StepState = "FAILED"
const STEP_SKIPPED StepState = "SKIPPED"
const STEP_CANCELLED StepState = "CANCELLED"

// Run is one instantiation of a workflow definition against one triggering
// event. It exclusively owns its job instances.
type Run struct {
	Id           string    `json:"id"`
	WorkflowName string    `json:"workflowName"`
	Event        Event     `json:"event"`
	State        RunState  `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
	FinishedAt   time.Time `json:"finishedAt,omitempty"`
}

// JobInstance is one job within a run. Needs entries are same-run name
// references, never ownership edges.
type JobInstance struct {
	Name       string            `json:"name"`
	State      JobState          `json:"state"`
	Needs      []string          `json:"needs,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Steps      []*StepInstance   `json:"steps"`
	Reason     string            `json:"reason,omitempty"`
	StartedAt  time.Time         `json:"startedAt,omitempty"`
	FinishedAt time.Time         `json:"finishedAt,omitempty"`
}

// StepInstance is one executable unit inside a job. The definition it was
// instantiated from stays attached, the instance adds outcome fields.
type StepInstance struct {
	Def      StepDef   `json:"def"`
	State    StepState `json:"state"`
	ExitCode int       `json:"exitCode"`
	Reason   string    `json:"reason,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
}

// JobResult is posted by a job worker to the scheduler loop when the job
// reaches a terminal state. The scheduler is the sole consumer.
type JobResult struct {
	JobName string
	State   JobState
	Reason  string
}

// StepResult is posted by a job worker whenever one of its steps changes
// state, so the scheduler's view of the run stays current while the job is
// still executing.
type StepResult struct {
	JobName   string
	StepIndex int
	Report    StepReport
}

type StepReport struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	State    StepState `json:"state"`
	ExitCode int       `json:"exitCode"`
	Reason   string    `json:"reason,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
}

type JobReport struct {
	Name   string       `json:"name"`
	State  JobState     `json:"state"`
	Reason string       `json:"reason,omitempty"`
	Steps  []StepReport `json:"steps"`
}

// RunReport is the structured record emitted for external reporting once a
// run is terminal. Terminal runs are archived in this form.
type RunReport struct {
	RunId        string      `json:"runId"`
	WorkflowName string      `json:"workflowName"`
	Event        Event       `json:"event"`
	State        RunState    `json:"state"`
	StartedAt    time.Time   `json:"startedAt"`
	FinishedAt   time.Time   `json:"finishedAt"`
	Jobs         []JobReport `json:"jobs"`
}

func (s *StepInstance) Report() StepReport {
	return StepReport{
		Name:     s.Def.Name,
		Kind:     s.Def.Kind,
		State:    s.State,
		ExitCode: s.ExitCode,
		Reason:   s.Reason,
		Attempts: s.Attempts,
	}
}

func (j *JobInstance) Report() JobReport {
	steps := make([]StepReport, 0, len(j.Steps))
	for _, st := range j.Steps {
		steps = append(steps, st.Report())
	}
	return JobReport{
		Name:   j.Name,
		State:  j.State,
		Reason: j.Reason,
		Steps:  steps,
	}
}
