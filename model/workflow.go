package model

type RetryPolicy string

const RETRY_POLICY_FIXED RetryPolicy = "FIXED"
const RETRY_POLICY_BACKOFF RetryPolicy = "BACKOFF"

// WorkflowDefinition is the immutable parsed form of a workflow document.
// It is created once per definition load and never mutated afterwards.
type WorkflowDefinition struct {
	Name string            `json:"name"`
	On   []TriggerFilter   `json:"on"`
	Env  map[string]string `json:"env,omitempty"`
	Jobs []JobDef          `json:"jobs"`
}

// TriggerFilter declares one accepted event kind with an optional branch
// list. Branch entries are exact strings, patterns are rejected at load time.
type TriggerFilter struct {
	Kind     string   `json:"kind"`
	Branches []string `json:"branches,omitempty"`
}

// JobDef is one named job in a workflow. Declaration order of jobs is
// significant, it breaks ties when several jobs become ready together.
type JobDef struct {
	Name  string            `json:"name"`
	Needs []string          `json:"needs,omitempty"`
	Env   map[string]string `json:"env,omitempty"`
	Steps []StepDef         `json:"steps"`
}

type StepDef struct {
	Name            string            `json:"name"`
	Kind            string            `json:"kind"`
	With            map[string]string `json:"with,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	If              string            `json:"if,omitempty"`
	ContinueOnError bool              `json:"continueOnError,omitempty"`
	Retry           *RetrySpec        `json:"retry,omitempty"`
}

type RetrySpec struct {
	Count           int         `json:"count"`
	IntervalSeconds int         `json:"intervalSeconds"`
	Policy          RetryPolicy `json:"policy"`
}

func (wf *WorkflowDefinition) GetJob(name string) (JobDef, bool) {
	for _, job := range wf.Jobs {
		if job.Name == name {
			return job, true
		}
	}
	return JobDef{}, false
}
