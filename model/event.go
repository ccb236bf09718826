package model

// EVENT_KIND_MANUAL marks runs started through the execution endpoint
// rather than through an ingested event.
const EVENT_KIND_MANUAL string = "manual"

// Event is one triggering occurrence delivered by an external source,
// typically a source control webhook.
type Event struct {
	Id      string         `json:"id"`
	Kind    string         `json:"kind"`
	Ref     string         `json:"ref,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ExecutionRequest starts a run of a stored workflow directly, without
// trigger evaluation. The synthetic event it carries is still recorded on
// the run.
type ExecutionRequest struct {
	WorkflowName string         `json:"workflowName"`
	Ref          string         `json:"ref,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}
