package persistence

import (
	"fmt"

	"github.com/mohitkumar/conveyor/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

// MetadataStorage persists workflow definitions keyed by name.
type MetadataStorage interface {
	SaveWorkflowDefinition(wf model.WorkflowDefinition) error

	DeleteWorkflowDefinition(name string) error

	GetWorkflowDefinition(name string) (*model.WorkflowDefinition, error)

	GetAllWorkflowDefinitions() ([]model.WorkflowDefinition, error)
}

// RunArchive stores reports of finished runs. Reports are immutable
// once written.
type RunArchive interface {
	SaveRunReport(report model.RunReport) error

	GetRunReport(runId string) (*model.RunReport, error)

	GetRecentRunReports(count int) ([]model.RunReport, error)
}
