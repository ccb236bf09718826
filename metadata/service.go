package metadata

import (
	"fmt"
	"time"

	"github.com/mohitkumar/conveyor/graph"
	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/trigger"
	c "github.com/patrickmn/go-cache"
)

type MetadataService interface {
	SaveWorkflow(wf model.WorkflowDefinition) error
	DeleteWorkflow(name string) error
	GetWorkflow(name string) (*model.WorkflowDefinition, error)
	GetAllWorkflows() ([]model.WorkflowDefinition, error)
	ValidateWorkflow(wf model.WorkflowDefinition) error
	GetMetadataStorage() persistence.MetadataStorage
}

type MetadataServiceImpl struct {
	storage persistence.MetadataStorage
	cache   *c.Cache
}

func NewMetadataService(storage persistence.MetadataStorage) MetadataService {
	return &MetadataServiceImpl{
		storage: storage,
		cache:   c.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *MetadataServiceImpl) SaveWorkflow(wf model.WorkflowDefinition) error {
	if err := s.ValidateWorkflow(wf); err != nil {
		return err
	}
	if err := s.storage.SaveWorkflowDefinition(wf); err != nil {
		return err
	}
	s.cache.Delete(wf.Name)
	return nil
}

func (s *MetadataServiceImpl) DeleteWorkflow(name string) error {
	if err := s.storage.DeleteWorkflowDefinition(name); err != nil {
		return err
	}
	s.cache.Delete(name)
	return nil
}

func (s *MetadataServiceImpl) GetWorkflow(name string) (*model.WorkflowDefinition, error) {
	if cached, found := s.cache.Get(name); found {
		wf := cached.(model.WorkflowDefinition)
		return &wf, nil
	}
	wf, err := s.storage.GetWorkflowDefinition(name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, *wf, c.DefaultExpiration)
	return wf, nil
}

// GetAllWorkflows always reads storage. Event fan-out must see every
// definition, including ones saved through another node.
func (s *MetadataServiceImpl) GetAllWorkflows() ([]model.WorkflowDefinition, error) {
	return s.storage.GetAllWorkflowDefinitions()
}

func (s *MetadataServiceImpl) ValidateWorkflow(wf model.WorkflowDefinition) error {
	if len(wf.Name) == 0 {
		return fmt.Errorf("workflow name is empty")
	}
	if err := trigger.ValidateFilters(wf.On); err != nil {
		return err
	}
	for _, job := range wf.Jobs {
		if err := validateJob(job); err != nil {
			return fmt.Errorf("job %s invalid: %w", job.Name, err)
		}
	}
	if _, err := graph.Build(&wf); err != nil {
		return err
	}
	return nil
}

func validateJob(job model.JobDef) error {
	if len(job.Steps) == 0 {
		return fmt.Errorf("no steps defined")
	}
	stepNames := make(map[string]bool)
	for _, step := range job.Steps {
		if len(step.Name) == 0 {
			return fmt.Errorf("step name is empty")
		}
		if stepNames[step.Name] {
			return fmt.Errorf("step name %s is duplicate", step.Name)
		}
		stepNames[step.Name] = true
		if len(step.Kind) == 0 {
			return fmt.Errorf("step %s has no kind", step.Name)
		}
		if step.Retry != nil {
			if step.Retry.Count < 0 {
				return fmt.Errorf("step %s has negative retry count", step.Name)
			}
			if step.Retry.IntervalSeconds < 0 {
				return fmt.Errorf("step %s has negative retry interval", step.Name)
			}
			switch step.Retry.Policy {
			case "", model.RETRY_POLICY_FIXED, model.RETRY_POLICY_BACKOFF:
			default:
				return fmt.Errorf("step %s has unknown retry policy %s", step.Name, step.Retry.Policy)
			}
		}
	}
	return nil
}

func (s *MetadataServiceImpl) GetMetadataStorage() persistence.MetadataStorage {
	return s.storage
}
