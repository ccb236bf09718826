package inmem

import (
	"time"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	c "github.com/patrickmn/go-cache"
)

type inMemoryMetadataStorage struct {
	definitions *c.Cache
}

var _ persistence.MetadataStorage = new(inMemoryMetadataStorage)

func NewInMemoryMetadataStorage() *inMemoryMetadataStorage {
	return &inMemoryMetadataStorage{
		definitions: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (ms *inMemoryMetadataStorage) SaveWorkflowDefinition(wf model.WorkflowDefinition) error {
	ms.definitions.Set(wf.Name, wf, c.NoExpiration)
	return nil
}

func (ms *inMemoryMetadataStorage) DeleteWorkflowDefinition(name string) error {
	if _, found := ms.definitions.Get(name); !found {
		return persistence.NotFoundError{Kind: "workflow", Name: name}
	}
	ms.definitions.Delete(name)
	return nil
}

func (ms *inMemoryMetadataStorage) GetWorkflowDefinition(name string) (*model.WorkflowDefinition, error) {
	stored, found := ms.definitions.Get(name)
	if !found {
		return nil, persistence.NotFoundError{Kind: "workflow", Name: name}
	}
	wf := stored.(model.WorkflowDefinition)
	return &wf, nil
}

func (ms *inMemoryMetadataStorage) GetAllWorkflowDefinitions() ([]model.WorkflowDefinition, error) {
	items := ms.definitions.Items()
	out := make([]model.WorkflowDefinition, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(model.WorkflowDefinition))
	}
	return out, nil
}
