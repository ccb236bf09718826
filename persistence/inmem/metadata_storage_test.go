package inmem

import (
	"errors"
	"testing"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow(name string) model.WorkflowDefinition {
	return model.WorkflowDefinition{
		Name: name,
		On:   []model.TriggerFilter{{Kind: "push", Branches: []string{"main"}}},
		Jobs: []model.JobDef{
			{Name: "build", Steps: []model.StepDef{{Name: "compile", Kind: "shell", With: map[string]string{"command": "make"}}}},
		},
	}
}

func TestMetadataStorageSaveAndGet(t *testing.T) {
	storage := NewInMemoryMetadataStorage()
	require.NoError(t, storage.SaveWorkflowDefinition(sampleWorkflow("ci")))

	wf, err := storage.GetWorkflowDefinition("ci")
	require.NoError(t, err)
	require.Equal(t, "ci", wf.Name)
	require.Len(t, wf.Jobs, 1)
}

func TestMetadataStorageGetMissing(t *testing.T) {
	storage := NewInMemoryMetadataStorage()
	_, err := storage.GetWorkflowDefinition("missing")
	var notFound persistence.NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "workflow", notFound.Kind)
}

func TestMetadataStorageOverwrite(t *testing.T) {
	storage := NewInMemoryMetadataStorage()
	require.NoError(t, storage.SaveWorkflowDefinition(sampleWorkflow("ci")))

	updated := sampleWorkflow("ci")
	updated.Jobs = append(updated.Jobs, model.JobDef{Name: "test", Needs: []string{"build"}, Steps: []model.StepDef{{Name: "run", Kind: "shell"}}})
	require.NoError(t, storage.SaveWorkflowDefinition(updated))

	wf, err := storage.GetWorkflowDefinition("ci")
	require.NoError(t, err)
	require.Len(t, wf.Jobs, 2)
}

func TestMetadataStorageDelete(t *testing.T) {
	storage := NewInMemoryMetadataStorage()
	require.NoError(t, storage.SaveWorkflowDefinition(sampleWorkflow("ci")))
	require.NoError(t, storage.DeleteWorkflowDefinition("ci"))

	_, err := storage.GetWorkflowDefinition("ci")
	var notFound persistence.NotFoundError
	require.True(t, errors.As(err, &notFound))

	err = storage.DeleteWorkflowDefinition("ci")
	require.True(t, errors.As(err, &notFound))
}

func TestMetadataStorageGetAll(t *testing.T) {
	storage := NewInMemoryMetadataStorage()
	require.NoError(t, storage.SaveWorkflowDefinition(sampleWorkflow("ci")))
	require.NoError(t, storage.SaveWorkflowDefinition(sampleWorkflow("release")))

	all, err := storage.GetAllWorkflowDefinitions()
	require.NoError(t, err)
	require.Len(t, all, 2)
	names := map[string]bool{}
	for _, wf := range all {
		names[wf.Name] = true
	}
	require.True(t, names["ci"])
	require.True(t, names["release"])
}
