package service

import (
	"github.com/google/uuid"
	"github.com/mohitkumar/conveyor/engine"
	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/metadata"
	"github.com/mohitkumar/conveyor/model"
	"go.uber.org/zap"
)

// WorkflowExecutionService sits between the http surface and the
// engine.
type WorkflowExecutionService struct {
	engine          *engine.Engine
	metadataService metadata.MetadataService
}

func NewWorkflowExecutionService(engine *engine.Engine, metadataService metadata.MetadataService) *WorkflowExecutionService {
	return &WorkflowExecutionService{
		engine:          engine,
		metadataService: metadataService,
	}
}

// StartRun starts a stored workflow directly, bypassing trigger
// filters. The synthetic manual event is still recorded on the run.
func (s *WorkflowExecutionService) StartRun(req model.ExecutionRequest) (string, error) {
	wf, err := s.metadataService.GetWorkflow(req.WorkflowName)
	if err != nil {
		return "", err
	}
	event := model.Event{
		Id:      uuid.New().String(),
		Kind:    model.EVENT_KIND_MANUAL,
		Ref:     req.Ref,
		Payload: req.Payload,
	}
	logger.Info("starting workflow", zap.String("workflow", wf.Name))
	return s.engine.StartRun(*wf, event)
}

func (s *WorkflowExecutionService) HandleEvent(event model.Event) ([]string, error) {
	return s.engine.OnEvent(event)
}

func (s *WorkflowExecutionService) GetRun(runId string) (*model.RunReport, error) {
	return s.engine.GetRun(runId)
}

func (s *WorkflowExecutionService) CancelRun(runId string) error {
	return s.engine.CancelRun(runId)
}

func (s *WorkflowExecutionService) GetRecentRuns(count int) ([]model.RunReport, error) {
	return s.engine.GetRecentRuns(count)
}
