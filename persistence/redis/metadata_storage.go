package redis

import (
	"context"

	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const WORKFLOW_DEF string = "WORKFLOW"

// redisMetadataStorage keeps workflow definitions in a single hash so
// that listing them for event fan-out is one round trip.
type redisMetadataStorage struct {
	*baseDao
	workflowEncoderDecoder util.EncoderDecoder[model.WorkflowDefinition]
}

var _ persistence.MetadataStorage = new(redisMetadataStorage)

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:                newBaseDao(conf),
		workflowEncoderDecoder: util.NewJsonEncoderDecoder[model.WorkflowDefinition](),
	}
}

func (ms *redisMetadataStorage) SaveWorkflowDefinition(wf model.WorkflowDefinition) error {
	data, err := ms.workflowEncoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	key := ms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	if err := ms.baseDao.redisClient.HSet(ctx, key, []string{wf.Name, string(data)}).Err(); err != nil {
		logger.Error("error in saving workflow definition", zap.String("workflow", wf.Name), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ms *redisMetadataStorage) DeleteWorkflowDefinition(name string) error {
	key := ms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	deleted, err := ms.baseDao.redisClient.HDel(ctx, key, name).Result()
	if err != nil {
		logger.Error("error in deleting workflow definition", zap.String("workflow", name), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if deleted == 0 {
		return persistence.NotFoundError{Kind: "workflow", Name: name}
	}
	return nil
}

func (ms *redisMetadataStorage) GetWorkflowDefinition(name string) (*model.WorkflowDefinition, error) {
	key := ms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	wfStr, err := ms.baseDao.redisClient.HGet(ctx, key, name).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "workflow", Name: name}
	}
	if err != nil {
		logger.Error("error in getting workflow definition", zap.String("workflow", name), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return ms.workflowEncoderDecoder.Decode([]byte(wfStr))
}

func (ms *redisMetadataStorage) GetAllWorkflowDefinitions() ([]model.WorkflowDefinition, error) {
	key := ms.baseDao.getNamespaceKey(WORKFLOW_DEF)
	ctx := context.Background()
	entries, err := ms.baseDao.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		logger.Error("error in listing workflow definitions", zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]model.WorkflowDefinition, 0, len(entries))
	for name, wfStr := range entries {
		wf, err := ms.workflowEncoderDecoder.Decode([]byte(wfStr))
		if err != nil {
			logger.Error("skipping undecodable workflow definition", zap.String("workflow", name), zap.Error(err))
			continue
		}
		out = append(out, *wf)
	}
	return out, nil
}
