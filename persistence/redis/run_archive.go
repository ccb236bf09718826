package redis

import (
	"context"
	"time"

	"github.com/mohitkumar/conveyor/logger"
	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	"github.com/mohitkumar/conveyor/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const RUN_REPORT string = "RUN"
const RUN_INDEX string = "RUNS"

// maxIndexedRuns caps the recency index, not the reports themselves.
// Reports expire on their own through ArchiveRetention.
const maxIndexedRuns = 1000

type redisRunArchive struct {
	*baseDao
	reportEncoderDecoder util.EncoderDecoder[model.RunReport]
	retention            time.Duration
}

var _ persistence.RunArchive = new(redisRunArchive)

func NewRedisRunArchive(conf Config) *redisRunArchive {
	return &redisRunArchive{
		baseDao:              newBaseDao(conf),
		reportEncoderDecoder: util.NewJsonEncoderDecoder[model.RunReport](),
		retention:            conf.ArchiveRetention,
	}
}

func (ra *redisRunArchive) SaveRunReport(report model.RunReport) error {
	data, err := ra.reportEncoderDecoder.Encode(report)
	if err != nil {
		return err
	}
	key := ra.baseDao.getNamespaceKey(RUN_REPORT, report.RunId)
	indexKey := ra.baseDao.getNamespaceKey(RUN_INDEX)
	ctx := context.Background()
	pipe := ra.baseDao.redisClient.TxPipeline()
	pipe.Set(ctx, key, data, ra.retention)
	pipe.LPush(ctx, indexKey, report.RunId)
	pipe.LTrim(ctx, indexKey, 0, maxIndexedRuns-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error in archiving run report", zap.String("runId", report.RunId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ra *redisRunArchive) GetRunReport(runId string) (*model.RunReport, error) {
	key := ra.baseDao.getNamespaceKey(RUN_REPORT, runId)
	ctx := context.Background()
	reportStr, err := ra.baseDao.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "run", Name: runId}
	}
	if err != nil {
		logger.Error("error in getting run report", zap.String("runId", runId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return ra.reportEncoderDecoder.Decode([]byte(reportStr))
}

func (ra *redisRunArchive) GetRecentRunReports(count int) ([]model.RunReport, error) {
	if count <= 0 || count > maxIndexedRuns {
		count = maxIndexedRuns
	}
	indexKey := ra.baseDao.getNamespaceKey(RUN_INDEX)
	ctx := context.Background()
	runIds, err := ra.baseDao.redisClient.LRange(ctx, indexKey, 0, int64(count-1)).Result()
	if err != nil {
		logger.Error("error in listing run reports", zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	out := make([]model.RunReport, 0, len(runIds))
	for _, runId := range runIds {
		report, err := ra.GetRunReport(runId)
		if err != nil {
			// expired reports linger in the index until trimmed out
			continue
		}
		out = append(out, *report)
	}
	return out, nil
}
