package analytics

import (
	"os"
	"sync"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type record struct {
	msg    string
	fields []zap.Field
}

// LogFileDataCollector appends one JSON line per record to a file. Records
// are written off the caller's goroutine through a worker channel so that
// job workers never block on disk.
type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
	worker   *util.Worker[record]
}

func NewLogFileDataCollector(fileName string, capacity int, wg *sync.WaitGroup) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	lc := &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}
	if capacity <= 0 {
		capacity = 256
	}
	lc.worker = util.NewWorker("analytics-collector", wg, lc.write, capacity)
	return lc, nil
}

func (lc *LogFileDataCollector) Start() {
	lc.worker.Start()
}

func (lc *LogFileDataCollector) Stop() {
	lc.worker.Stop()
	lc.logger.Sync()
}

func (lc *LogFileDataCollector) write(rec record) error {
	lc.logger.Info(rec.msg, rec.fields...)
	return nil
}

func (lc *LogFileDataCollector) RecordStepResult(wfName string, runId string, jobName string, step model.StepReport) {
	lc.worker.Sender() <- record{
		msg: "step",
		fields: []zap.Field{
			zap.String("workflow", wfName),
			zap.String("runId", runId),
			zap.String("job", jobName),
			zap.String("step", step.Name),
			zap.String("state", string(step.State)),
			zap.Int("exitCode", step.ExitCode),
			zap.String("reason", step.Reason),
		},
	}
}

func (lc *LogFileDataCollector) RecordJobResult(wfName string, runId string, job model.JobReport) {
	lc.worker.Sender() <- record{
		msg: "job",
		fields: []zap.Field{
			zap.String("workflow", wfName),
			zap.String("runId", runId),
			zap.String("job", job.Name),
			zap.String("state", string(job.State)),
			zap.String("reason", job.Reason),
		},
	}
}

func (lc *LogFileDataCollector) RecordRunResult(run model.RunReport) {
	lc.worker.Sender() <- record{
		msg: "run",
		fields: []zap.Field{
			zap.String("workflow", run.WorkflowName),
			zap.String("runId", run.RunId),
			zap.String("event", run.Event.Kind),
			zap.String("ref", run.Event.Ref),
			zap.String("state", string(run.State)),
		},
	}
}
