package analytics

import (
	"sync"

	"github.com/mohitkumar/conveyor/model"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
	Capacity      int
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// RunDataCollector receives a structured record for every step, job and run
// that reaches a terminal state. Implementations must tolerate concurrent
// callers.
type RunDataCollector interface {
	RecordStepResult(wfName string, runId string, jobName string, step model.StepReport)
	RecordJobResult(wfName string, runId string, job model.JobReport)
	RecordRunResult(run model.RunReport)
}

type noopCollector struct{}

func (noopCollector) RecordStepResult(wfName string, runId string, jobName string, step model.StepReport) {
}
func (noopCollector) RecordJobResult(wfName string, runId string, job model.JobReport) {}
func (noopCollector) RecordRunResult(run model.RunReport)                              {}

var runCollector RunDataCollector = noopCollector{}

var stopCollector func()

func InitDataCollector(config DataCollectorConfig, wg *sync.WaitGroup) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName, config.Capacity, wg)
		if err != nil {
			return err
		}
		c.Start()
		runCollector = c
		stopCollector = c.Stop
	}
	return nil
}

func StopDataCollector() {
	if stopCollector != nil {
		stopCollector()
	}
}

func RecordStepResult(wfName string, runId string, jobName string, step model.StepReport) {
	runCollector.RecordStepResult(wfName, runId, jobName, step)
}

func RecordJobResult(wfName string, runId string, job model.JobReport) {
	runCollector.RecordJobResult(wfName, runId, job)
}

func RecordRunResult(run model.RunReport) {
	runCollector.RecordRunResult(run)
}
