package inmem

import (
	"sync"
	"time"

	"github.com/mohitkumar/conveyor/model"
	"github.com/mohitkumar/conveyor/persistence"
	c "github.com/patrickmn/go-cache"
)

const maxIndexedRuns = 1000

type inMemoryRunArchive struct {
	reports *c.Cache
	mu      sync.Mutex
	index   []string
}

var _ persistence.RunArchive = new(inMemoryRunArchive)

// NewInMemoryRunArchive keeps finished run reports for the given
// retention. Zero retention keeps them until process exit.
func NewInMemoryRunArchive(retention time.Duration) *inMemoryRunArchive {
	if retention <= 0 {
		retention = c.NoExpiration
	}
	return &inMemoryRunArchive{
		reports: c.New(retention, 10*time.Minute),
	}
}

func (ra *inMemoryRunArchive) SaveRunReport(report model.RunReport) error {
	ra.reports.Set(report.RunId, report, c.DefaultExpiration)
	ra.mu.Lock()
	ra.index = append([]string{report.RunId}, ra.index...)
	if len(ra.index) > maxIndexedRuns {
		ra.index = ra.index[:maxIndexedRuns]
	}
	ra.mu.Unlock()
	return nil
}

func (ra *inMemoryRunArchive) GetRunReport(runId string) (*model.RunReport, error) {
	stored, found := ra.reports.Get(runId)
	if !found {
		return nil, persistence.NotFoundError{Kind: "run", Name: runId}
	}
	report := stored.(model.RunReport)
	return &report, nil
}

func (ra *inMemoryRunArchive) GetRecentRunReports(count int) ([]model.RunReport, error) {
	if count <= 0 || count > maxIndexedRuns {
		count = maxIndexedRuns
	}
	ra.mu.Lock()
	runIds := make([]string, 0, count)
	for _, runId := range ra.index {
		if len(runIds) == count {
			break
		}
		runIds = append(runIds, runId)
	}
	ra.mu.Unlock()
	out := make([]model.RunReport, 0, len(runIds))
	for _, runId := range runIds {
		report, err := ra.GetRunReport(runId)
		if err != nil {
			continue
		}
		out = append(out, *report)
	}
	return out, nil
}
