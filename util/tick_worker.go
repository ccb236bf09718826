package util

import (
	"sync"
	"time"

	"github.com/mohitkumar/conveyor/logger"
	"go.uber.org/zap"
)

// TickWorker invokes fn on a fixed interval until stopped.
type TickWorker struct {
	name         string
	tickInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
	wg           *sync.WaitGroup
	fn           func()
}

func NewTickWorker(name string, interval time.Duration, fn func(), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		name:         name,
		tickInterval: interval,
		stop:         make(chan struct{}),
		wg:           wg,
		fn:           fn,
	}
}

func (tw *TickWorker) Start() {
	ticker := time.NewTicker(tw.tickInterval)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		for {
			select {
			case <-ticker.C:
				tw.fn()
			case <-tw.stop:
				logger.Info("stopping tick worker", zap.String("worker", tw.name))
				ticker.Stop()
				return
			}
		}
	}()
}

func (tw *TickWorker) Stop() {
	tw.stopOnce.Do(func() { close(tw.stop) })
}
