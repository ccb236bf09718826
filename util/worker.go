package util

import (
	"sync"

	"github.com/mohitkumar/conveyor/logger"
	"go.uber.org/zap"
)

// Worker drains a buffered channel of items on its own goroutine and hands
// each one to the handler. Items queued before Stop are still handled.
type Worker[T any] struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	wg       *sync.WaitGroup
	handler  func(T) error
	itemChan chan T
}

func NewWorker[T any](name string, wg *sync.WaitGroup, handler func(T) error, capacity int) *Worker[T] {
	return &Worker[T]{
		name:     name,
		stop:     make(chan struct{}),
		wg:       wg,
		handler:  handler,
		itemChan: make(chan T, capacity),
	}
}

func (w *Worker[T]) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case item := <-w.itemChan:
				w.handle(item)
			case <-w.stop:
				for {
					select {
					case item := <-w.itemChan:
						w.handle(item)
					default:
						logger.Info("stopping worker", zap.String("worker", w.name))
						return
					}
				}
			}
		}
	}()
}

func (w *Worker[T]) handle(item T) {
	if err := w.handler(item); err != nil {
		logger.Error("error handling item in worker", zap.String("worker", w.name), zap.Error(err))
	}
}

func (w *Worker[T]) Sender() chan<- T {
	return w.itemChan
}

func (w *Worker[T]) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}
