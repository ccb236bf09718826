package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mohitkumar/conveyor/model"
)

// ExecutionSlot is one unit of scheduling capacity, leased exclusively by
// one job at a time and returned to the pool when the job completes.
type ExecutionSlot struct {
	id int
}

func (s *ExecutionSlot) Id() int {
	return s.id
}

type SlotTimeoutError struct {
	Budget time.Duration
}

func (e SlotTimeoutError) Error() string {
	return fmt.Sprintf("%s: no execution slot freed within %s", model.REASON_SLOT_TIMEOUT, e.Budget)
}

// SlotPool hands out execution slots. Acquire blocks until a slot frees
// up, the wait budget elapses or ctx is cancelled.
type SlotPool struct {
	slots      chan *ExecutionSlot
	waitBudget time.Duration
}

// NewSlotPool creates a pool of count slots. A waitBudget of zero waits
// indefinitely.
func NewSlotPool(count int, waitBudget time.Duration) *SlotPool {
	slots := make(chan *ExecutionSlot, count)
	for i := 0; i < count; i++ {
		slots <- &ExecutionSlot{id: i}
	}
	return &SlotPool{
		slots:      slots,
		waitBudget: waitBudget,
	}
}

func (p *SlotPool) Size() int {
	return cap(p.slots)
}

func (p *SlotPool) Acquire(ctx context.Context) (*ExecutionSlot, error) {
	if p.waitBudget <= 0 {
		select {
		case slot := <-p.slots:
			return slot, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	timer := time.NewTimer(p.waitBudget)
	defer timer.Stop()
	select {
	case slot := <-p.slots:
		return slot, nil
	case <-timer.C:
		return nil, SlotTimeoutError{Budget: p.waitBudget}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *SlotPool) Release(slot *ExecutionSlot) {
	if slot == nil {
		return
	}
	p.slots <- slot
}
