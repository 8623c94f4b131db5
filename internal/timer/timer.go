// Package timer schedules task resumption after a delay. The timer has no
// thread of its own: it hands the continuation and the delay to an
// injected scheduler that eventually invokes the continuation on the
// executor's dispatch context.
package timer

import (
	"time"

	"github.com/veridie/veridie/internal/task"
)

// Scheduler arranges for resume to be invoked once, after delay, from the
// executor's dispatch context.
type Scheduler func(resume func(), delay time.Duration)

// Timer turns a Scheduler into an awaitable delay.
type Timer struct {
	schedule Scheduler
}

// New creates a timer backed by the given scheduler.
func New(schedule Scheduler) *Timer {
	return &Timer{schedule: schedule}
}

// WaitFor suspends the calling task for the given delay. Negative delays
// clamp to zero.
func (t *Timer) WaitFor(ctx *task.Ctx, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	return ctx.Suspend(func(resume func()) {
		t.schedule(resume, delay)
	})
}
