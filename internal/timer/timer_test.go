package timer

import (
	"testing"
	"time"

	"github.com/veridie/veridie/internal/task"
)

func TestWaitForSchedulesAndResumes(t *testing.T) {
	q := &task.Queue{}
	var scheduled []time.Duration
	var pending func()
	tm := New(func(resume func(), delay time.Duration) {
		scheduled = append(scheduled, delay)
		pending = resume
	})

	woke := false
	tk := task.Void(func(c *task.Ctx) error {
		if err := tm.WaitFor(c, 250*time.Millisecond); err != nil {
			return err
		}
		woke = true
		return nil
	})
	tk.Run(q, nil)
	q.Drain()

	if len(scheduled) != 1 || scheduled[0] != 250*time.Millisecond {
		t.Fatalf("scheduled = %v", scheduled)
	}
	if woke {
		t.Fatal("task resumed before the scheduler fired")
	}
	pending()
	q.Drain()
	if !woke {
		t.Fatal("task did not resume")
	}
}

func TestNegativeDelayClampsToZero(t *testing.T) {
	q := &task.Queue{}
	var scheduled []time.Duration
	var pending func()
	tm := New(func(resume func(), delay time.Duration) {
		scheduled = append(scheduled, delay)
		pending = resume
	})

	tk := task.Void(func(c *task.Ctx) error {
		return tm.WaitFor(c, -5*time.Second)
	})
	tk.Run(q, nil)
	q.Drain()
	if len(scheduled) != 1 || scheduled[0] != 0 {
		t.Fatalf("scheduled = %v, want [0s]", scheduled)
	}
	pending()
	q.Drain()
	if !tk.Done() {
		t.Fatal("task did not complete")
	}
}

func TestCanceledWhileWaiting(t *testing.T) {
	q := &task.Queue{}
	var pending func()
	tm := New(func(resume func(), delay time.Duration) { pending = resume })

	reached := false
	tk := task.Void(func(c *task.Ctx) error {
		if err := tm.WaitFor(c, time.Second); err != nil {
			return err
		}
		reached = true
		return nil
	})
	tk.Run(q, nil)
	q.Drain()
	tk.Cancel()
	pending()
	q.Drain()
	if reached {
		t.Fatal("body continued past a canceled wait")
	}
}
