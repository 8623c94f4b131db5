// Package task implements the cooperative task runtime the coordination
// core runs on: suspendable computations with parent/child cancellation
// propagation, driven by a pluggable single-threaded executor.
//
// A task body is an ordinary function that receives a *Ctx. Construction
// does not start the body; Run posts the first resume to the executor.
// Every suspension parks the body's goroutine and hands control back to
// whichever executor dispatch resumed it, so at most one body executes at
// any instant and the whole runtime behaves as a single logical thread.
//
// Cancellation is observed, never forced: canceling a task marks a flag
// that the next suspension-point resume turns into ErrCanceled, which the
// body propagates up through its error returns.
package task

import "errors"

// ErrCanceled is returned from a suspension point after the task, or an
// ancestor it observes, has been canceled.
var ErrCanceled = errors.New("task canceled")

// Unit is the result type of tasks that produce no value.
type Unit = struct{}

// Task is a suspendable computation producing a value of type T. The zero
// value is not usable; use New.
type Task[T any] struct {
	body func(*Ctx) (T, error)

	started  bool
	done     bool
	canceled bool
	parent   *bool // observed, never owned
	exec     Executor
	cont     func() // awaiter continuation, posted on completion

	result T
	err    error

	resumeCh chan struct{}
	yieldCh  chan struct{}
}

// New builds a task from its body. The body does not run until the task
// is started with Run or awaited.
func New[T any](body func(*Ctx) (T, error)) *Task[T] {
	return &Task[T]{body: body}
}

// Void builds a unit task from an error-only body.
func Void(body func(*Ctx) error) *Task[Unit] {
	return New(func(c *Ctx) (Unit, error) { return Unit{}, body(c) })
}

// Run starts the task under exec. The body runs up to its first
// suspension point when the executor dispatches the initial resume.
// parent, when non-nil, is an additional cancellation flag observed at
// every suspension point. Run is a no-op on a task already started.
func (t *Task[T]) Run(exec Executor, parent *bool) {
	if t.started {
		return
	}
	t.started = true
	t.exec = exec
	t.parent = parent
	t.resumeCh = make(chan struct{})
	t.yieldCh = make(chan struct{})

	ctx := &Ctx{
		exec:     exec,
		canceled: &t.canceled,
		parent:   parent,
		resumeCh: t.resumeCh,
		yieldCh:  t.yieldCh,
	}
	ctx.afterStep = t.completion

	go func() {
		<-t.resumeCh
		if ctx.isCanceled() {
			t.err = ErrCanceled
		} else {
			t.result, t.err = t.body(ctx)
		}
		t.done = true
		t.yieldCh <- struct{}{}
	}()

	exec.Execute(t.step)
}

// step transfers control to the parked body until it suspends again or
// finishes. It is the continuation handed to timers, command futures and
// awaited children; it must only be invoked from the executor's dispatch
// context.
func (t *Task[T]) step() {
	if !t.started || t.done {
		return
	}
	t.resumeCh <- struct{}{}
	<-t.yieldCh
	t.completion()
}

// completion posts the awaiter continuation once the body has finished.
// A canceled task never resumes its awaiter.
func (t *Task[T]) completion() {
	if t.done && !t.isCanceled() && t.cont != nil {
		cont := t.cont
		t.cont = nil
		t.exec.Execute(cont)
	}
}

func (t *Task[T]) isCanceled() bool {
	return t.canceled || (t.parent != nil && *t.parent)
}

// Cancel marks the task canceled. The body is not unwound in place; its
// next resume observes the flag and terminates with ErrCanceled.
func (t *Task[T]) Cancel() { t.canceled = true }

// Alive reports whether the task has started and not yet completed.
func (t *Task[T]) Alive() bool { return t.started && !t.done }

// Done reports whether the task has completed.
func (t *Task[T]) Done() bool { return t.done }

// Err returns the stored error of a completed task, or nil.
func (t *Task[T]) Err() error {
	if !t.done {
		return nil
	}
	return t.err
}

// Result returns the stored result and error of a completed task.
func (t *Task[T]) Result() (T, error) { return t.result, t.err }

// Await suspends the calling task until t completes and returns its
// result. An unstarted t is first started under the caller's executor.
// t observes one flag besides its own: the caller's inherited parent flag
// when the caller has one, otherwise the caller's own flag. Canceling a
// caller that has no parent flag therefore cancels t at its next
// resumption; canceling a caller that has one does not reach t.
func Await[T any](ctx *Ctx, t *Task[T]) (T, error) {
	if !t.started {
		t.Run(ctx.exec, ctx.childFlag())
	}
	if t.done {
		var zero T
		if ctx.isCanceled() {
			return zero, ErrCanceled
		}
		return t.result, t.err
	}
	if err := ctx.Suspend(func(resume func()) { t.cont = resume }); err != nil {
		var zero T
		return zero, err
	}
	return t.result, t.err
}

// Ctx is the in-body handle to the runtime: it carries the executor, the
// cancellation flags and the suspension machinery.
type Ctx struct {
	exec      Executor
	canceled  *bool
	parent    *bool
	resumeCh  chan struct{}
	yieldCh   chan struct{}
	afterStep func()
}

// Executor returns the executor the task runs under.
func (c *Ctx) Executor() Executor { return c.exec }

// Suspend parks the body after register has wired the resume continuation
// into whatever will eventually fire it. resume must be invoked from the
// executor's dispatch context, at most once, and never synchronously from
// within register. Suspend returns ErrCanceled if a cancellation flag was
// raised by the time the task is resumed.
func (c *Ctx) Suspend(register func(resume func())) error {
	register(c.resumeFn())
	c.yieldCh <- struct{}{}
	<-c.resumeCh
	if c.isCanceled() {
		return ErrCanceled
	}
	return nil
}

// resumeFn returns the continuation that steps this task. The indirection
// keeps Ctx decoupled from the task's result type.
func (c *Ctx) resumeFn() func() {
	fired := false
	return func() {
		if fired {
			return
		}
		fired = true
		c.resumeCh <- struct{}{}
		<-c.yieldCh
		c.afterStep()
	}
}

func (c *Ctx) isCanceled() bool {
	return *c.canceled || (c.parent != nil && *c.parent)
}

// childFlag is the cancellation flag handed to children: the inherited
// parent flag when there is one, else this task's own flag.
func (c *Ctx) childFlag() *bool {
	if c.parent != nil {
		return c.parent
	}
	return c.canceled
}
