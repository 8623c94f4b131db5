package task

import "errors"

// Owner is a bag of unit tasks sharing one executor. States use it so
// that tearing the state down cancels every background task it spawned.
type Owner struct {
	exec  Executor
	tasks []*Task[Unit]
}

// NewOwner creates an owner dispatching on exec.
func NewOwner(exec Executor) *Owner {
	return &Owner{exec: exec}
}

// Executor returns the owner's executor.
func (o *Owner) Executor() Executor { return o.exec }

// Start runs t under the owner's executor and tracks it. Finished tasks
// are pruned on the way in, except those that failed with an error other
// than ErrCanceled: they stay tracked so Err keeps reporting them.
func (o *Owner) Start(t *Task[Unit]) {
	kept := o.tasks[:0]
	for _, owned := range o.tasks {
		if err := owned.Err(); owned.Alive() || (err != nil && !errors.Is(err, ErrCanceled)) {
			kept = append(kept, owned)
		}
	}
	o.tasks = kept
	o.tasks = append(o.tasks, t)
	t.Run(o.exec, nil)
}

// CancelAll cancels every owned task. Each one terminates at its next
// suspension-point resume.
func (o *Owner) CancelAll() {
	for _, t := range o.tasks {
		t.Cancel()
	}
}

// Err returns the first error stored by a completed owned task.
// Cancellation is an internal signal and is not reported.
func (o *Owner) Err() error {
	for _, t := range o.tasks {
		if err := t.Err(); err != nil && !errors.Is(err, ErrCanceled) {
			return err
		}
	}
	return nil
}
