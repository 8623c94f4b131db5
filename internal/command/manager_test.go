package command

import (
	"errors"
	"testing"
	"time"

	"github.com/veridie/veridie/internal/task"
)

type issued struct {
	cmd  *Command
	name string
	id   int32
}

type fakeInvoker struct {
	refuse bool
	calls  []issued
}

func (f *fakeInvoker) Invoke(c *Command, id int32) bool {
	if f.refuse {
		return false
	}
	f.calls = append(f.calls, issued{cmd: c, name: c.Name(), id: id})
	return true
}

func awaitCode(t *testing.T, q *task.Queue, f Future) (get func() (Code, error), done func() bool) {
	t.Helper()
	var code Code
	var awaitErr error
	tk := task.Void(func(c *task.Ctx) error {
		code, awaitErr = f.Await(c)
		return nil
	})
	tk.Run(q, nil)
	return func() (Code, error) { return code, awaitErr }, tk.Done
}

func TestIssueAndSubmitResponse(t *testing.T) {
	q := &task.Queue{}
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)

	f := m.IssueBT(NewSendMessage("hi", "aa:bb"))
	if len(bt.calls) != 1 {
		t.Fatalf("bt invoker calls = %d, want 1", len(bt.calls))
	}
	if got := bt.calls[0].id; got != int32(KindSendMessage) {
		t.Fatalf("first id = %d, want base %d", got, KindSendMessage)
	}

	get, done := awaitCode(t, q, f)
	q.Drain()
	if done() {
		t.Fatal("awaiter resolved before the response arrived")
	}
	m.SubmitResponse(bt.calls[0].id, OK)
	q.Drain()
	if !done() {
		t.Fatal("awaiter did not resolve")
	}
	if code, err := get(); err != nil || code != OK {
		t.Fatalf("code = %v err = %v, want OK", code, err)
	}
	if len(m.pending) != 0 {
		t.Fatalf("pending entries = %d, want 0", len(m.pending))
	}
}

func TestIdsIncrementWhileOutstanding(t *testing.T) {
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	for i := 0; i < 3; i++ {
		m.IssueBT(NewSendMessage("x", "aa"))
	}
	for i, call := range bt.calls {
		want := int32(KindSendMessage) + int32(i)
		if call.id != want {
			t.Fatalf("call %d id = %d, want %d", i, call.id, want)
		}
	}
}

func TestKindExhaustionFailsSynchronously(t *testing.T) {
	q := &task.Queue{}
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	for i := 0; i < maxPerKind; i++ {
		m.IssueBT(NewSendMessage("x", "aa"))
	}
	calls := len(bt.calls)

	f := m.IssueBT(NewSendMessage("overflow", "aa"))
	if len(bt.calls) != calls {
		t.Fatal("invoker called after the kind's id range was exhausted")
	}
	get, done := awaitCode(t, q, f)
	q.Drain()
	if !done() {
		t.Fatal("exhausted issue did not resolve synchronously")
	}
	if code, _ := get(); code != InteropFailure {
		t.Fatalf("code = %v, want INTEROP_FAILURE", code)
	}
}

func TestRefusedInvokerReleasesID(t *testing.T) {
	q := &task.Queue{}
	ui := &fakeInvoker{}
	bt := &fakeInvoker{refuse: true}
	m := NewManager(ui, bt)

	f := m.IssueBT(NewSendMessage("x", "aa"))
	get, done := awaitCode(t, q, f)
	q.Drain()
	if !done() {
		t.Fatal("refused issue did not resolve synchronously")
	}
	if code, _ := get(); code != InteropFailure {
		t.Fatalf("code = %v, want INTEROP_FAILURE", code)
	}
	if len(m.pending) != 0 {
		t.Fatal("refused issue left a pending entry")
	}

	bt.refuse = false
	m.IssueBT(NewSendMessage("x", "aa"))
	if bt.calls[0].id != int32(KindSendMessage) {
		t.Fatalf("id = %d, want the released base id", bt.calls[0].id)
	}
}

func TestInvokerNeverSeesPendingID(t *testing.T) {
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	seen := map[int32]bool{}
	for i := 0; i < 10; i++ {
		m.IssueBT(NewSendMessage("x", "aa"))
		id := bt.calls[len(bt.calls)-1].id
		if seen[id] {
			t.Fatalf("id %d handed out twice while outstanding", id)
		}
		seen[id] = true
	}
}

func TestOrphanedResponseErased(t *testing.T) {
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	m.IssueBT(NewSendMessage("x", "aa")) // never awaited
	m.SubmitResponse(bt.calls[0].id, OK)
	if len(m.pending) != 0 {
		t.Fatal("orphaned response did not erase the entry")
	}
}

func TestLateResponseIgnored(t *testing.T) {
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	m.SubmitResponse(12345, OK) // no such command
	if len(m.pending) != 0 {
		t.Fatal("late response created state")
	}
}

func TestCloseResumesAwaitersWithInteropFailure(t *testing.T) {
	q := &task.Queue{}
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)

	f1 := m.IssueBT(NewSendMessage("x", "aa"))
	f2 := m.IssueUI(NewShowNotification("hello"))
	get1, done1 := awaitCode(t, q, f1)
	get2, done2 := awaitCode(t, q, f2)
	q.Drain()

	m.Close()
	q.Drain()
	if !done1() || !done2() {
		t.Fatal("awaiters left hanging after Close")
	}
	if code, _ := get1(); code != InteropFailure {
		t.Fatalf("code1 = %v, want INTEROP_FAILURE", code)
	}
	if code, _ := get2(); code != InteropFailure {
		t.Fatalf("code2 = %v, want INTEROP_FAILURE", code)
	}
	if len(m.pending) != 0 {
		t.Fatal("pending entries survived Close")
	}
}

func TestCanceledAwaiterPropagatesErrCanceled(t *testing.T) {
	q := &task.Queue{}
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)

	f := m.IssueBT(NewSendMessage("x", "aa"))
	var awaitErr error
	tk := task.Void(func(c *task.Ctx) error {
		_, awaitErr = f.Await(c)
		return awaitErr
	})
	tk.Run(q, nil)
	q.Drain()
	tk.Cancel()
	m.SubmitResponse(bt.calls[0].id, OK)
	q.Drain()
	if !errors.Is(awaitErr, task.ErrCanceled) {
		t.Fatalf("await err = %v, want ErrCanceled", awaitErr)
	}
	if len(m.pending) != 0 {
		t.Fatal("canceled await left a pending entry")
	}
}

func TestAdapterRoutesByKind(t *testing.T) {
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	a := NewAdapter(NewManager(ui, bt))
	a.FireAndForget(NewShowToast("hi", 3*time.Second))
	a.FireAndForget(NewCloseConnection("", "aa"))
	if len(ui.calls) != 1 || ui.calls[0].name != "ShowToast" {
		t.Fatalf("ui calls = %+v", ui.calls)
	}
	if len(bt.calls) != 1 || bt.calls[0].name != "CloseConnection" {
		t.Fatalf("bt calls = %+v", bt.calls)
	}
}

func TestPoolRecyclesShells(t *testing.T) {
	pool.ShrinkToFit()
	ui, bt := &fakeInvoker{}, &fakeInvoker{}
	m := NewManager(ui, bt)
	m.IssueBT(NewSendMessage("x", "aa"))
	m.SubmitResponse(bt.calls[0].id, OK) // orphaned, recycled
	if pool.Spare() != 1 {
		t.Fatalf("spare = %d, want 1", pool.Spare())
	}
	pool.Resize(4)
	if pool.Spare() != 4 {
		t.Fatalf("spare = %d, want 4", pool.Spare())
	}
	pool.ShrinkToFit()
	if pool.Spare() != 0 {
		t.Fatalf("spare = %d, want 0", pool.Spare())
	}
}
