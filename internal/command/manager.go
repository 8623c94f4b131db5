// Package command bridges the core's task-oriented style to the two
// fire-and-reply outbound channels: every command is assigned a
// correlation id from its kind's range, handed to an external invoker,
// and the eventual response is routed back to the awaiting task.
package command

import (
	"errors"

	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
)

const tag = "Command"

// ErrShutdown is returned by Await when the manager has been closed, so
// retry loops terminate instead of reissuing against a dead manager.
var ErrShutdown = errors.New("command manager closed")

// invalidID marks a future that resolves to InteropFailure immediately.
const invalidID int32 = 0

// maxPerKind bounds outstanding commands of one kind; the id space per
// kind is Kind+0..Kind+255.
const maxPerKind = 256

// Invoker delivers a command with its correlation id to the host. It
// reports false when the command could not be handed off; the id is then
// released and the issuing future resolves to InteropFailure.
type Invoker interface {
	Invoke(c *Command, id int32) bool
}

type pendingCommand struct {
	cont func()
	code Code
	cmd  *Command
}

// Manager owns in-flight commands: correlation id allocation, response
// routing and shutdown resumption. Access is confined to the executor's
// dispatch context.
type Manager struct {
	ui      Invoker
	bt      Invoker
	pending map[int32]*pendingCommand
	closed  bool
}

// NewManager creates a manager over the two outbound invokers.
func NewManager(ui, bt Invoker) *Manager {
	return &Manager{ui: ui, bt: bt, pending: make(map[int32]*pendingCommand)}
}

// Future resolves to the response code of an issued command.
type Future struct {
	m  *Manager
	id int32
}

// IssueUI hands a command to the UI invoker.
func (m *Manager) IssueUI(c *Command) Future { return m.issue(c, m.ui) }

// IssueBT hands a command to the transport invoker.
func (m *Manager) IssueBT(c *Command) Future { return m.issue(c, m.bt) }

func (m *Manager) issue(c *Command, invoker Invoker) Future {
	if m.closed {
		pool.put(c)
		return Future{m, invalidID}
	}

	id := int32(c.Kind())
	for m.pending[id] != nil {
		id++
	}
	if id-int32(c.Kind()) >= maxPerKind {
		logging.Errorf(tag, "Command storage is full for %s", c.Name())
		pool.put(c)
		return Future{m, invalidID}
	}

	if !invoker.Invoke(c, id) {
		logging.Errorf(tag, "External invoker failed for %s", c.Name())
		pool.put(c)
		return Future{m, invalidID}
	}

	m.pending[id] = &pendingCommand{code: InteropFailure, cmd: c}
	return Future{m, id}
}

// SubmitResponse routes the host's response to the awaiting task. Unknown
// ids are logged and ignored; responses to commands nobody awaited erase
// the entry.
func (m *Manager) SubmitResponse(id int32, code Code) {
	p := m.pending[id]
	if p == nil {
		logging.Warnf(tag, "Response to a non-existing command, id=%d", id)
		return
	}
	if p.cont == nil {
		m.erase(id)
		logging.Infof(tag, "Orphaned response, id=%d", id)
		return
	}
	p.code = code
	cont := p.cont
	p.cont = nil
	cont()
}

// Close resumes every pending awaiter so it observes InteropFailure
// instead of hanging, and refuses further issues.
func (m *Manager) Close() {
	m.closed = true
	for len(m.pending) > 0 {
		for id, p := range m.pending {
			if p.cont != nil {
				cont := p.cont
				p.cont = nil
				cont()
				if m.pending[id] == p {
					// The awaiter was resumed but canceled before it
					// could consume the entry.
					m.erase(id)
				}
			} else {
				m.erase(id)
			}
			break
		}
	}
}

func (m *Manager) erase(id int32) {
	p := m.pending[id]
	if p == nil {
		return
	}
	delete(m.pending, id)
	if p.cmd != nil {
		pool.put(p.cmd)
		p.cmd = nil
	}
}

// Await suspends the calling task until the response arrives and returns
// its code. A future with an invalid id resolves synchronously.
func (f Future) Await(ctx *task.Ctx) (Code, error) {
	if f.id == invalidID {
		if f.m.closed {
			return InteropFailure, ErrShutdown
		}
		return InteropFailure, nil
	}
	p := f.m.pending[f.id]
	if p == nil {
		return InteropFailure, nil
	}
	err := ctx.Suspend(func(resume func()) { p.cont = resume })
	code := p.code
	f.m.erase(f.id)
	if err != nil {
		return InteropFailure, err
	}
	return code, nil
}
