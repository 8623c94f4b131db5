// Package ctrl ties the core together: it owns the command manager, the
// state holder and the negotiation round counter, and forwards the
// host's events and command responses into the state machine.
package ctrl

import (
	"strings"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/fsm"
	"github.com/veridie/veridie/internal/journal"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/timer"
	"github.com/veridie/veridie/internal/wire"
)

const eventTag = "Event"
const commandTag = "Command"

// Controller is the host's handle to the core. Every method must be
// called from the executor's dispatch context.
type Controller interface {
	// Start wires the outbound invokers and enters the initial state.
	// Calling Start twice has no effect.
	Start(ui, bt command.Invoker)
	// OnEvent delivers one inbound event.
	OnEvent(id int32, args []string)
	// OnCommandResponse delivers the host's answer to an issued command.
	OnCommandResponse(id int32, code command.Code)
	// Close tears down the state machine and resumes every pending
	// command awaiter with InteropFailure.
	Close()
}

// Options carries the controller's injected collaborators.
type Options struct {
	Engine     dice.Engine
	Timer      *timer.Timer
	Serializer wire.Serializer
	Executor   task.Executor
	Params     fsm.Params
	Journal    *journal.Emitter
}

type controller struct {
	opts    Options
	manager *command.Manager
	holder  *fsm.Holder
	round   uint32
}

// New creates a controller from its collaborators.
func New(opts Options) Controller {
	return &controller{opts: opts, holder: fsm.NewHolder()}
}

func (c *controller) Start(ui, bt command.Invoker) {
	if c.manager != nil {
		return
	}
	c.manager = command.NewManager(ui, bt)
	fsm.Start(fsm.Context{
		Engine:     c.opts.Engine,
		Serializer: c.opts.Serializer,
		Timer:      c.opts.Timer,
		Proxy:      command.NewAdapter(c.manager),
		Params:     c.opts.Params,
		Round:      &c.round,
		Journal:    c.opts.Journal,
		Holder:     c.holder,
		Exec:       c.opts.Executor,
	})
}

func (c *controller) OnEvent(id int32, args []string) {
	name, known := fsm.EventName(id)
	if !known {
		logging.Errorf(eventTag, "Event handler not found, id=%d", id)
		return
	}

	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(" [")
		sb.WriteString(arg)
		sb.WriteString("]")
	}
	logging.Infof(eventTag, "<<<<< %s%s", name, sb.String())

	state := c.holder.Current()
	if state == nil {
		logging.Errorf(eventTag, "OnEvent: no state")
		return
	}
	if err := state.Err(); err != nil {
		logging.Errorf(eventTag, "background task failed in %s: %v", state.Kind(), err)
	}
	if !fsm.DispatchEvent(state, id, args) {
		logging.Errorf(eventTag, "Could not parse event args")
	}
}

func (c *controller) OnCommandResponse(id int32, code command.Code) {
	if c.manager == nil {
		logging.Errorf(commandTag, "OnCommandResponse: no command manager")
		return
	}
	c.manager.SubmitResponse(id, code)
}

func (c *controller) Close() {
	c.holder.Clear()
	if c.manager != nil {
		c.manager.Close()
	}
}
