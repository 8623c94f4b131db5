// Package fsm drives the peer-group lifecycle: Idle, Connecting,
// Negotiating and Playing, plus the empty terminal holder reached after a
// fatal failure. States receive the host's events, spawn tasks for every
// external action, and hand over through a zero-delay timer hop so a
// state is never entered while its predecessor is still tearing down.
package fsm

import (
	"time"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/journal"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/timer"
	"github.com/veridie/veridie/internal/wire"
)

const tag = "FSM"

const fatalFailureText = "Cannot proceed due to a fatal failure."

// Peer is a remote participant. Identity is the address; the name is for
// display only.
type Peer struct {
	Mac  string
	Name string
}

// Params carries the tunable constants of the lifecycle. Defaults match
// the protocol contract; hosts may override through configuration.
type Params struct {
	UUID            string
	ServiceName     string
	Discoverability time.Duration
	IgnoreOffers    time.Duration

	RoundsPerGenerator  int
	MaxSendRetries      int
	RequestAttempts     int
	MaxGameStartRetries int
	MaxDiscoveryRetries int
	MaxListeningRetries int
	SendRetries         int
	RetryDelay          time.Duration
}

// DefaultParams returns the protocol defaults.
func DefaultParams() Params {
	return Params{
		UUID:                "76445157-4f39-42e9-a62e-877390cbb4bb",
		ServiceName:         "VeriDie",
		Discoverability:     5 * time.Minute,
		IgnoreOffers:        10 * time.Second,
		RoundsPerGenerator:  10,
		MaxSendRetries:      10,
		RequestAttempts:     3,
		MaxGameStartRetries: 30,
		MaxDiscoveryRetries: 2,
		MaxListeningRetries: 2,
		SendRetries:         5,
		RetryDelay:          time.Second,
	}
}

// StateKind tags the state variants.
type StateKind int

const (
	KindIdle StateKind = iota
	KindConnecting
	KindNegotiating
	KindPlaying
)

func (k StateKind) String() string {
	switch k {
	case KindIdle:
		return "StateIdle"
	case KindConnecting:
		return "StateConnecting"
	case KindNegotiating:
		return "StateNegotiating"
	case KindPlaying:
		return "StatePlaying"
	}
	return "Unknown"
}

// State is the uniform event interface of the four lifecycle states.
type State interface {
	OnBluetoothOn()
	OnBluetoothOff()
	OnDeviceConnected(remote Peer)
	OnDeviceDisconnected(remote Peer)
	OnConnectivityEstablished()
	OnNewGame()
	OnMessageReceived(sender Peer, message string)
	OnCastRequest(req wire.Request)
	OnGameStopped()
	OnSocketReadFailure(from Peer)

	Kind() StateKind
	// Err reports the first stored failure of a background task, so the
	// host can surface it deterministically at the next event.
	Err() error
	owner() *task.Owner
	shutdown()
}

// Holder holds the current state, or nothing after a fatal failure.
type Holder struct {
	state State
}

// NewHolder creates an empty holder.
func NewHolder() *Holder { return &Holder{} }

// Current returns the active state, or nil.
func (h *Holder) Current() State { return h.state }

// Clear tears the active state down; used by hosts on shutdown.
func (h *Holder) Clear() { h.clear() }

// clear tears the active state down: its owned tasks are canceled before
// anything else can run.
func (h *Holder) clear() {
	if h.state == nil {
		return
	}
	s := h.state
	h.state = nil
	s.owner().CancelAll()
	s.shutdown()
}

// Context is everything a state needs: the injected collaborators, the
// lifecycle constants, the process-wide negotiation round counter and the
// state holder.
type Context struct {
	Engine     dice.Engine
	Serializer wire.Serializer
	Timer      *timer.Timer
	Proxy      command.Adapter
	Params     Params
	Round      *uint32
	Journal    *journal.Emitter
	Holder     *Holder
	Exec       task.Executor
}

// Start enters the initial Idle state.
func Start(ctx Context) {
	switchTo(ctx, KindIdle, func(ctx Context) State { return newStateIdle(ctx, false) })
}

// switchTo replaces the current state with one built by build. The
// transition runs as a detached task behind a zero-delay timer hop, so
// the outgoing state's teardown never runs under one of its own methods.
// If the current state already has the target kind, nothing happens.
func switchTo(ctx Context, kind StateKind, build func(Context) State) {
	t := task.Void(func(tc *task.Ctx) error {
		if err := ctx.Timer.WaitFor(tc, 0); err != nil {
			return err
		}
		if cur := ctx.Holder.state; cur != nil && cur.Kind() == kind {
			return nil
		}
		ctx.Holder.clear()
		ctx.Holder.state = build(ctx)
		ctx.Journal.Emit(journal.KindState, kind.String())
		return nil
	})
	t.Run(ctx.Exec, nil)
}

// switchToTerminal clears the state holder for good; only a process
// restart leaves the terminal pseudo-state.
func switchToTerminal(ctx Context) {
	t := task.Void(func(tc *task.Ctx) error {
		if err := ctx.Timer.WaitFor(tc, 0); err != nil {
			return err
		}
		ctx.Holder.clear()
		ctx.Journal.Emit(journal.KindState, "Terminal")
		return nil
	})
	t.Run(ctx.Exec, nil)
}

// stateBase supplies no-op handlers for the events a state ignores and
// the task bag canceled on teardown.
type stateBase struct {
	tasks *task.Owner
}

func newStateBase(exec task.Executor) stateBase {
	return stateBase{tasks: task.NewOwner(exec)}
}

func (b *stateBase) OnBluetoothOn()                 {}
func (b *stateBase) OnBluetoothOff()                {}
func (b *stateBase) OnDeviceConnected(Peer)         {}
func (b *stateBase) OnDeviceDisconnected(Peer)      {}
func (b *stateBase) OnConnectivityEstablished()     {}
func (b *stateBase) OnNewGame()                     {}
func (b *stateBase) OnMessageReceived(Peer, string) {}
func (b *stateBase) OnCastRequest(wire.Request)     {}
func (b *stateBase) OnGameStopped()                 {}
func (b *stateBase) OnSocketReadFailure(Peer)       {}
func (b *stateBase) Err() error                     { return b.tasks.Err() }
func (b *stateBase) owner() *task.Owner             { return b.tasks }
func (b *stateBase) shutdown()                      {}

func logStateEntry(name string) {
	logging.Infof(tag, "New state: %s", name)
}
