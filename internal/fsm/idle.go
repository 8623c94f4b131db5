package fsm

import (
	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/task"
)

// stateIdle waits for the radio and a new-game request. On entry it keeps
// asking the host to enable the radio until the answer is final.
type stateIdle struct {
	stateBase
	ctx Context

	newGamePending bool
	bluetoothOn    bool
	enableBt       *task.Task[task.Unit]
}

func newStateIdle(ctx Context, startNewGame bool) *stateIdle {
	s := &stateIdle{stateBase: newStateBase(ctx.Exec), ctx: ctx}
	logStateEntry("StateIdle")
	s.startEnableBt()
	command.CommandPool().ShrinkToFit()

	if startNewGame {
		s.OnNewGame()
	}
	return s
}

func (s *stateIdle) Kind() StateKind { return KindIdle }

func (s *stateIdle) OnBluetoothOn() {
	s.bluetoothOn = true
	if s.enableBt != nil {
		s.enableBt.Cancel()
		s.enableBt = nil
	}
	if s.newGamePending {
		s.toConnecting()
	}
}

func (s *stateIdle) OnBluetoothOff() {
	s.bluetoothOn = false
	if s.enableBt == nil || !s.enableBt.Alive() {
		s.startEnableBt()
	}
}

func (s *stateIdle) OnNewGame() {
	s.newGamePending = true
	if s.bluetoothOn {
		s.toConnecting()
	} else if s.enableBt == nil || !s.enableBt.Alive() {
		s.startEnableBt()
	}
}

func (s *stateIdle) toConnecting() {
	switchTo(s.ctx, KindConnecting, func(ctx Context) State {
		return newStateConnecting(ctx)
	})
}

func (s *stateIdle) startEnableBt() {
	t := task.Void(s.requestBluetoothOn)
	s.tasks.Start(t)
	s.enableBt = t
}

// requestBluetoothOn loops until EnableBluetooth settles: transient
// failures retry after a fixed delay, OK proceeds, USER_DECLINED stops
// retrying until the next new-game request, and a missing adapter is
// fatal.
func (s *stateIdle) requestBluetoothOn(tc *task.Ctx) error {
	for !s.bluetoothOn {
		code, err := s.ctx.Proxy.Command(tc, command.NewEnableBluetooth())
		if err != nil {
			return err
		}
		switch code {
		case command.InteropFailure, command.InvalidState:
			if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
				return err
			}
		case command.OK:
			if s.newGamePending {
				s.toConnecting()
			}
			s.bluetoothOn = true
		case command.NoBTAdapter:
			s.ctx.Proxy.FireAndForget(command.NewShowAndExit(fatalFailureText))
			switchToTerminal(s.ctx)
			return nil
		case command.UserDeclined:
			return nil
		default:
			if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
				return err
			}
		}
	}
	return nil
}
