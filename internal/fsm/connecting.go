package fsm

import (
	"time"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/wire"
)

// stateConnecting discovers and admits peers. It runs discovery and
// listening side by side, greets every connection with a Hello carrying
// the peer's own address, and moves on to negotiation once connectivity
// is established and the local address is known.
type stateConnecting struct {
	stateBase
	ctx Context

	peers       map[string]Peer
	localMac    *string
	discovering *bool
	listening   *bool
	retryStart  *task.Task[task.Unit]
}

func newStateConnecting(ctx Context) *stateConnecting {
	s := &stateConnecting{
		stateBase: newStateBase(ctx.Exec),
		ctx:       ctx,
		peers:     make(map[string]Peer),
	}
	logStateEntry("StateConnecting")
	s.tasks.Start(task.Void(s.kickOffDiscovery))
	s.tasks.Start(task.Void(s.kickOffListening))
	return s
}

func (s *stateConnecting) Kind() StateKind { return KindConnecting }

func (s *stateConnecting) shutdown() {
	if s.discovering != nil && *s.discovering {
		s.ctx.Proxy.FireAndForget(command.NewStopDiscovery())
	}
	if s.listening != nil && *s.listening {
		s.ctx.Proxy.FireAndForget(command.NewStopListening())
	}
}

func (s *stateConnecting) OnBluetoothOff() {
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, true)
	})
}

func (s *stateConnecting) OnDeviceConnected(remote Peer) {
	s.peers[remote.Mac] = remote
	s.tasks.Start(task.Void(s.sendHelloTo(remote.Mac)))
}

func (s *stateConnecting) OnDeviceDisconnected(remote Peer) {
	delete(s.peers, remote.Mac)
}

func (s *stateConnecting) OnMessageReceived(sender Peer, message string) {
	if _, known := s.peers[sender.Mac]; !known {
		s.OnDeviceConnected(sender)
	}

	if s.localMac != nil {
		return
	}

	decoded, err := s.ctx.Serializer.Deserialize(message)
	if err != nil {
		logging.Errorf(tag, "StateConnecting.OnMessageReceived: %v", err)
		return
	}
	hello, ok := decoded.(wire.Hello)
	if !ok {
		logging.Errorf(tag, "StateConnecting.OnMessageReceived: unexpected %T", decoded)
		return
	}
	mac := hello.Mac
	s.localMac = &mac
}

func (s *stateConnecting) OnSocketReadFailure(from Peer) {
	if _, known := s.peers[from.Mac]; known {
		delete(s.peers, from.Mac)
		s.tasks.Start(task.Void(s.disconnectDevice(from.Mac)))
	}
}

func (s *stateConnecting) OnConnectivityEstablished() {
	if s.retryStart != nil && s.retryStart.Alive() {
		return
	}
	t := task.Void(s.attemptNegotiationStart)
	s.tasks.Start(t)
	s.retryStart = t
}

func (s *stateConnecting) OnGameStopped() {
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
}

func (s *stateConnecting) detectFatalFailure() {
	if s.listening != nil && !*s.listening && s.discovering != nil && !*s.discovering {
		s.ctx.Proxy.FireAndForget(command.NewShowAndExit(fatalFailureText))
		switchToTerminal(s.ctx)
	}
}

// sendHelloTo greets a fresh connection with the peer's own address so it
// learns what the rest of the group knows it as.
func (s *stateConnecting) sendHelloTo(mac string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		hello, err := s.ctx.Serializer.Serialize(wire.Hello{Mac: mac})
		if err != nil {
			return err
		}

		retriesLeft := s.ctx.Params.MaxSendRetries
		for {
			if _, known := s.peers[mac]; !known {
				return nil
			}

			code, err := s.ctx.Proxy.Command(tc, command.NewSendMessage(hello, mac))
			if err != nil {
				return err
			}

			if code == command.ConnectionNotFound {
				s.OnDeviceDisconnected(Peer{Mac: mac})
			} else if code == command.SocketError {
				delete(s.peers, mac)
				s.tasks.Start(task.Void(s.disconnectDevice(mac)))
			}

			retriesLeft--
			if retriesLeft <= 0 || code != command.InvalidState {
				return nil
			}
		}
	}
}

// disconnectDevice issues CloseConnection until the transport accepts it.
func (s *stateConnecting) disconnectDevice(mac string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		for {
			code, err := s.ctx.Proxy.Command(tc, command.NewCloseConnection("", mac))
			if err != nil {
				return err
			}
			if code != command.InvalidState {
				return nil
			}
		}
	}
}

// attemptNegotiationStart polls for the local address, keeping the user
// informed, and gives up after the start budget by resetting the game.
func (s *stateConnecting) attemptNegotiationStart(tc *task.Ctx) error {
	retriesLeft := s.ctx.Params.MaxGameStartRetries
	for {
		if s.localMac != nil {
			command.CommandPool().Resize(len(s.peers))
			peers := s.peers
			localMac := *s.localMac
			switchTo(s.ctx, KindNegotiating, func(ctx Context) State {
				return newStateNegotiating(ctx, peers, localMac)
			})
			return nil
		}

		if retriesLeft%3 == 0 {
			s.ctx.Proxy.FireAndForget(command.NewShowToast("Getting ready...", 3*time.Second))
		}

		if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
			return err
		}

		retriesLeft--
		if retriesLeft <= 0 {
			break
		}
	}

	s.ctx.Proxy.FireAndForget(command.NewResetGame())
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
	return nil
}

// kickOffDiscovery starts scanning for peers, retrying transient
// failures a bounded number of times.
func (s *stateConnecting) kickOffDiscovery(tc *task.Ctx) error {
	retriesLeft := s.ctx.Params.MaxDiscoveryRetries
	var code command.Code
	for {
		var err error
		code, err = s.ctx.Proxy.Command(tc, command.NewStartDiscovery(
			s.ctx.Params.UUID, s.ctx.Params.ServiceName, true))
		if err != nil {
			return err
		}

		switch code {
		case command.OK:
			on := true
			s.discovering = &on
		case command.BluetoothOff:
			s.OnBluetoothOff()
		case command.InvalidState:
			if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
				return err
			}
		default:
			off := false
			s.discovering = &off
		}

		again := retriesLeft > 0 && code == command.InvalidState
		retriesLeft--
		if !again {
			break
		}
	}

	if code == command.InvalidState {
		off := false
		s.discovering = &off
		s.detectFatalFailure()
	}
	return nil
}

// kickOffListening makes the node discoverable, retrying transient
// failures a bounded number of times.
func (s *stateConnecting) kickOffListening(tc *task.Ctx) error {
	retriesLeft := s.ctx.Params.MaxListeningRetries
	for {
		code, err := s.ctx.Proxy.Command(tc, command.NewStartListening(
			s.ctx.Params.UUID, s.ctx.Params.ServiceName, s.ctx.Params.Discoverability))
		if err != nil {
			return err
		}

		switch code {
		case command.OK:
			on := true
			s.listening = &on
			return nil
		case command.BluetoothOff:
			s.OnBluetoothOff()
			return nil
		case command.UserDeclined:
			off := false
			s.listening = &off
			s.detectFatalFailure()
			return nil
		default:
			if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
				return err
			}
		}

		again := retriesLeft > 0
		retriesLeft--
		if !again {
			break
		}
	}

	off := false
	s.listening = &off
	s.detectFatalFailure()
	return nil
}
