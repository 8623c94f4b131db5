package fsm

import (
	"sort"
	"time"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/journal"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/timer"
	"github.com/veridie/veridie/internal/wire"
)

// peerManager handles one peer's traffic in Playing: connection errors,
// retries and buffering. Requests to the generator are retried on a
// timer; losing the generator triggers renegotiation. We assume no new
// request is issued until the last one has been answered.
type peerManager struct {
	remote      Peer
	proxy       command.Adapter
	timer       *timer.Timer
	params      Params
	renegotiate func()

	tasks          *task.Owner
	isGenerator    bool
	pendingRequest bool
	connected      bool
	queuedMessages []string
}

func newPeerManager(remote Peer, ctx Context, isGenerator bool, renegotiate func()) *peerManager {
	return &peerManager{
		remote:      remote,
		proxy:       ctx.Proxy,
		timer:       ctx.Timer,
		params:      ctx.Params,
		renegotiate: renegotiate,
		tasks:       task.NewOwner(ctx.Exec),
		isGenerator: isGenerator,
		connected:   true,
	}
}

// destroy cancels the manager's tasks and closes a lost connection.
func (m *peerManager) destroy() {
	m.tasks.CancelAll()
	if !m.connected {
		m.proxy.FireAndForget(command.NewCloseConnection("Connection has been lost", m.remote.Mac))
	}
}

func (m *peerManager) sendRequest(request string) {
	m.pendingRequest = true
	if m.isGenerator {
		m.tasks.Start(task.Void(m.sendRequestToGenerator(request)))
	} else {
		m.tasks.Start(task.Void(m.send(request)))
	}
}

func (m *peerManager) sendResponse(response string) {
	m.tasks.Start(task.Void(m.send(response)))
}

func (m *peerManager) onReceptionSuccess(answeredRequest bool) {
	m.connected = true
	if answeredRequest {
		m.pendingRequest = false
	}
}

func (m *peerManager) onReceptionFailure() {
	m.connected = false
	if m.isGenerator {
		m.renegotiate()
	}
}

// sendRequestToGenerator fires the request and waits for the answer to
// clear the pending flag; when the attempts run out the generator is
// declared unreachable.
func (m *peerManager) sendRequestToGenerator(request string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		for attempt := m.params.RequestAttempts; attempt > 0; attempt-- {
			m.tasks.Start(task.Void(m.send(request)))
			if err := m.timer.WaitFor(tc, m.params.RetryDelay); err != nil {
				return err
			}
			if !m.pendingRequest {
				return nil
			}
		}
		m.renegotiate()
		return nil
	}
}

// send ships one message, draining the queue while sends keep
// succeeding. Transient codes retry, success pops the next queued
// message, anything else parks the message on the queue and marks the
// peer disconnected.
func (m *peerManager) send(message string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		if len(message) > command.MaxLongMessageSize {
			m.proxy.FireAndForget(command.NewShowToast(
				"Cannot send too long message, try fewer dices", 7*time.Second))
			return nil
		}

		retriesLeft := m.params.SendRetries
		for {
			var cmd *command.Command
			if len(message) <= command.MaxMessageSize {
				cmd = command.NewSendMessage(message, m.remote.Mac)
			} else {
				cmd = command.NewSendLongMessage(message, m.remote.Mac)
			}
			code, err := m.proxy.Command(tc, cmd)
			if err != nil {
				return err
			}

			switch code {
			case command.InvalidState, command.InteropFailure:
				// transient, retry
			case command.OK:
				m.connected = true
				if len(m.queuedMessages) == 0 {
					return nil
				}
				last := len(m.queuedMessages) - 1
				message = m.queuedMessages[last]
				m.queuedMessages = m.queuedMessages[:last]
				retriesLeft = m.params.SendRetries + 1
			default:
				m.connected = false
				m.queuedMessages = append(m.queuedMessages, message)
				if m.isGenerator {
					m.renegotiate()
				}
				return nil
			}

			retriesLeft--
			if retriesLeft <= 0 {
				return nil
			}
		}
	}
}

// statePlaying runs the game: exactly one participant generates results.
// The local node either serves requests itself or relies on the remote
// generator, and rotates the generator out after the round budget.
type statePlaying struct {
	stateBase
	ctx Context

	localMac       string
	localGenerator bool
	managers       map[string]*peerManager
	pendingRequest *wire.Request
	ignoreOffers   *task.Task[task.Unit]
	responseCount  int
}

func newStatePlaying(ctx Context, peers map[string]Peer, localMac, generatorMac string) *statePlaying {
	s := &statePlaying{
		stateBase:      newStateBase(ctx.Exec),
		ctx:            ctx,
		localMac:       localMac,
		localGenerator: localMac == generatorMac,
		managers:       make(map[string]*peerManager, len(peers)),
	}
	logStateEntry("StatePlaying")

	ignore := task.Void(func(tc *task.Ctx) error {
		return ctx.Timer.WaitFor(tc, ctx.Params.IgnoreOffers)
	})
	s.tasks.Start(ignore)
	s.ignoreOffers = ignore

	for mac, peer := range peers {
		isGenerator := !s.localGenerator && mac == generatorMac
		s.managers[mac] = newPeerManager(peer, ctx, isGenerator, s.startNegotiation)
	}
	return s
}

func (s *statePlaying) Kind() StateKind { return KindPlaying }

func (s *statePlaying) shutdown() {
	for _, mgr := range s.managers {
		mgr.destroy()
	}
	s.managers = nil
}

func (s *statePlaying) OnBluetoothOff() {
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	s.ctx.Proxy.FireAndForget(command.NewResetGame())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
}

func (s *statePlaying) OnDeviceConnected(remote Peer) {
	if mgr, ok := s.managers[remote.Mac]; ok {
		mgr.onReceptionSuccess(true)
	}
}

func (s *statePlaying) OnMessageReceived(sender Peer, message string) {
	mgr, ok := s.managers[sender.Mac]
	if !ok {
		return
	}

	parsed, err := s.ctx.Serializer.Deserialize(message)
	if err != nil {
		logging.Errorf(tag, "StatePlaying.OnMessageReceived: %v", err)
		return
	}

	switch msg := parsed.(type) {
	case wire.Offer:
		mgr.onReceptionSuccess(s.pendingRequest == nil)
		if !s.ignoreOffers.Alive() {
			s.startNegotiationWithOffer(sender, message)
		}
	case wire.Response:
		if !mgr.isGenerator {
			return
		}
		if matches(msg, s.pendingRequest) {
			s.pendingRequest = nil
		}
		mgr.onReceptionSuccess(s.pendingRequest == nil)
		s.tasks.Start(task.Void(s.showResponse(msg, mgr.remote.Name)))
	case wire.Request:
		mgr.onReceptionSuccess(s.pendingRequest == nil)
		s.tasks.Start(task.Void(s.showRequest(msg, mgr.remote.Name)))
		if s.localGenerator {
			response := generateResponse(s.ctx.Engine, msg)
			encoded, err := s.ctx.Serializer.Serialize(response)
			if err != nil {
				logging.Errorf(tag, "StatePlaying.OnMessageReceived: %v", err)
				return
			}
			for _, peer := range s.sortedManagers() {
				peer.sendResponse(encoded)
			}
			s.tasks.Start(task.Void(s.showResponse(response, "You")))
		}
	}
}

func (s *statePlaying) OnCastRequest(localRequest wire.Request) {
	s.tasks.Start(task.Void(s.showRequest(localRequest, "You")))

	encodedRequest, err := s.ctx.Serializer.Serialize(localRequest)
	if err != nil {
		logging.Errorf(tag, "StatePlaying.OnCastRequest: %v", err)
		return
	}
	for _, mgr := range s.sortedManagers() {
		mgr.sendRequest(encodedRequest)
	}

	if s.localGenerator {
		response := generateResponse(s.ctx.Engine, localRequest)
		encodedResponse, err := s.ctx.Serializer.Serialize(response)
		if err != nil {
			logging.Errorf(tag, "StatePlaying.OnCastRequest: %v", err)
			return
		}
		for _, mgr := range s.sortedManagers() {
			mgr.sendResponse(encodedResponse)
		}
		s.tasks.Start(task.Void(s.showResponse(response, "You")))
	} else {
		s.pendingRequest = &localRequest
	}
}

func (s *statePlaying) OnGameStopped() {
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	s.ctx.Proxy.FireAndForget(command.NewResetGame())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
}

func (s *statePlaying) OnSocketReadFailure(from Peer) {
	if mgr, ok := s.managers[from.Mac]; ok {
		mgr.onReceptionFailure()
	}
}

// startNegotiation rotates the generator, reusing the still-connected
// peers.
func (s *statePlaying) startNegotiation() {
	peers := s.connectedPeers()
	localMac := s.localMac
	switchTo(s.ctx, KindNegotiating, func(ctx Context) State {
		return newStateNegotiating(ctx, peers, localMac)
	})
}

// startNegotiationWithOffer renegotiates because of an inbound offer; the
// offer is replayed into the new state so it is not lost.
func (s *statePlaying) startNegotiationWithOffer(sender Peer, offer string) {
	peers := s.connectedPeers()
	for _, mgr := range s.managers {
		mgr.destroy()
	}
	s.managers = make(map[string]*peerManager)

	localMac := s.localMac
	switchTo(s.ctx, KindNegotiating, func(ctx Context) State {
		return newStateNegotiatingWithOffer(ctx, peers, localMac, sender, offer)
	})
}

func (s *statePlaying) connectedPeers() map[string]Peer {
	peers := make(map[string]Peer)
	for mac, mgr := range s.managers {
		if mgr.connected {
			peers[mac] = mgr.remote
		}
	}
	return peers
}

func (s *statePlaying) sortedManagers() []*peerManager {
	macs := make([]string, 0, len(s.managers))
	for mac := range s.managers {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	out := make([]*peerManager, 0, len(macs))
	for _, mac := range macs {
		out = append(out, s.managers[mac])
	}
	return out
}

func (s *statePlaying) showRequest(request wire.Request, from string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		threshold := uint32(0)
		if request.Threshold != nil {
			threshold = *request.Threshold
		}
		code, err := s.ctx.Proxy.Command(tc, command.NewShowRequest(
			request.Cast.Kind().String(), request.Cast.Size(), threshold, from))
		if err != nil {
			return err
		}
		if code != command.OK {
			s.OnGameStopped()
		}
		return nil
	}
}

func (s *statePlaying) showResponse(response wire.Response, from string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		size := response.Cast.Size()
		if size > command.MaxLongResponseText/3 {
			s.ctx.Proxy.FireAndForget(command.NewShowToast(
				"Request is too big, cannot proceed", 7*time.Second))
			return nil
		}

		successCount := -1
		if response.SuccessCount != nil {
			successCount = *response.SuccessCount
		}
		castText := response.Cast.Text()
		dieType := response.Cast.Kind().String()

		var cmd *command.Command
		if size <= command.MaxResponseText/3 {
			cmd = command.NewShowResponse(castText, dieType, successCount, from)
		} else {
			cmd = command.NewShowLongResponse(castText, dieType, successCount, from)
		}
		code, err := s.ctx.Proxy.Command(tc, cmd)
		if err != nil {
			return err
		}

		if code != command.OK {
			s.OnGameStopped()
			return nil
		}
		s.ctx.Journal.Emit(journal.KindResponse, from+": "+dieType+" "+castText)
		s.responseCount++
		if s.responseCount >= s.ctx.Params.RoundsPerGenerator {
			s.startNegotiation()
		}
		return nil
	}
}

// matches reports whether the response answers the request: same die
// kind, same size, and a success count exactly when a threshold was set.
func matches(response wire.Response, request *wire.Request) bool {
	if request == nil {
		return false
	}
	if response.Cast.Kind() != request.Cast.Kind() {
		return false
	}
	if response.Cast.Size() != request.Cast.Size() {
		return false
	}
	return (response.SuccessCount != nil) == (request.Threshold != nil)
}

// generateResponse runs the engine over the request's cast.
func generateResponse(engine dice.Engine, request wire.Request) wire.Response {
	engine.GenerateResult(request.Cast)
	var successCount *int
	if request.Threshold != nil {
		count := dice.SuccessCount(request.Cast, *request.Threshold)
		successCount = &count
	}
	return wire.Response{Cast: request.Cast, SuccessCount: successCount}
}
