package fsm

import (
	"sort"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/journal"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/wire"
)

// stateNegotiating elects the generator. Each participant broadcasts an
// offer (round, candidate address); the candidate rotates
// deterministically through the address-sorted participant list, the
// round jumps to the maximum anyone has seen, and the election completes
// when every stored offer matches the local one.
type stateNegotiating struct {
	stateBase
	ctx Context

	localMac string
	peers    map[string]Peer
	offers   map[string]wire.Offer
}

func newStateNegotiating(ctx Context, peers map[string]Peer, localMac string) *stateNegotiating {
	s := &stateNegotiating{
		stateBase: newStateBase(ctx.Exec),
		ctx:       ctx,
		localMac:  localMac,
		peers:     make(map[string]Peer, len(peers)),
		offers:    make(map[string]wire.Offer, len(peers)+1),
	}
	logStateEntry("StateNegotiating")
	for mac, peer := range peers {
		s.peers[mac] = peer
		s.offers[mac] = wire.Offer{}
	}
	*ctx.Round++
	s.offers[localMac] = wire.Offer{Round: *ctx.Round}
	local := s.offers[localMac]
	local.Mac = s.localOfferMac()
	s.offers[localMac] = local

	s.tasks.Start(task.Void(s.startNegotiation))
	return s
}

func newStateNegotiatingWithOffer(ctx Context, peers map[string]Peer, localMac string,
	sender Peer, message string) *stateNegotiating {
	s := newStateNegotiating(ctx, peers, localMac)
	s.OnMessageReceived(sender, message)
	return s
}

func (s *stateNegotiating) Kind() StateKind { return KindNegotiating }

func (s *stateNegotiating) OnBluetoothOff() {
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	s.ctx.Proxy.FireAndForget(command.NewResetGame())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
}

func (s *stateNegotiating) OnMessageReceived(sender Peer, message string) {
	if _, known := s.peers[sender.Mac]; !known {
		return
	}

	decoded, err := s.ctx.Serializer.Deserialize(message)
	if err != nil {
		logging.Errorf(tag, "StateNegotiating.OnMessageReceived: %v", err)
		return
	}
	offer, ok := decoded.(wire.Offer)
	if !ok {
		logging.Errorf(tag, "StateNegotiating.OnMessageReceived: unexpected %T", decoded)
		return
	}
	s.offers[sender.Mac] = offer
}

func (s *stateNegotiating) OnGameStopped() {
	s.ctx.Proxy.FireAndForget(command.NewResetConnections())
	s.ctx.Proxy.FireAndForget(command.NewResetGame())
	switchTo(s.ctx, KindIdle, func(ctx Context) State {
		return newStateIdle(ctx, false)
	})
}

func (s *stateNegotiating) OnSocketReadFailure(from Peer) {
	if _, known := s.peers[from.Mac]; known {
		s.tasks.Start(task.Void(s.disconnectDevice(from.Mac)))
		delete(s.peers, from.Mac)
		delete(s.offers, from.Mac)
	}
}

// localOfferMac returns the candidate for the current round: the element
// at index round mod participants in the address-sorted list of everyone
// known, self included. The rotation gives each participant a turn.
func (s *stateNegotiating) localOfferMac() string {
	macs := make([]string, 0, len(s.offers))
	for mac := range s.offers {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	return macs[int(*s.ctx.Round%uint32(len(macs)))]
}

func (s *stateNegotiating) startNegotiation(tc *task.Ctx) error {
	code, err := s.ctx.Proxy.Command(tc, command.NewNegotiationStart())
	if err != nil {
		return err
	}
	switch code {
	case command.OK:
		return s.updateAndBroadcastOffer(tc)
	default:
		logging.Errorf(tag, "startNegotiation: cannot start negotiation, code=%v", code)
		return nil
	}
}

func (s *stateNegotiating) updateAndBroadcastOffer(tc *task.Ctx) error {
	for {
		local := s.offers[s.localMac]

		allEqual := true
		for _, offer := range s.offers {
			if offer.Round != local.Round || offer.Mac != local.Mac {
				allEqual = false
				break
			}
		}

		if allEqual {
			nominee := "You"
			if peer, ok := s.peers[local.Mac]; ok {
				nominee = peer.Name
			}
			s.ctx.Proxy.FireAndForget(command.NewNegotiationStop(nominee))
			s.ctx.Journal.Emit(journal.KindGenerator, nominee+" ("+local.Mac+")")
			peers := s.peers
			localMac := s.localMac
			generatorMac := local.Mac
			switchTo(s.ctx, KindPlaying, func(ctx Context) State {
				return newStatePlaying(ctx, peers, localMac, generatorMac)
			})
			return nil
		}

		maxRound := *s.ctx.Round
		for _, offer := range s.offers {
			if offer.Round > maxRound {
				maxRound = offer.Round
			}
		}
		*s.ctx.Round = maxRound
		local.Round = maxRound
		local.Mac = s.localOfferMac()
		s.offers[s.localMac] = local

		message, err := s.ctx.Serializer.Serialize(local)
		if err != nil {
			return err
		}
		for _, mac := range s.sortedPeerMacs() {
			peer := s.peers[mac]
			s.tasks.Start(task.Void(s.sendOffer(message, peer)))
		}
		if err := s.ctx.Timer.WaitFor(tc, s.ctx.Params.RetryDelay); err != nil {
			return err
		}
	}
}

func (s *stateNegotiating) sortedPeerMacs() []string {
	macs := make([]string, 0, len(s.peers))
	for mac := range s.peers {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	return macs
}

func (s *stateNegotiating) sendOffer(offer string, receiver Peer) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		code, err := s.ctx.Proxy.Command(tc, command.NewSendMessage(offer, receiver.Mac))
		if err != nil {
			return err
		}
		switch code {
		case command.SocketError:
			if err := s.disconnectDevice(receiver.Mac)(tc); err != nil {
				return err
			}
			fallthrough
		case command.ConnectionNotFound:
			delete(s.peers, receiver.Mac)
			delete(s.offers, receiver.Mac)
		}
		return nil
	}
}

func (s *stateNegotiating) disconnectDevice(mac string) func(*task.Ctx) error {
	return func(tc *task.Ctx) error {
		for {
			code, err := s.ctx.Proxy.Command(tc, command.NewCloseConnection("", mac))
			if err != nil {
				return err
			}
			if code != command.InvalidState && code != command.InteropFailure {
				return nil
			}
		}
	}
}
