package main

import (
	"time"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/ctrl"
	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/fsm"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/wire"
)

const simTag = "SimTransport"

// simPeer is the one simulated remote participant.
var simPeer = fsm.Peer{Mac: "5c:b9:01:f8:b6:41", Name: "Charlie"}

// simLocalMac is the address the simulated peer teaches the local node.
const simLocalMac = "5c:b9:01:f8:b6:40"

// simTransport stands in for the radio: every command succeeds, and the
// simulated peer greets, agrees to any offer, and answers every roll
// request it receives with a filled response.
type simTransport struct {
	loop *task.Loop
	c    ctrl.Controller
	ser  wire.Serializer
}

func newSimTransport(loop *task.Loop, c ctrl.Controller) *simTransport {
	return &simTransport{loop: loop, c: c, ser: wire.NewXMLSerializer()}
}

// Invoke implements command.Invoker.
func (s *simTransport) Invoke(c *command.Command, id int32) bool {
	kind := c.Kind()
	var payload string
	if kind == command.KindSendMessage {
		payload = c.ArgAt(0)
	}
	s.loop.Execute(func() {
		s.c.OnCommandResponse(id, command.OK)
	})
	if payload != "" {
		s.loop.Execute(func() { s.deliver(payload) })
	}
	return true
}

// deliver reacts to a payload shipped to the simulated peer.
func (s *simTransport) deliver(payload string) {
	msg, err := s.ser.Deserialize(payload)
	if err != nil {
		logging.Errorf(simTag, "undeliverable payload: %v", err)
		return
	}
	switch m := msg.(type) {
	case wire.Hello:
		// the peer learned its address; nothing to answer
	case wire.Offer:
		// agree with whatever the local node proposes
		s.inject(payload)
	case wire.Request:
		engine := dice.NewUniformEngine(time.Now().UnixNano())
		engine.GenerateResult(m.Cast)
		response := wire.Response{Cast: m.Cast}
		if m.Threshold != nil {
			count := dice.SuccessCount(m.Cast, *m.Threshold)
			response.SuccessCount = &count
		}
		encoded, err := s.ser.Serialize(response)
		if err != nil {
			logging.Errorf(simTag, "encode response: %v", err)
			return
		}
		s.inject(encoded)
	case wire.Response:
		// the local node generated; nothing to answer
	}
}

// inject posts a MessageReceived event from the simulated peer.
func (s *simTransport) inject(message string) {
	s.loop.Execute(func() {
		s.c.OnEvent(fsm.EventMessageReceived, []string{message, simPeer.Mac, simPeer.Name})
	})
}

// joinScript staggers the events that bring the simulated peer into the
// game: radio on, connection, the hello teaching the local address, and
// connectivity. The delays leave room for the state hops in between.
func joinScript(loop *task.Loop, c ctrl.Controller) {
	post := func(after time.Duration, fn func()) {
		time.AfterFunc(after, func() { loop.Execute(fn) })
	}
	post(0, func() {
		c.OnEvent(fsm.EventBluetoothOn, nil)
	})
	post(500*time.Millisecond, func() {
		c.OnEvent(fsm.EventRemoteDeviceConnected, []string{simPeer.Mac, simPeer.Name})
	})
	post(700*time.Millisecond, func() {
		ser := wire.NewXMLSerializer()
		hello, err := ser.Serialize(wire.Hello{Mac: simLocalMac})
		if err != nil {
			logging.Errorf(simTag, "encode hello: %v", err)
			return
		}
		c.OnEvent(fsm.EventMessageReceived, []string{hello, simPeer.Mac, simPeer.Name})
	})
	post(time.Second, func() {
		c.OnEvent(fsm.EventConnectivityEstablished, nil)
	})
}
