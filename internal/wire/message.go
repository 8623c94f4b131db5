// Package wire defines the messages peers exchange and the pluggable
// serializer that converts them to and from the textual wire form.
package wire

import "github.com/veridie/veridie/internal/dice"

// Message is the tagged union of everything that travels between peers.
type Message interface {
	isMessage()
}

// Hello tells a freshly connected peer its own radio address, which it
// cannot observe locally.
type Hello struct {
	Mac string
}

// Offer nominates a generator candidate for a negotiation round.
type Offer struct {
	Mac   string
	Round uint32
}

// Request asks the generator to fill a zeroed cast. Threshold, when set,
// asks for a success count against it.
type Request struct {
	Cast      dice.Cast
	Threshold *uint32
}

// Response carries a filled cast back, with the success count when the
// request had a threshold.
type Response struct {
	Cast         dice.Cast
	SuccessCount *int
}

func (Hello) isMessage()    {}
func (Offer) isMessage()    {}
func (Request) isMessage()  {}
func (Response) isMessage() {}

// Serializer converts messages to and from the wire form. An
// implementation must round-trip every message losslessly.
type Serializer interface {
	Serialize(m Message) (string, error)
	Deserialize(s string) (Message, error)
}
