package command

import (
	"strconv"
	"time"
)

// Kind is a command's base correlation id. Correlation ids for live
// commands are Kind+0..Kind+255; the id values are part of the host
// interop contract.
type Kind int32

const (
	KindStartListening   Kind = 100 << 8
	KindStartDiscovery   Kind = 101 << 8
	KindStopListening    Kind = 102 << 8
	KindStopDiscovery    Kind = 103 << 8
	KindCloseConnection  Kind = 104 << 8
	KindEnableBluetooth  Kind = 105 << 8
	KindNegotiationStart Kind = 106 << 8
	KindNegotiationStop  Kind = 107 << 8
	KindSendMessage      Kind = 108 << 8
	KindShowAndExit      Kind = 109 << 8
	KindShowToast        Kind = 110 << 8
	KindShowNotification Kind = 111 << 8
	KindShowRequest      Kind = 112 << 8
	KindShowResponse     Kind = 113 << 8
	KindResetGame        Kind = 114 << 8
	KindResetConnections Kind = 115 << 8
)

// Message payload caps. A send chooses the short transport when the
// payload fits, the long one up to the long cap, and is refused past it.
// Response display text is bounded the same way.
const (
	MaxMessageSize      = 255
	MaxLongMessageSize  = 1023
	MaxResponseText     = 255
	MaxLongResponseText = 1023
)

// IsTransport reports whether the kind is served by the transport invoker.
func (k Kind) IsTransport() bool {
	switch k {
	case KindEnableBluetooth, KindStartListening, KindStartDiscovery,
		KindStopListening, KindStopDiscovery, KindCloseConnection,
		KindSendMessage, KindResetConnections:
		return true
	}
	return false
}

// IsUI reports whether the kind is served by the UI invoker.
func (k Kind) IsUI() bool {
	switch k {
	case KindNegotiationStart, KindNegotiationStop, KindShowAndExit,
		KindShowToast, KindShowNotification, KindShowRequest,
		KindShowResponse, KindResetGame:
		return true
	}
	return false
}

// Command is a one-shot outbound directive to the host: a kind, a name
// and an argument vector, answered with a Code keyed by correlation id.
type Command struct {
	kind Kind
	name string
	args []string
}

// Kind returns the command's base id.
func (c *Command) Kind() Kind { return c.kind }

// Name returns the command's human-readable name.
func (c *Command) Name() string { return c.name }

// ArgCount returns the number of arguments.
func (c *Command) ArgCount() int { return len(c.args) }

// ArgAt returns the argument at index i, or "" when out of range.
func (c *Command) ArgAt(i int) string {
	if i < 0 || i >= len(c.args) {
		return ""
	}
	return c.args[i]
}

// Args returns the argument vector.
func (c *Command) Args() []string { return c.args }

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}

// NewStartListening asks the transport to accept inbound connections for
// the given service for the given discoverability duration.
func NewStartListening(uuid, name string, duration time.Duration) *Command {
	return build(KindStartListening, "StartListening", uuid, name, seconds(duration))
}

// NewStartDiscovery asks the transport to scan for peers of the service.
func NewStartDiscovery(uuid, name string, includePaired bool) *Command {
	return build(KindStartDiscovery, "StartDiscovery", uuid, name, strconv.FormatBool(includePaired))
}

// NewStopListening stops accepting inbound connections.
func NewStopListening() *Command {
	return build(KindStopListening, "StopListening")
}

// NewStopDiscovery stops scanning.
func NewStopDiscovery() *Command {
	return build(KindStopDiscovery, "StopDiscovery")
}

// NewCloseConnection drops the connection to peerAddr.
func NewCloseConnection(errMsg, peerAddr string) *Command {
	return build(KindCloseConnection, "CloseConnection", errMsg, peerAddr)
}

// NewEnableBluetooth asks the host to turn the radio on.
func NewEnableBluetooth() *Command {
	return build(KindEnableBluetooth, "EnableBluetooth")
}

// NewNegotiationStart tells the UI a generator election has begun.
func NewNegotiationStart() *Command {
	return build(KindNegotiationStart, "NegotiationStart")
}

// NewNegotiationStop tells the UI the election ended with the nominee.
func NewNegotiationStop(nomineeName string) *Command {
	return build(KindNegotiationStop, "NegotiationStop", nomineeName)
}

// NewSendMessage ships a short payload to peerAddr.
func NewSendMessage(msg, peerAddr string) *Command {
	return build(KindSendMessage, "SendMessage", msg, peerAddr)
}

// NewSendLongMessage ships a payload up to the long cap to peerAddr.
func NewSendLongMessage(msg, peerAddr string) *Command {
	return build(KindSendMessage, "SendLongMessage", msg, peerAddr)
}

// NewShowAndExit shows a fatal dialog; the host exits when dismissed.
func NewShowAndExit(text string) *Command {
	return build(KindShowAndExit, "ShowAndExit", text)
}

// NewShowToast shows a transient notice for the given duration.
func NewShowToast(text string, duration time.Duration) *Command {
	return build(KindShowToast, "ShowToast", text, seconds(duration))
}

// NewShowNotification shows a persistent notice.
func NewShowNotification(text string) *Command {
	return build(KindShowNotification, "ShowNotification", text)
}

// NewShowRequest displays an incoming roll request. threshold 0 means no
// success threshold was set.
func NewShowRequest(dieType string, size int, threshold uint32, from string) *Command {
	return build(KindShowRequest, "ShowRequest",
		dieType, strconv.Itoa(size), strconv.FormatUint(uint64(threshold), 10), from)
}

// NewShowResponse displays a fulfilled roll. successCount -1 means no
// success threshold was set.
func NewShowResponse(castText, dieType string, successCount int, from string) *Command {
	return build(KindShowResponse, "ShowResponse",
		castText, dieType, strconv.Itoa(successCount), from)
}

// NewShowLongResponse is NewShowResponse with the extended display cap.
func NewShowLongResponse(castText, dieType string, successCount int, from string) *Command {
	return build(KindShowResponse, "ShowLongResponse",
		castText, dieType, strconv.Itoa(successCount), from)
}

// NewResetGame clears the UI's game surface.
func NewResetGame() *Command {
	return build(KindResetGame, "ResetGame")
}

// NewResetConnections tears down all transport connections.
func NewResetConnections() *Command {
	return build(KindResetConnections, "ResetConnections")
}
