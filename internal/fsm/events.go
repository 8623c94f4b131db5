package fsm

import (
	"strconv"

	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/wire"
)

// Inbound event ids. The numeric values are part of the host interop
// contract.
const (
	EventRemoteDeviceConnected    int32 = 10
	EventRemoteDeviceDisconnected int32 = 11
	EventConnectivityEstablished  int32 = 12
	EventNewGameRequested         int32 = 13
	EventMessageReceived          int32 = 14
	EventCastRequestIssued        int32 = 15
	EventGameStopped              int32 = 16
	EventBluetoothOn              int32 = 17
	EventBluetoothOff             int32 = 18
	EventSocketReadFailed         int32 = 19
)

type eventEntry struct {
	name   string
	handle func(s State, args []string) bool
}

// eventTable maps event ids to argument parsers invoking the current
// state. A handler returns false on malformed arguments, in which case
// no state method has been called.
var eventTable = map[int32]eventEntry{
	EventRemoteDeviceConnected: {"RemoteDeviceConnected", func(s State, args []string) bool {
		// "mac", "name"
		if len(args) < 2 || args[0] == "" {
			return false
		}
		s.OnDeviceConnected(Peer{Mac: args[0], Name: args[1]})
		return true
	}},
	EventRemoteDeviceDisconnected: {"RemoteDeviceDisconnected", func(s State, args []string) bool {
		if len(args) < 2 || args[0] == "" {
			return false
		}
		s.OnDeviceDisconnected(Peer{Mac: args[0], Name: args[1]})
		return true
	}},
	EventConnectivityEstablished: {"ConnectivityEstablished", func(s State, args []string) bool {
		s.OnConnectivityEstablished()
		return true
	}},
	EventNewGameRequested: {"NewGameRequested", func(s State, args []string) bool {
		s.OnNewGame()
		return true
	}},
	EventMessageReceived: {"MessageReceived", func(s State, args []string) bool {
		// "message", "mac", "name"
		if len(args) < 3 {
			return false
		}
		s.OnMessageReceived(Peer{Mac: args[1], Name: args[2]}, args[0])
		return true
	}},
	EventCastRequestIssued: {"CastRequestIssued", func(s State, args []string) bool {
		// "type", "size", optional "threshold"
		if len(args) < 2 {
			return false
		}
		kind, err := dice.ParseKind(args[0])
		if err != nil {
			return false
		}
		size, err := strconv.Atoi(args[1])
		if err != nil || size < 1 {
			return false
		}
		request := wire.Request{Cast: dice.NewCast(kind, size)}
		if len(args) >= 3 {
			threshold, err := strconv.ParseUint(args[2], 10, 32)
			if err != nil {
				return false
			}
			t := uint32(threshold)
			request.Threshold = &t
		}
		s.OnCastRequest(request)
		return true
	}},
	EventGameStopped: {"GameStopped", func(s State, args []string) bool {
		s.OnGameStopped()
		return true
	}},
	EventBluetoothOn: {"BluetoothOn", func(s State, args []string) bool {
		s.OnBluetoothOn()
		return true
	}},
	EventBluetoothOff: {"BluetoothOff", func(s State, args []string) bool {
		s.OnBluetoothOff()
		return true
	}},
	EventSocketReadFailed: {"SocketReadFailed", func(s State, args []string) bool {
		if len(args) < 2 || args[0] == "" {
			return false
		}
		s.OnSocketReadFailure(Peer{Mac: args[0], Name: args[1]})
		return true
	}},
}

// EventName returns the display name of a known event id.
func EventName(id int32) (string, bool) {
	entry, ok := eventTable[id]
	if !ok {
		return "", false
	}
	return entry.name, true
}

// DispatchEvent parses the event's arguments and invokes the matching
// method on s. It reports false when the arguments are malformed.
func DispatchEvent(s State, id int32, args []string) bool {
	entry, ok := eventTable[id]
	if !ok {
		return false
	}
	return entry.handle(s, args)
}
