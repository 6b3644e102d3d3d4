// Package session implements the per-connection session coordinator: the
// connection lifecycle state machine, in-flight queue, keepalive epoch and
// reconnect replay described by the core design. It is the Go-idiomatic
// rendering of the original Rust task_hub's three-channel select loop,
// generalized to a typed internal bus (see root package mqtt for the
// public-facing client).
package session

import "github.com/nexmqtt/client/packet"

// Command is something the application asked the coordinator to do.
type Command interface{ isCommand() }

// ConnectCmd is accepted by the coordinator and ignored: connecting and
// reconnecting are driven by Coordinator.Run itself, not by this command.
type ConnectCmd struct{}

func (ConnectCmd) isCommand() {}

// DisconnectCmd asks for an ordered shutdown: a DISCONNECT carrying
// ReasonCode is written, then the connection is closed. In-flight work is
// not waited for; it stays in the in-flight queue.
type DisconnectCmd struct {
	ReasonCode packet.ReasonCode
}

func (DisconnectCmd) isCommand() {}

// ForceCloseCmd asks for an immediate, unordered shutdown.
type ForceCloseCmd struct{}

func (ForceCloseCmd) isCommand() {}

// PublishCmd asks the coordinator to publish a message, optionally starting
// a QoS 1/2 exchange tracked in the in-flight queue.
type PublishCmd struct {
	TraceID uint32
	Message *packet.Message
	QoS     uint8
	Retain  bool
	Props   *packet.PublishProperties
	Done    chan error
}

func (PublishCmd) isCommand() {}

// SubscribeCmd asks the coordinator to subscribe to one or more filters.
type SubscribeCmd struct {
	TraceID       uint32
	Subscriptions []packet.Subscription
	Props         *packet.SubscribeProperties
	Done          chan SubscribeResult
}

func (SubscribeCmd) isCommand() {}

// SubscribeResult is delivered once SUBACK (or a fatal error) arrives.
type SubscribeResult struct {
	ReasonCodes []packet.ReasonCode
	Err         error
}

// UnsubscribeCmd asks the coordinator to unsubscribe from one or more filters.
type UnsubscribeCmd struct {
	TraceID       uint32
	Subscriptions []packet.Subscription
	Done          chan UnsubscribeResult
}

func (UnsubscribeCmd) isCommand() {}

// UnsubscribeResult is delivered once UNSUBACK (or a fatal error) arrives.
type UnsubscribeResult struct {
	ReasonCodes []packet.ReasonCode
	Err         error
}

// NetworkEvent reports a transport-level status change up to the coordinator.
type NetworkEvent struct {
	Connected bool
	Err       error
}

// Event is what the coordinator emits outward to the application event
// stream (see root package mqtt.Event).
type Event struct {
	Kind           EventKind
	SessionPresent bool
	Reason         string
	TraceID        uint32
	Message        *packet.Message
	ReasonCodes    []packet.ReasonCode
}

// EventKind enumerates the Event.Kind values.
type EventKind int

const (
	EventConnectSuccess EventKind = iota
	EventConnectFail
	EventConnectedErr
	EventPublish
	EventPublishSuccess
	EventSubscribeAck
	EventUnsubscribeAck
	EventDisconnected
)

// bus is the set of typed channels the frame reader, coordinator and
// exchange tasks communicate over. One bus per Client/connection.
type bus struct {
	acks     chan packet.Packet     // PUBACK/PUBREC/PUBREL/PUBCOMP/SUBACK/UNSUBACK/CONNACK/PINGRESP
	inbound  chan *packet.PUBLISH   // broker-originated PUBLISH (any QoS)
	network  chan NetworkEvent      // transport status
	commands chan Command           // application -> coordinator
	events   chan Event             // coordinator -> application
	fatal    chan error             // frame reader/writer -> coordinator, unrecoverable I/O
}

func newBus() *bus {
	return &bus{
		acks:     make(chan packet.Packet, 64),
		inbound:  make(chan *packet.PUBLISH, 64),
		network:  make(chan NetworkEvent, 4),
		commands: make(chan Command, 64),
		events:   make(chan Event, 256),
		fatal:    make(chan error, 4),
	}
}
