// Package exchange implements the per-exchange state machines named in the
// core design: one goroutine per in-flight PUBLISH (QoS 1/2 send side),
// SUBSCRIBE, UNSUBSCRIBE and PING. Each goroutine is grounded directly on
// the corresponding Rust task in original_source/src/tasks/task_publish,
// task_subscribe and task_ping: Go's cheap goroutines let every in-flight
// exchange keep its own timer and private inbox exactly like the source,
// rather than folding them into one synchronous record.
//
// The authoritative, replayable state (topic/payload/qos-phase/packet-id)
// still lives in the coordinator's in-flight queue; a cancelled or crashed
// exchange goroutine never loses recoverability because the coordinator
// re-spawns from that queue on reconnect.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/nexmqtt/client/packet"
)

// Writer is the one thing an exchange needs from the frame writer: put a
// packet on the wire and learn whether the write itself succeeded.
type Writer interface {
	Write(pkt packet.Packet) error
}

// Registry lets an exchange wait for the acks addressed to its packet id.
// Register must be called before the corresponding request packet is
// written, so no ack can race ahead of the waiter.
type Registry interface {
	Register(packetID uint16) <-chan packet.Packet
	Unregister(packetID uint16)
}

// RetransmitInterval is the send-side ack timeout named in §4.6/§5.
const RetransmitInterval = 10 * time.Second

// PingInterval and PingAttempts bound the keepalive ping exchange.
const (
	PingInterval = 3 * time.Second
	PingAttempts = 3
)

// ErrCancelled is returned when ctx is done before an exchange completes;
// the coordinator's in-flight queue still holds the work for replay.
var ErrCancelled = fmt.Errorf("exchange: cancelled")

// awaitAck blocks on inbox or ctx, returning ErrCancelled on cancellation.
func awaitAck(ctx context.Context, inbox <-chan packet.Packet, timeout <-chan time.Time) (packet.Packet, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ErrCancelled
	case <-timeout:
		return nil, true, nil
	case pkt := <-inbox:
		return pkt, false, nil
	}
}
