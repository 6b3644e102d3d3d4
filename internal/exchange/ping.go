package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/nexmqtt/client/packet"
)

// PingID is the reserved registry key for PINGREQ/PINGRESP, which carry no
// packet identifier of their own; real packet ids start at 1, so 0 never
// collides with a live exchange.
const PingID uint16 = 0

// ErrPingFailed is returned when the PINGREQ goes unanswered for
// PingAttempts windows of PingInterval each; the coordinator treats this as
// a dead connection (§4.7).
var ErrPingFailed = fmt.Errorf("exchange: keepalive ping unanswered after %d attempts", PingAttempts)

// Ping writes PINGREQ and waits up to PingAttempts*PingInterval for
// PINGRESP. Grounded on original_source/src/tasks/task_ping/mod.rs.
func Ping(ctx context.Context, w Writer, reg Registry, version byte) error {
	inbox := reg.Register(PingID)
	defer reg.Unregister(PingID)

	pkt := &packet.PINGREQ{FixedHeader: &packet.FixedHeader{Version: version, Kind: 0xC}}
	if err := w.Write(pkt); err != nil {
		return err
	}
	for attempt := 0; attempt < PingAttempts; attempt++ {
		timer := time.NewTimer(PingInterval)
		ack, timedOut, err := awaitAck(ctx, inbox, timer.C)
		timer.Stop()
		if err != nil {
			return err
		}
		if timedOut {
			continue
		}
		if _, ok := ack.(*packet.PINGRESP); ok {
			return nil
		}
	}
	return ErrPingFailed
}
