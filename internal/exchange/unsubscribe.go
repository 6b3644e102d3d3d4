package exchange

import (
	"context"
	"time"

	"github.com/nexmqtt/client/packet"
)

// Unsubscribe writes UNSUBSCRIBE and waits for UNSUBACK, retransmitting on
// timeout. Grounded on original_source/src/tasks/task_subscribe/unsubscribe.rs.
func Unsubscribe(ctx context.Context, w Writer, reg Registry, version byte, pid uint16, subs []packet.Subscription) ([]packet.ReasonCode, error) {
	inbox := reg.Register(pid)
	defer reg.Unregister(pid)

	for {
		pkt := &packet.UNSUBSCRIBE{
			FixedHeader:   &packet.FixedHeader{Version: version, Kind: 0xA, QoS: 1},
			PacketID:      pid,
			Subscriptions: subs,
		}
		if err := w.Write(pkt); err != nil {
			return nil, err
		}
		timer := time.NewTimer(RetransmitInterval)
		ack, timedOut, err := awaitAck(ctx, inbox, timer.C)
		timer.Stop()
		if err != nil {
			return nil, err
		}
		if timedOut {
			continue
		}
		if unsuback, ok := ack.(*packet.UNSUBACK); ok {
			return unsuback.ReasonCode, nil
		}
	}
}
