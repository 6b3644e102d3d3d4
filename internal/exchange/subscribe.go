package exchange

import (
	"context"
	"time"

	"github.com/nexmqtt/client/packet"
)

// Subscribe writes SUBSCRIBE and waits for SUBACK, retransmitting on
// timeout. Grounded on original_source/src/tasks/task_subscribe/subscribe.rs.
func Subscribe(ctx context.Context, w Writer, reg Registry, version byte, pid uint16, subs []packet.Subscription, props *packet.SubscribeProperties) ([]packet.ReasonCode, error) {
	inbox := reg.Register(pid)
	defer reg.Unregister(pid)

	for {
		pkt := &packet.SUBSCRIBE{
			FixedHeader:   &packet.FixedHeader{Version: version, Kind: 0x8, QoS: 1},
			PacketID:      pid,
			Subscriptions: subs,
			Props:         props,
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
		if suback, ok := ack.(*packet.SUBACK); ok {
			return suback.ReasonCode, nil
		}
	}
}
