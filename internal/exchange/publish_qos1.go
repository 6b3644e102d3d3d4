package exchange

import (
	"context"
	"time"

	"github.com/nexmqtt/client/packet"
)

// PublishQoS1 writes an AtLeastOnce PUBLISH and waits for the matching
// PUBACK, resending with DUP=1 on each RetransmitInterval timeout. Returns
// when the PUBACK is seen (success) or ctx is cancelled (the coordinator's
// in-flight queue still has the record for replay on reconnect).
// Grounded on original_source/src/tasks/task_publish/publish_qos_1.rs.
func PublishQoS1(ctx context.Context, w Writer, reg Registry, version byte, pid uint16, msg *packet.Message, props *packet.PublishProperties) error {
	inbox := reg.Register(pid)
	defer reg.Unregister(pid)

	dup := uint8(0)
	for {
		pkt := &packet.PUBLISH{
			FixedHeader: &packet.FixedHeader{Version: version, Kind: 0x3, QoS: 1, Dup: dup},
			PacketID:    pid,
			Message:     msg,
			Props:       props,
		}
		if err := w.Write(pkt); err != nil {
			return err
		}
		timer := time.NewTimer(RetransmitInterval)
		ack, timedOut, err := awaitAck(ctx, inbox, timer.C)
		timer.Stop()
		if err != nil {
			return err
		}
		if timedOut {
			dup = 1
			continue
		}
		if _, ok := ack.(*packet.PUBACK); ok {
			return nil
		}
	}
}
