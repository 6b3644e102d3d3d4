package exchange

import (
	"context"
	"time"

	"github.com/nexmqtt/client/packet"
)

// Phase names the two stages of a QoS 2 send-side exchange, mirroring the
// two separately-spawned Rust tasks publish_qos_2.rs (phase A, awaiting
// PUBREC) and publish_qos_2_rel.rs (phase B, awaiting PUBCOMP). The
// coordinator persists the current phase in its in-flight queue entry so a
// reconnect resumes at PUBREL rather than replaying PUBLISH once phase B has
// been reached.
type Phase int

const (
	PhasePublish Phase = iota
	PhasePubrel
)

// PublishQoS2 runs both phases of an ExactlyOnce publish to completion.
// startPhase lets the coordinator resume directly in PhasePubrel after a
// reconnect. onPhase is invoked synchronously on every phase transition so
// the coordinator can persist it before the next wire write is attempted.
func PublishQoS2(ctx context.Context, w Writer, reg Registry, version byte, pid uint16, msg *packet.Message, props *packet.PublishProperties, startPhase Phase, onPhase func(Phase)) error {
	inbox := reg.Register(pid)
	defer reg.Unregister(pid)

	phase := startPhase
	dup := uint8(0)

	if phase == PhasePublish {
		for {
			pkt := &packet.PUBLISH{
				FixedHeader: &packet.FixedHeader{Version: version, Kind: 0x3, QoS: 2, Dup: dup},
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
			if _, ok := ack.(*packet.PUBREC); ok {
				phase = PhasePubrel
				onPhase(phase)
				break
			}
		}
	}

	for {
		pkt := &packet.PUBREL{
			FixedHeader: &packet.FixedHeader{Version: version, Kind: 0x6, QoS: 1},
			PacketID:    pid,
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
			continue
		}
		if _, ok := ack.(*packet.PUBCOMP); ok {
			return nil
		}
		// a duplicate PUBREC in phase B just re-sends PUBREL
	}
}
