package exchange

import "github.com/nexmqtt/client/packet"

// PublishQoS0 writes a fire-and-forget PUBLISH. No packet-id, no ack, no
// retry: completion is "the write returned". Grounded on
// original_source/src/tasks/task_publish/publish_qos_0.rs.
func PublishQoS0(w Writer, version byte, msg *packet.Message, retain bool, props *packet.PublishProperties) error {
	pkt := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: version, Kind: 0x3, Retain: b2u(retain)},
		Message:     msg,
		Props:       props,
	}
	return w.Write(pkt)
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
