package packet

import (
	"bytes"
	"io"
)

// PUBACK acknowledges a QoS 1 PUBLISH. Under v3.1.1 it carries nothing but
// the packet identifier being acknowledged; v5 adds a reason code and a
// properties block of the shape shared with PUBREC and PUBCOMP (ack.go).
type PUBACK struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubackProperties
}

// PubackProperties has the same layout as PUBREC's and PUBCOMP's v5
// properties, so the three share one implementation.
type PubackProperties = simpleAckProperties

func (pkt *PUBACK) Kind() byte { return 0x4 }

func (pkt *PUBACK) Pack(w io.Writer) error {
	if pkt.Props == nil {
		pkt.Props = &PubackProperties{}
	}
	return packSimpleAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBACK) Unpack(buf *bytes.Buffer) error {
	pkt.Props = &PubackProperties{}
	return unpackSimpleAck(buf, pkt.FixedHeader, &pkt.PacketID, &pkt.ReasonCode, pkt.Props)
}
