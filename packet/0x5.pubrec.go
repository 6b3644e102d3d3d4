package packet

import (
	"bytes"
	"io"
)

// PUBREC is the broker or client's first acknowledgement of a QoS 2
// PUBLISH: "I have this message, don't resend it, but I haven't released
// it to subscribers yet." PUBREL completes the handshake.
type PUBREC struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubrecProperties
}

// PubrecProperties has the same layout as PUBACK's and PUBCOMP's v5
// properties; see ack.go.
type PubrecProperties = simpleAckProperties

func (pkt *PUBREC) Kind() byte { return 0x5 }

func (pkt *PUBREC) Pack(w io.Writer) error {
	if pkt.Props == nil {
		pkt.Props = &PubrecProperties{}
	}
	return packSimpleAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBREC) Unpack(buf *bytes.Buffer) error {
	pkt.Props = &PubrecProperties{}
	return unpackSimpleAck(buf, pkt.FixedHeader, &pkt.PacketID, &pkt.ReasonCode, pkt.Props)
}
