package packet

import (
	"bytes"
	"io"
)

// PUBCOMP closes out a QoS 2 exchange: the receiver of PUBREL replies with
// PUBCOMP and both sides can forget the packet identifier.
type PUBCOMP struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubcompProperties
}

// PubcompProperties has the same layout as PUBACK's and PUBREC's v5
// properties; see ack.go.
type PubcompProperties = simpleAckProperties

func (pkt *PUBCOMP) Kind() byte { return 0x7 }

func (pkt *PUBCOMP) Pack(w io.Writer) error {
	pkt.Dup, pkt.QoS, pkt.Retain = 0, 0, 0
	if pkt.Props == nil {
		pkt.Props = &PubcompProperties{}
	}
	return packSimpleAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props)
}

func (pkt *PUBCOMP) Unpack(buf *bytes.Buffer) error {
	pkt.Props = &PubcompProperties{}
	return unpackSimpleAck(buf, pkt.FixedHeader, &pkt.PacketID, &pkt.ReasonCode, pkt.Props)
}
