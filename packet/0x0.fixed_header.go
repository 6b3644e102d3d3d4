package packet

import (
	"fmt"
	"io"
)

// FixedHeader is the two-part prefix that precedes every MQTT control
// packet: one byte of packet type + flags, followed by a variable-byte
// remaining-length integer.
//
//	byte 1: | type (bits 7-4) | flags (bits 3-0) |
//	byte 2+: remaining length (1-4 bytes)
type FixedHeader struct {
	// Version selects v3.1.1 vs v5 field layout for packet types whose
	// wire shape differs between the two. It never appears on the wire
	// itself.
	Version byte

	Kind byte `json:"Kind,omitempty"`

	Dup    uint8 `json:"Dup,omitempty"`
	QoS    uint8 `json:"QoS,omitempty"`
	Retain uint8 `json:"Retain,omitempty"`

	RemainingLength uint32 `json:"RemainingLength,omitempty"`
}

func (pkt *FixedHeader) String() string {
	return fmt.Sprintf("%s: Len=%d", Kind[pkt.Kind], pkt.RemainingLength)
}

func (pkt *FixedHeader) Pack(w io.Writer) error {
	b := make([]byte, 1, 5)
	b[0] = pkt.Kind<<4 | pkt.Dup<<3 | pkt.QoS<<1 | pkt.Retain

	enc, err := encodeLength(pkt.RemainingLength)
	if err != nil {
		return err
	}
	b = append(b, enc...)
	_, err = w.Write(b)
	return err
}

// checkReservedFlags enforces the fixed DUP/QoS/RETAIN values the protocol
// pins for packet types that carry no meaningful flags of their own
// [MQTT-2.2.2-1]; a peer that sends anything else must be treated as
// sending a malformed packet [MQTT-2.2.2-2].
func (pkt *FixedHeader) checkReservedFlags() error {
	switch pkt.Kind {
	case 0x03: // PUBLISH carries a real QoS
		if pkt.QoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
	case 0x06, 0x08, 0x0A: // PUBREL, SUBSCRIBE, UNSUBSCRIBE: DUP=0 QoS=1 RETAIN=0
		if pkt.Dup != 0 || pkt.QoS != 1 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	default: // everything else: all-zero flags
		if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	}
	return nil
}

func (pkt *FixedHeader) Unpack(r io.Reader) error {
	b := [1]byte{}
	if _, err := r.Read(b[:]); err != nil {
		return err
	}

	pkt.Kind = b[0] >> 4
	pkt.Dup = b[0] & 0b00001000 >> 3
	pkt.QoS = b[0] & 0b00000110 >> 1
	pkt.Retain = b[0] & 0b00000001

	if err := pkt.checkReservedFlags(); err != nil {
		return err
	}

	var err error
	pkt.RemainingLength, err = decodeLength(r)
	return err
}
