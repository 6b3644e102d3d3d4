package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// PUBREL confirms receipt of PUBREC and tells the peer it's safe to
// release message ownership for the QoS 2 exchange: PUBLISH -> PUBREC ->
// PUBREL -> PUBCOMP. Unlike the other three acks in this chain, PUBREL's
// fixed-header flags pin QoS=1 rather than all-zero [MQTT-3.6.1-1].
type PUBREL struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	PacketID   uint16 `json:"PacketID,omitempty"`
	ReasonCode ReasonCode
	Props      *PubrelProperties
}

func (pkt *PUBREL) Kind() byte { return 0x6 }

func (pkt *PUBREL) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.Write(i2b(pkt.PacketID))
	if pkt.Version == VERSION500 {
		buf.WriteByte(pkt.ReasonCode.Code)

		if pkt.Props == nil {
			pkt.Props = &PubrelProperties{}
		}
		b, err := pkt.Props.Pack()
		if err != nil {
			return err
		}
		propsLen, err := encodeLength(len(b))
		if err != nil {
			return err
		}
		buf.Write(propsLen)
		buf.Write(b)
	}
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())

	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *PUBREL) Unpack(buf *bytes.Buffer) error {
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))
	if pkt.RemainingLength == 2 {
		return nil // success implied, no reason code or properties present
	}
	if pkt.Version == VERSION500 {
		pkt.ReasonCode.Code = buf.Next(1)[0]
		pkt.Props = &PubrelProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	}
	return nil
}

// PubrelProperties carries PUBREL's v5 reason string and repeatable user
// properties. Kept as a map (rather than the single-pair UserProperty
// struct PUBACK/PUBREC/PUBCOMP use) so a peer sending the same key twice
// isn't silently collapsed to one entry.
type PubrelProperties struct {
	ReasonString string
	UserProperty map[string][]string
}

func (props *PubrelProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.ReasonString != "" {
		buf.WriteByte(0x1F)
		buf.Write(encodeUTF8(props.ReasonString))
	}

	for k, values := range props.UserProperty {
		for _, v := range values {
			buf.WriteByte(0x26)
			buf.Write(encodeUTF8(k))
			buf.Write(encodeUTF8(v))
		}
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (props *PubrelProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}

	for i := uint32(0); i < propsLen; i++ {
		propsID, err := decodeLength(buf)
		if err != nil {
			return err
		}
		switch propsID {
		case 0x1F:
			var n uint32
			props.ReasonString, n = decodeUTF8[string](buf)
			i += n
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			var n1, n2 uint32
			var key, value string
			key, n1 = decodeUTF8[string](buf)
			value, n2 = decodeUTF8[string](buf)
			props.UserProperty[key] = append(props.UserProperty[key], value)
			i += n1 + n2
		default:
			return ErrMalformedBadProperty
		}
	}
	return nil
}
