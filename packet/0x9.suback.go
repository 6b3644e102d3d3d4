package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SUBACK answers a SUBSCRIBE with one reason code per topic filter, in the
// same order the filters were requested. A granted QoS (0x00-0x02) means
// the subscription succeeded at that QoS ceiling; anything else is a
// per-filter failure reason.
type SUBACK struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	PacketID    uint16 `json:"PacketID,omitempty"`
	SubackProps *SubackProperties

	ReasonCode []ReasonCode `json:"ReasonCode,omitempty"`
}

func (pkt *SUBACK) Kind() byte { return 0x9 }

func (pkt *SUBACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	if len(pkt.ReasonCode) == 0 {
		return ErrMalformedReasonCode
	}
	buf.Write(i2b(pkt.PacketID))

	if pkt.Version == VERSION500 {
		if pkt.SubackProps == nil {
			pkt.SubackProps = &SubackProperties{}
		}
		b, err := pkt.SubackProps.Pack()
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

	for _, reason := range pkt.ReasonCode {
		buf.WriteByte(reason.Code)
	}
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// subackReasonCodes are the codes [MQTT-3.9.3-1] permits in a SUBACK
// payload entry: granted QoS 0-2, or one of the standard subscribe
// failure reasons.
var subackReasonCodes = map[byte]bool{
	0x00: true, 0x01: true, 0x02: true,
	0x80: true, 0x83: true, 0x87: true, 0x8F: true,
	0x91: true, 0x97: true, 0x9A: true, 0x9B: true,
}

func (pkt *SUBACK) Unpack(buf *bytes.Buffer) error {
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))

	if pkt.Version == VERSION500 {
		pkt.SubackProps = &SubackProperties{}
		if err := pkt.SubackProps.Unpack(buf); err != nil {
			return err
		}
	}

	for buf.Len() != 0 {
		code := buf.Next(1)[0]
		if !subackReasonCodes[code] {
			return ErrMalformedReasonCode
		}
		pkt.ReasonCode = append(pkt.ReasonCode, ReasonCode{Code: code})
	}
	return nil
}

// SubackProperties is SUBACK's v5 properties block: a diagnostic reason
// string plus arbitrary user properties.
type SubackProperties struct {
	ReasonString ReasonString
	UserProperty UserProperty
}

func (props *SubackProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := props.ReasonString.Pack(buf); err != nil {
		return nil, err
	}
	if err := props.UserProperty.Pack(buf); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (props *SubackProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}

	for i := uint32(0); i < propsLen; i++ {
		propsID, err := decodeLength(buf)
		if err != nil {
			return err
		}
		var n uint32
		switch propsID {
		case 0x1F:
			if n, err = props.ReasonString.Unpack(buf); err != nil {
				return err
			}
		case 0x26:
			if n, err = props.UserProperty.Unpack(buf); err != nil {
				return err
			}
		default:
			return ErrProtocolViolation
		}
		i += n
	}
	return nil
}
