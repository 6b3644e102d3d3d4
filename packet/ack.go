package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// simpleAckProperties is the v5 properties block shared by PUBACK, PUBREC,
// and PUBCOMP: a diagnostic reason string plus arbitrary user properties.
// The three packet types differ only in their control byte and which
// reason-code table applies to ReasonCode. PUBREL has its own Pack/Unpack
// and PubrelProperties type in 0x6.pubrel.go.
type simpleAckProperties struct {
	ReasonString ReasonString
	UserProperty UserProperty
}

func (props *simpleAckProperties) Pack() ([]byte, error) {
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

func (props *simpleAckProperties) Unpack(buf *bytes.Buffer) error {
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
			return ErrMalformedBadProperty
		}
		i += n
	}
	return nil
}

// packSimpleAck serializes the packet-identifier + (v5-only) reason code +
// properties shape common to PUBACK/PUBREC/PUBCOMP, writing the fixed
// header once the body length is known.
func packSimpleAck(w io.Writer, fh *FixedHeader, packetID uint16, reasonCode ReasonCode, props *simpleAckProperties) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.Write(i2b(packetID))

	if fh.Version == VERSION500 {
		buf.WriteByte(reasonCode.Code)
		packed, err := props.Pack()
		if err != nil {
			return err
		}
		propsLen, err := encodeLength(len(packed))
		if err != nil {
			return err
		}
		buf.Write(propsLen)
		buf.Write(packed)
	}

	fh.RemainingLength = uint32(buf.Len())
	if err := fh.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// unpackSimpleAck is packSimpleAck's inverse. A v5 peer may omit the reason
// code (remaining length 2, implying success) or the properties block
// (remaining length 3); both are legal short forms, not malformed packets.
func unpackSimpleAck(buf *bytes.Buffer, fh *FixedHeader, packetID *uint16, reasonCode *ReasonCode, props *simpleAckProperties) error {
	*packetID = binary.BigEndian.Uint16(buf.Next(2))
	if fh.Version != VERSION500 {
		return nil
	}
	if buf.Len() == 0 {
		reasonCode.Code = CodeSuccess.Code
		return nil
	}
	reasonCode.Code = buf.Next(1)[0]
	if buf.Len() == 0 {
		return nil
	}
	return props.Unpack(buf)
}
