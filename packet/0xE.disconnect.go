package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DISCONNECT ends a connection cleanly, without the implied last-will
// publish a dropped TCP connection would trigger. In v3.1.1 it carries no
// variable header at all; v5.0 adds a reason code and a properties block
// so either side can explain why it's leaving.
//
// The fixed header flags are reserved and must be zero [MQTT-3.14.1-1].
// A server must not send DISCONNECT before it has sent CONNACK with a
// reason code below 0x80 [MQTT-3.14.0-1].
type DISCONNECT struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	// ReasonCode is absent (implicitly 0x00, normal disconnection) when
	// the packet's remaining length is zero.
	ReasonCode ReasonCode

	Props *DisconnectProperties
}

func NewDISCONNECT(version byte, reasonCode ReasonCode) *DISCONNECT {
	return &DISCONNECT{
		FixedHeader: &FixedHeader{
			Kind:    0xE,
			Version: version,
		},
		ReasonCode: reasonCode,
		Props:      &DisconnectProperties{},
	}
}

// disconnectReasonCodes are the reason codes MQTT v5 section 3.14.2.1
// defines for DISCONNECT, sent by either the client or the server.
var disconnectReasonCodes = map[byte]bool{
	0x00: true, 0x04: true,
	0x80: true, 0x81: true, 0x82: true, 0x83: true, 0x87: true,
	0x89: true, 0x8B: true, 0x8C: true, 0x8D: true, 0x8E: true,
	0x8F: true, 0x90: true, 0x93: true, 0x94: true, 0x95: true,
	0x96: true, 0x97: true, 0x98: true, 0x99: true, 0x9A: true,
	0x9B: true, 0x9C: true, 0x9D: true, 0x9E: true, 0x9F: true,
	0xA0: true, 0xA1: true, 0xA2: true,
}

func isValidDisconnectReasonCode(code uint8) bool {
	return disconnectReasonCodes[code]
}

func (pkt *DISCONNECT) Validate() error {
	if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
		return fmt.Errorf("disconnect: fixed header flags must be zero, got dup=%d qos=%d retain=%d", pkt.Dup, pkt.QoS, pkt.Retain)
	}
	if !isValidDisconnectReasonCode(pkt.ReasonCode.Code) {
		return fmt.Errorf("disconnect: invalid reason code 0x%02X", pkt.ReasonCode.Code)
	}
	if pkt.Props != nil {
		if err := pkt.Props.Validate(); err != nil {
			return fmt.Errorf("disconnect properties: %w", err)
		}
	}
	return nil
}

func (pkt *DISCONNECT) Kind() byte {
	return 0xE
}

func (pkt *DISCONNECT) Pack(w io.Writer) error {
	if err := pkt.Validate(); err != nil {
		return err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if pkt.Version == VERSION500 {
		buf.WriteByte(pkt.ReasonCode.Code)
	}

	if pkt.Version == VERSION500 && pkt.Props != nil {
		propsData, err := pkt.Props.Pack()
		if err != nil {
			return err
		}
		propsLen, err := encodeLength(len(propsData))
		if err != nil {
			return err
		}
		buf.Write(propsLen)
		buf.Write(propsData)
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *DISCONNECT) Unpack(buf *bytes.Buffer) error {
	// A missing remaining length means normal disconnection
	// [MQTT-3.14.2-1].
	if buf.Len() == 0 {
		pkt.ReasonCode = ReasonCode{Code: 0x00}
	} else {
		reasonCodeByte := buf.Next(1)[0]
		if pkt.Version == VERSION500 && !isValidDisconnectReasonCode(reasonCodeByte) {
			return fmt.Errorf("disconnect: invalid reason code 0x%02X", reasonCodeByte)
		}
		pkt.ReasonCode = ReasonCode{Code: reasonCodeByte}
	}

	if pkt.Version == VERSION500 {
		pkt.Props = &DisconnectProperties{}
		if buf.Len() > 0 {
			if err := pkt.Props.Unpack(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// DisconnectProperties is DISCONNECT's v5 properties block. A server must
// never send SessionExpiryInterval here [MQTT-3.14.2-2]; that field is
// only meaningful from client to server.
type DisconnectProperties struct {
	SessionExpiryInterval uint32
	ReasonString          string
	UserProperty          map[string][]string

	// ServerReference points the client at an alternate server, sent
	// alongside reason code 0x9C or 0x9D.
	ServerReference string
}

func (props *DisconnectProperties) Validate() error {
	if props.ReasonString != "" && !isValidUTF8String(props.ReasonString) {
		return errors.New("disconnect: reason string is not valid UTF-8")
	}
	if props.ServerReference != "" && !isValidUTF8String(props.ServerReference) {
		return errors.New("disconnect: server reference is not valid UTF-8")
	}
	for key, values := range props.UserProperty {
		if !isValidUTF8String(key) {
			return fmt.Errorf("disconnect: user property key is not valid UTF-8: %s", key)
		}
		for _, value := range values {
			if !isValidUTF8String(value) {
				return fmt.Errorf("disconnect: user property value is not valid UTF-8: %s", value)
			}
		}
	}
	return nil
}

func (props *DisconnectProperties) Pack() ([]byte, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.SessionExpiryInterval != 0 {
		buf.WriteByte(0x11)
		buf.Write(i4b(props.SessionExpiryInterval))
	}
	if props.ReasonString != "" {
		buf.WriteByte(0x1F)
		buf.Write(encodeUTF8(props.ReasonString))
	}
	for key, values := range props.UserProperty {
		for _, value := range values {
			buf.WriteByte(0x26)
			buf.Write(encodeUTF8(key))
			buf.Write(encodeUTF8(value))
		}
	}
	if props.ServerReference != "" {
		buf.WriteByte(0x1C)
		buf.Write(encodeUTF8(props.ServerReference))
	}

	return bytes.Clone(buf.Bytes()), nil
}

func (props *DisconnectProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}

	seen := make(map[uint8]bool)
	for i := uint32(0); i < propsLen; i++ {
		if buf.Len() < 1 {
			return ErrMalformedProperties
		}
		propID := buf.Next(1)[0]

		var n uint32
		switch propID {
		case 0x11:
			if seen[propID] {
				return fmt.Errorf("disconnect: duplicate session expiry interval")
			}
			seen[propID] = true
			props.SessionExpiryInterval, n = binary.BigEndian.Uint32(buf.Next(4)), 4
		case 0x1F:
			props.ReasonString, n = decodeUTF8[string](buf)
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			var err error
			n, err = up.Unpack(buf)
			if err != nil {
				return fmt.Errorf("disconnect: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
		case 0x1C:
			if seen[propID] {
				return fmt.Errorf("disconnect: duplicate server reference")
			}
			seen[propID] = true
			props.ServerReference, n = decodeUTF8[string](buf)
		default:
			return fmt.Errorf("disconnect: unknown property id 0x%02X", propID)
		}
		i += n
	}

	return props.Validate()
}

func (pkt *DISCONNECT) String() string {
	if pkt == nil {
		return "DISCONNECT<nil>"
	}

	result := fmt.Sprintf("DISCONNECT{ReasonCode:0x%02X", pkt.ReasonCode.Code)
	if pkt.Props != nil {
		if pkt.Props.SessionExpiryInterval != 0 {
			result += fmt.Sprintf(", SessionExpiry:%d", pkt.Props.SessionExpiryInterval)
		}
		if pkt.Props.ReasonString != "" {
			result += fmt.Sprintf(", Reason:%s", pkt.Props.ReasonString)
		}
		if len(pkt.Props.UserProperty) > 0 {
			result += fmt.Sprintf(", UserProps:%d", len(pkt.Props.UserProperty))
		}
		if pkt.Props.ServerReference != "" {
			result += fmt.Sprintf(", ServerRef:%s", pkt.Props.ServerReference)
		}
	}
	result += "}"
	return result
}
