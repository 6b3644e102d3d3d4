package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CONNACK is the server's reply to CONNECT: whether the connection was
// accepted and, if a session already existed for this client, whether it
// was resumed. The fixed header carries no flags of its own.
type CONNACK struct {
	*FixedHeader

	// SessionPresent is only meaningful when the client did not request a
	// clean start; it tells the client whether the server found and
	// resumed a prior session [MQTT-3.2.2-1].
	SessionPresent uint8

	// ConnectReturnCode reports whether the connection was accepted. A
	// non-zero code means the server must close the network connection
	// immediately after sending this packet [MQTT-3.2.2-5].
	ConnectReturnCode ReasonCode `json:"ConnectReturnCode,omitempty"`

	// Props is CONNACK's v5 properties block, carrying negotiated limits
	// (receive maximum, maximum packet size, topic alias maximum) and
	// server-assigned values (client ID, keep-alive) the client must
	// adopt in place of what it originally requested.
	Props *ConnackProps
}

func (pkt *CONNACK) Kind() byte {
	return 0x2
}

func (pkt *CONNACK) String() string {
	return fmt.Sprintf("[0x2]ConnectReturnCode=%d", pkt.ConnectReturnCode.Code)
}

func (pkt *CONNACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.SessionPresent)
	buf.WriteByte(pkt.ConnectReturnCode.Code)

	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &ConnackProps{}
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

func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	pkt.SessionPresent = buf.Next(1)[0]
	pkt.ConnectReturnCode = ReasonCode{Code: buf.Next(1)[0]}

	if pkt.Version == VERSION500 {
		pkt.Props = &ConnackProps{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	}
	return nil
}

// ConnackProps is CONNACK's v5 properties block. Most fields are
// negotiated ceilings the server imposes on the session (receive maximum,
// maximum QoS, maximum packet size, topic alias maximum), some are
// feature flags (retain/wildcard/shared-subscription/subscription-ID
// availability), and a few are server-assigned values that override what
// the client sent in CONNECT (assigned client ID, server keep-alive).
type ConnackProps struct {
	SessionExpiryInterval uint32
	ReceiveMaximum        uint16

	// MaximumQoS is present only when the server cannot accept QoS 1 or 2
	// PUBLISH packets [MQTT-3.2.2-9]; the protocol reads its absence as 2,
	// but Unpack leaves the field 0 when the property is absent.
	MaximumQoS uint8

	// RetainAvailable is left 0 by Unpack when absent (the protocol reads
	// absence as 1, supported).
	RetainAvailable   uint8
	MaximumPacketSize uint32

	// AssignedClientID is set when the client connected with an empty
	// client ID and the server generated one on its behalf
	// [MQTT-3.2.2-16].
	AssignedClientID string
	TopicAliasMaximum uint16
	ReasonString      string
	UserProperty      map[string][]string

	// WildcardSubscriptionAvailable, SubscriptionIdentifierAvailable, and
	// SharedSubscriptionAvailable are each left 0 by Unpack when absent
	// (the protocol reads absence as 1, supported).
	WildcardSubscriptionAvailable   uint8
	SubscriptionIdentifierAvailable uint8
	SharedSubscriptionAvailable     uint8

	// ServerKeepAlive, when present, replaces the keep-alive value the
	// client sent in CONNECT [MQTT-3.2.2-21].
	ServerKeepAlive uint16

	ResponseInformation string

	// ServerReference points the client at an alternate server; set
	// alongside a 0x9C or 0x9D reason code.
	ServerReference      string
	AuthenticationMethod string
	AuthenticationData   []byte
}

func (props *ConnackProps) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.SessionExpiryInterval != 0 {
		buf.WriteByte(0x11)
		buf.Write(i4b(props.SessionExpiryInterval))
	}
	if props.ReceiveMaximum != 0 {
		buf.WriteByte(0x21)
		buf.Write(i2b(props.ReceiveMaximum))
	}
	if props.MaximumQoS != 0 {
		buf.WriteByte(0x24)
		buf.WriteByte(props.MaximumQoS)
	}
	if props.RetainAvailable != 0 {
		buf.WriteByte(0x25)
		buf.WriteByte(props.RetainAvailable)
	}
	if props.MaximumPacketSize != 0 {
		buf.WriteByte(0x27)
		buf.Write(i4b(props.MaximumPacketSize))
	}
	if props.AssignedClientID != "" {
		buf.WriteByte(0x12)
		buf.Write(encodeUTF8(props.AssignedClientID))
	}
	if props.TopicAliasMaximum != 0 {
		buf.WriteByte(0x22)
		buf.Write(i2b(props.TopicAliasMaximum))
	}
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
	if props.WildcardSubscriptionAvailable != 0 {
		buf.WriteByte(0x28)
		buf.WriteByte(props.WildcardSubscriptionAvailable)
	}
	if props.SubscriptionIdentifierAvailable != 0 {
		buf.WriteByte(0x29)
		buf.WriteByte(props.SubscriptionIdentifierAvailable)
	}
	if props.SharedSubscriptionAvailable != 0 {
		buf.WriteByte(0x2A)
		buf.WriteByte(props.SharedSubscriptionAvailable)
	}
	if props.ServerKeepAlive != 0 {
		buf.WriteByte(0x13)
		buf.Write(i2b(props.ServerKeepAlive))
	}
	if props.ResponseInformation != "" {
		buf.WriteByte(0x1A)
		buf.Write(encodeUTF8(props.ResponseInformation))
	}
	if props.ServerReference != "" {
		buf.WriteByte(0x1C)
		buf.Write(encodeUTF8(props.ServerReference))
	}
	if props.AuthenticationMethod != "" {
		buf.WriteByte(0x15)
		buf.Write(encodeUTF8(props.AuthenticationMethod))
	}
	if props.AuthenticationData != nil {
		buf.WriteByte(0x16)
		buf.Write(encodeUTF8(props.AuthenticationData))
	}

	return bytes.Clone(buf.Bytes()), nil
}

func (props *ConnackProps) Unpack(b *bytes.Buffer) error {
	propsLen, err := decodeLength(b)
	if err != nil {
		return err
	}

	for i := uint32(0); i < propsLen; i++ {
		propsId, err := decodeLength(b)
		if err != nil {
			return err
		}
		var n uint32
		switch propsId {
		case 0x11:
			props.SessionExpiryInterval, n = binary.BigEndian.Uint32(b.Next(4)), 4
		case 0x21:
			props.ReceiveMaximum, n = binary.BigEndian.Uint16(b.Next(2)), 2
		case 0x24:
			props.MaximumQoS, n = b.Next(1)[0], 1
		case 0x25:
			props.RetainAvailable, n = b.Next(1)[0], 1
		case 0x27:
			props.MaximumPacketSize, n = binary.BigEndian.Uint32(b.Next(4)), 4
		case 0x12:
			props.AssignedClientID, n = decodeUTF8[string](b)
		case 0x22:
			props.TopicAliasMaximum, n = binary.BigEndian.Uint16(b.Next(2)), 2
		case 0x1F:
			props.ReasonString, n = decodeUTF8[string](b)
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			if n, err = up.Unpack(b); err != nil {
				return fmt.Errorf("connack: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
		case 0x28:
			props.WildcardSubscriptionAvailable, n = b.Next(1)[0], 1
		case 0x29:
			props.SubscriptionIdentifierAvailable, n = b.Next(1)[0], 1
		case 0x2A:
			props.SharedSubscriptionAvailable, n = b.Next(1)[0], 1
		case 0x13:
			props.ServerKeepAlive, n = binary.BigEndian.Uint16(b.Next(2)), 2
		case 0x1A:
			props.ResponseInformation, n = decodeUTF8[string](b)
		case 0x1C:
			props.ServerReference, n = decodeUTF8[string](b)
		case 0x15:
			props.AuthenticationMethod, n = decodeUTF8[string](b)
		case 0x16:
			props.AuthenticationData, n = decodeUTF8[[]byte](b)
		default:
			return ErrMalformedProperties
		}
		i += n
	}
	return nil
}
