package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang-io/requests"
)

// NAME is the fixed 6-byte protocol name prefix every CONNECT variable
// header starts with: length 4, then "MQTT".
var NAME = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

// CONNECT is the first packet a client sends after opening the network
// connection, and it is sent only once per connection: a second CONNECT
// on the same connection is a protocol violation [MQTT-3.1.0-2].
//
// Variable header: protocol name, protocol level (stored on FixedHeader so
// every packet type can see it), connect flags, keep-alive, then a v5
// properties block. Payload: client ID, then will properties/topic/payload
// if WillFlag is set, then username/password if their flags are set.
type CONNECT struct {
	*FixedHeader

	// ConnectFlags is rebuilt from CleanStart/WillQoS/WillRetain/Username/
	// Password at Pack time; Unpack fills it straight off the wire.
	ConnectFlags ConnectFlags

	// CleanStart mirrors ConnectFlags bit 1, set by the caller before Pack.
	CleanStart bool

	// WillQoS and WillRetain mirror ConnectFlags bits 4-3 and 5, meaningful
	// only when WillTopic/WillPayload are set.
	WillQoS    uint8
	WillRetain bool

	KeepAlive uint16

	Props *ConnectProperties `json:"Properties,omitempty"`

	// ClientID must be 1-23 characters if the caller supplies one; an
	// empty string on Unpack is filled in with a generated ID rather than
	// left for the caller to assign, since the broker side of this
	// protocol has already accepted the connection by that point.
	ClientID string `json:"ClientID,omitempty"`

	WillProperties *WillProperties `json:"Will,omitempty"`
	WillTopic      string
	WillPayload    []byte

	Username string `json:"Username,omitempty"`
	Password string `json:"Password,omitempty"`
}

func (pkt *CONNECT) Kind() byte {
	return 0x1
}

func (pkt *CONNECT) String() string {
	return "[0x1]CONNECT"
}

func (pkt *CONNECT) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(NAME)
	buf.WriteByte(pkt.FixedHeader.Version)

	uf := s2i(pkt.Username) // UserNameFlag - bit 7
	pf := s2i(pkt.Password) // PasswordFlag - bit 6
	wr := uint8(0)          // WillRetain - bit 5
	wq := pkt.WillQoS       // WillQoS - bits 4-3
	wf := uint8(0)          // WillFlag - bit 2
	cs := uint8(0)          // CleanStart/CleanSession - bit 1

	if pkt.WillTopic != "" || pkt.WillPayload != nil {
		wf = 1
		if pkt.WillRetain {
			wr = 1
		}
	} else {
		wq, wr = 0, 0
	}

	if pkt.CleanStart {
		cs = 1
	}

	flag := uf<<7 | pf<<6 | wr<<5 | wq<<3 | wf<<2 | cs<<1
	pkt.ConnectFlags = ConnectFlags(flag)
	buf.WriteByte(flag)

	buf.Write(i2b(pkt.KeepAlive))

	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &ConnectProperties{}
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

	if len(pkt.ClientID) > 23 {
		return fmt.Errorf("connect: client identifier too long (%d chars, max 23)", len(pkt.ClientID))
	}
	buf.Write(s2b(pkt.ClientID))

	if pkt.ConnectFlags.WillFlag() {
		if pkt.Version == VERSION500 && pkt.WillProperties != nil {
			b, err := pkt.WillProperties.Pack()
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
		buf.Write(s2b(pkt.WillTopic))
		buf.Write(s2b(pkt.WillPayload))
	}

	if pkt.Username != "" {
		buf.Write(s2b(pkt.Username))
	}
	if pkt.Password != "" {
		buf.Write(s2b(pkt.Password))
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	name := buf.Next(6)
	if !bytes.Equal(name, NAME) {
		return fmt.Errorf("%w: remaining length=%d, got %v", ErrMalformedProtocolName, pkt.RemainingLength, name)
	}

	pkt.Version, pkt.ConnectFlags = buf.Next(1)[0], ConnectFlags(buf.Next(1)[0])

	// The reserved flag bit must be zero [MQTT-3.1.2-3].
	if pkt.ConnectFlags.Reserved() != 0 {
		return ErrMalformedPacket
	}
	// WillQoS == 3 is reserved and never valid [MQTT-3.1.2-14].
	if pkt.ConnectFlags.WillQoS() > 2 {
		return ErrProtocolViolationQosOutOfRange
	}
	// WillFlag == 0 forces WillQoS and WillRetain to 0 [MQTT-3.1.2-11].
	if !pkt.ConnectFlags.WillFlag() && (pkt.ConnectFlags.WillRetain() || pkt.ConnectFlags.WillQoS() != 0) {
		return ErrProtocolViolation
	}

	pkt.KeepAlive = binary.BigEndian.Uint16(buf.Next(2))

	switch pkt.Version {
	case VERSION500:
		pkt.Props = &ConnectProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	case VERSION311:
	case VERSION310:
		return ErrUnsupportedProtocolVersion
	default:
		return ErrMalformedProtocolVersion
	}

	pkt.ClientID, _ = decodeUTF8[string](buf)
	if pkt.ClientID == "" {
		pkt.ClientID = requests.GenId()
	}

	if pkt.ConnectFlags.WillFlag() {
		// WillFlag == 1 requires Will Topic and Will Payload in the
		// payload [MQTT-3.1.2-9].
		if pkt.Version == VERSION500 {
			pkt.WillProperties = &WillProperties{}
			if err := pkt.WillProperties.Unpack(buf); err != nil {
				return err
			}
		}
		pkt.WillTopic, _ = decodeUTF8[string](buf)
		pkt.WillPayload, _ = decodeUTF8[[]byte](buf)
		if pkt.WillTopic == "" {
			return ErrProtocolViolation
		}
	}

	if pkt.ConnectFlags.UserNameFlag() {
		// UserNameFlag == 1 requires a username field [MQTT-3.1.2-19].
		pkt.Username, _ = decodeUTF8[string](buf)
	} else if pkt.ConnectFlags.PasswordFlag() {
		// UserNameFlag == 0 forces PasswordFlag == 0 [MQTT-3.1.2-22].
		return ErrMalformedPassword
	}

	if pkt.ConnectFlags.PasswordFlag() {
		pkt.Password, _ = decodeUTF8[string](buf)
	}

	return nil
}

// Will is the plain (non-v5) description of a connection's last-will
// message: topic, payload, and the QoS/retain it should be published with.
type Will struct {
	TopicName string
	Message   []byte
	Retain    uint8
	QoS       uint8
}

// ConnectProperties is CONNECT's v5 properties block: session lifetime and
// flow-control hints (session expiry, receive maximum, maximum packet
// size, topic alias maximum), response/problem information requests, user
// properties, and extended authentication (method + data).
type ConnectProperties struct {
	SessionExpiryInterval      SessionExpiryInterval
	ReceiveMaximum             ReceiveMaximum
	MaximumPacketSize          MaximumPacketSize
	TopicAliasMaximum          TopicAliasMaximum
	RequestResponseInformation RequestResponseInformation
	RequestProblemInformation  RequestProblemInformation
	UserProperty               map[string][]string
	AuthenticationMethod       AuthenticationMethod
	AuthenticationData         AuthenticationData
}

func (props *ConnectProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.SessionExpiryInterval != 0 {
		props.SessionExpiryInterval.Pack(buf)
	}
	if props.ReceiveMaximum != 0 {
		props.ReceiveMaximum.Pack(buf)
	}
	if props.MaximumPacketSize != 0 {
		props.MaximumPacketSize.Pack(buf)
	}
	if props.TopicAliasMaximum != 0 {
		props.TopicAliasMaximum.Pack(buf)
	}
	if props.RequestResponseInformation != 0 {
		props.RequestResponseInformation.Pack(buf)
	}
	if props.RequestProblemInformation != 0 {
		props.RequestProblemInformation.Pack(buf)
	}
	for k, values := range props.UserProperty {
		for _, v := range values {
			buf.WriteByte(0x26)
			buf.Write(encodeUTF8(k))
			buf.Write(encodeUTF8(v))
		}
	}
	if props.AuthenticationMethod != "" {
		props.AuthenticationMethod.Pack(buf)
	}
	if props.AuthenticationData != nil {
		buf.WriteByte(0x16)
		buf.Write(encodeUTF8(props.AuthenticationData))
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (props *ConnectProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}
	for i := uint32(0); i < propsLen; i++ {
		propsCode, err := decodeLength(buf)
		if err != nil {
			return err
		}
		uLen := uint32(0)
		switch propsCode {
		case 0x11:
			uLen, err = props.SessionExpiryInterval.Unpack(buf)
			if err != nil {
				return err
			}
		case 0x21:
			if props.ReceiveMaximum != 0 {
				return ErrProtocolErr
			}
			if uLen, err = props.ReceiveMaximum.Unpack(buf); err != nil {
				return err
			}
			if props.ReceiveMaximum == 0 {
				return ErrProtocolErr
			}
		case 0x27:
			if props.MaximumPacketSize != 0 {
				return ErrProtocolErr
			}
			if uLen, err = props.MaximumPacketSize.Unpack(buf); err != nil {
				return err
			}
			if props.MaximumPacketSize == 0 {
				return ErrProtocolErr
			}
		case 0x22:
			if props.TopicAliasMaximum != 0 {
				return ErrProtocolErr
			}
			if uLen, err = props.TopicAliasMaximum.Unpack(buf); err != nil {
				return err
			}
			if props.TopicAliasMaximum == 0 {
				return ErrProtocolErr
			}
		case 0x19:
			if uLen, err = props.RequestResponseInformation.Unpack(buf); err != nil {
				return err
			}
			if props.RequestResponseInformation != 0 && props.RequestResponseInformation != 1 {
				return ErrProtocolErr
			}
		case 0x17:
			if uLen, err = props.RequestProblemInformation.Unpack(buf); err != nil {
				return err
			}
			if props.RequestProblemInformation != 0 && props.RequestProblemInformation != 1 {
				return ErrProtocolErr
			}
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			if uLen, err = up.Unpack(buf); err != nil {
				return fmt.Errorf("connect: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
		case 0x15:
			if uLen, err = props.AuthenticationMethod.Unpack(buf); err != nil {
				return err
			}
		case 0x16:
			if uLen, err = props.AuthenticationData.Unpack(buf); err != nil {
				return fmt.Errorf("connect: authentication data: %w", err)
			}
		default:
			return ErrMalformedProperties
		}
		i += uLen
	}
	return nil
}

// WillProperties is the v5 properties block attached to the will message
// itself, distinct from CONNECT's own properties: delay interval, payload
// framing, content type, response topic, correlation data.
type WillProperties struct {
	PropertyLength int32

	WillDelayInterval      uint32 `json:"WillDelayInterval,omitempty"`
	PayloadFormatIndicator uint8  `json:"PayloadFormatIndicator,omitempty"`
	MessageExpiryInterval  uint32 `json:"MessageExpiryInterval,omitempty"`
	ContentType            string `json:"ContentType,omitempty"`
	ResponseTopic          string `json:"ResponseTopic,omitempty"`
	CorrelationData        []byte `json:"CorrelationData,omitempty"`

	// UserProperty is not written by Pack, and Unpack rejects a will
	// properties block containing a user property (id 0x26) with
	// ErrMalformedWillProperties.
	UserProperty []byte
}

func (props *WillProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.PayloadFormatIndicator != 0 {
		buf.WriteByte(0x01)
		buf.WriteByte(props.PayloadFormatIndicator)
	}
	if props.MessageExpiryInterval != 0 {
		buf.WriteByte(0x02)
		buf.Write(i4b(props.MessageExpiryInterval))
	}
	if props.ContentType != "" {
		buf.WriteByte(0x03)
		buf.Write(encodeUTF8(props.ContentType))
	}
	if props.ResponseTopic != "" {
		buf.WriteByte(0x08)
		buf.Write(encodeUTF8(props.ResponseTopic))
	}
	if props.CorrelationData != nil {
		buf.WriteByte(0x09)
		buf.Write(encodeUTF8(props.CorrelationData))
	}
	if props.WillDelayInterval != 0 {
		buf.WriteByte(0x18)
		buf.Write(i4b(props.WillDelayInterval))
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (props *WillProperties) Unpack(b *bytes.Buffer) error {
	propsLen, err := decodeLength(b)
	if err != nil {
		return err
	}

	seen := make(map[uint32]bool)
	for i := uint32(0); i < propsLen; i++ {
		propsId, err := decodeLength(b)
		if err != nil {
			return err
		}
		if seen[propsId] {
			return ErrProtocolErr
		}
		seen[propsId] = true

		switch propsId {
		case 0x01:
			props.PayloadFormatIndicator = b.Next(1)[0]
			i += 1
			if props.PayloadFormatIndicator > 1 {
				return ErrProtocolErr
			}
		case 0x02:
			props.MessageExpiryInterval = binary.BigEndian.Uint32(b.Next(4))
			i += 4
		case 0x03:
			var n uint32
			props.ContentType, n = decodeUTF8[string](b)
			i += n
		case 0x08:
			var n uint32
			props.ResponseTopic, n = decodeUTF8[string](b)
			i += n
		case 0x09:
			var n uint32
			props.CorrelationData, n = decodeUTF8[[]byte](b)
			i += n
		case 0x18:
			props.WillDelayInterval = binary.BigEndian.Uint32(b.Next(4))
			i += 4
		default:
			return ErrMalformedWillProperties
		}
	}
	return nil
}

// ConnectFlags packs UserNameFlag/PasswordFlag/WillRetain/WillQoS/WillFlag/
// CleanStart/Reserved into the single flags byte that follows the protocol
// level in CONNECT's variable header.
type ConnectFlags uint8

func (f ConnectFlags) Reserved() uint8 {
	return uint8(f) & 0x01
}

func (f ConnectFlags) CleanStart() bool {
	return (uint8(f) & 0x02) == 0x02
}

func (f ConnectFlags) WillFlag() bool {
	return (uint8(f) & 0x04) == 0x04
}

func (f ConnectFlags) WillQoS() uint8 {
	return (uint8(f) & 0x18) >> 3
}

func (f ConnectFlags) WillRetain() bool {
	return (uint8(f) & 0x20) == 0x20
}

func (f ConnectFlags) UserNameFlag() bool {
	return (uint8(f) & 0x80) == 0x80
}

func (f ConnectFlags) PasswordFlag() bool {
	return (uint8(f) & 0x40) == 0x40
}
