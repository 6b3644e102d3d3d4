package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// This file collects the single-field v5 property types shared across
// multiple packet kinds (CONNECT, CONNACK, PUBLISH, SUBSCRIBE, DISCONNECT,
// AUTH...). Each type packs/unpacks its own property identifier byte plus
// wire value, and Unpack reports the number of bytes it consumed off the
// buffer (identifier byte excluded — callers add that themselves) so a
// properties-block loop can fold the return straight into a running total.

// SessionExpiryInterval (0x11) — seconds the server keeps session state
// after the network connection closes.
type SessionExpiryInterval uint32

func (s SessionExpiryInterval) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x11)
	buf.Write(i4b(uint32(s)))
	return nil
}

func (s *SessionExpiryInterval) Unpack(buf *bytes.Buffer) (uint32, error) {
	interval := binary.BigEndian.Uint32(buf.Next(4))
	*s = SessionExpiryInterval(interval)
	return 4, nil
}

func (s SessionExpiryInterval) Uint32() uint32 {
	return uint32(s)
}

// ReceiveMaximum (0x21) — the maximum number of QoS 1/2 publications the
// sender is willing to process concurrently.
type ReceiveMaximum uint16

func (s ReceiveMaximum) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x21)
	buf.Write(i2b(uint16(s)))
	return nil
}

func (s *ReceiveMaximum) Unpack(buf *bytes.Buffer) (uint32, error) {
	interval := binary.BigEndian.Uint16(buf.Next(2))
	*s = ReceiveMaximum(interval)
	return 2, nil
}

func (s ReceiveMaximum) Uint16() uint16 {
	return uint16(s)
}

// MaximumPacketSize (0x27) — largest packet the sender is willing to accept.
type MaximumPacketSize uint32

func (s MaximumPacketSize) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x27)
	buf.Write(i4b(uint32(s)))
	return nil
}

func (s *MaximumPacketSize) Unpack(buf *bytes.Buffer) (uint32, error) {
	interval := binary.BigEndian.Uint32(buf.Next(4))
	*s = MaximumPacketSize(interval)
	return 4, nil
}

func (s MaximumPacketSize) Uint32() uint32 {
	return uint32(s)
}

// TopicAliasMaximum (0x22) — highest topic alias value the sender will
// accept from its peer.
type TopicAliasMaximum uint16

func (s TopicAliasMaximum) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x22)
	buf.Write(i2b(uint16(s)))
	return nil
}

func (s *TopicAliasMaximum) Unpack(buf *bytes.Buffer) (uint32, error) {
	interval := binary.BigEndian.Uint16(buf.Next(2))
	*s = TopicAliasMaximum(interval)
	return 2, nil
}

func (s TopicAliasMaximum) Uint16() uint16 {
	return uint16(s)
}

// RequestResponseInformation (0x19) — client asks the server to return
// response information in CONNACK.
type RequestResponseInformation uint8

func (s RequestResponseInformation) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x19)
	buf.WriteByte(uint8(s))
	return nil
}

func (s *RequestResponseInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid request response information", ErrProtocolErr)
	}
	*s = RequestResponseInformation(value[0])
	return 1, nil
}

func (s RequestResponseInformation) Uint8() uint8 {
	return uint8(s)
}

// RequestProblemInformation (0x17) — client asks the server to include a
// reason string / user properties on failures.
type RequestProblemInformation uint8

func (s RequestProblemInformation) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x17)
	buf.WriteByte(uint8(s))
	return nil
}

func (s *RequestProblemInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid request problem information", ErrProtocolErr)
	}
	*s = RequestProblemInformation(value[0])
	if *s != 0 && *s != 1 {
		return 0, fmt.Errorf("%w: invalid request problem information", ErrProtocolErr)
	}
	return 1, nil
}

func (s RequestProblemInformation) Uint8() uint8 {
	return uint8(s)
}

// UserProperty (0x26) is the one property that can repeat: a free-form
// name/value pair, meaning defined entirely by the application. It is the
// shared decode helper every properties block reaches for instead of
// inlining the name/value read.
type UserProperty struct {
	Name  string
	Value string
}

func (s UserProperty) Pack(buf *bytes.Buffer) error {
	if s.Name == "" || s.Value == "" {
		return nil
	}
	buf.WriteByte(0x26)
	buf.Write(encodeUTF8(s.Name))
	buf.Write(encodeUTF8(s.Value))
	return nil
}

func (s *UserProperty) Unpack(buf *bytes.Buffer) (uint32, error) {
	var consumed uint32
	var n uint32
	s.Name, n = decodeUTF8[string](buf)
	consumed += n
	s.Value, n = decodeUTF8[string](buf)
	consumed += n
	return consumed, nil
}

// AuthenticationMethod (0x15) names the SASL-like method driving an
// extended authentication exchange. Must appear at most once; its presence
// is what turns on AUTH packet handling for a connection.
type AuthenticationMethod string

func (s *AuthenticationMethod) Pack(buf *bytes.Buffer) error {
	if s == nil || *s == "" {
		return nil
	}
	buf.WriteByte(0x15)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *AuthenticationMethod) Unpack(buf *bytes.Buffer) (uint32, error) {
	method, num := decodeUTF8[string](buf)
	*s = AuthenticationMethod(method)
	return num, nil
}

func (s AuthenticationMethod) String() string {
	return string(s)
}

// AuthenticationData (0x16) carries method-defined binary data; meaningless
// without a matching AuthenticationMethod.
type AuthenticationData []byte

func (s *AuthenticationData) Pack(buf *bytes.Buffer) error {
	if s == nil || len(*s) == 0 {
		return nil
	}
	buf.WriteByte(0x16)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *AuthenticationData) Unpack(buf *bytes.Buffer) (uint32, error) {
	data, num := decodeUTF8[[]byte](buf)
	*s = AuthenticationData(data)
	return num, nil
}

func (s AuthenticationData) Bytes() []byte {
	return []byte(s)
}

// MaximumQoS (0x24) — highest QoS the server supports; a client publishing
// above this gets disconnected.
type MaximumQoS uint8

func (s *MaximumQoS) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x24)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *MaximumQoS) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid maximum qos", ErrProtocolErr)
	}
	*s = MaximumQoS(value[0])
	return 1, nil
}

func (s MaximumQoS) Uint8() uint8 {
	return uint8(s)
}

// RetainAvailable (0x25) — whether the server supports retained messages.
type RetainAvailable uint8

func (s *RetainAvailable) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x25)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *RetainAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid retain available", ErrProtocolErr)
	}
	*s = RetainAvailable(value[0])
	return 1, nil
}

func (s RetainAvailable) Uint8() uint8 {
	return uint8(s)
}

// AssignedClientIdentifier (0x12) — the client ID the server generated
// because CONNECT arrived with an empty one.
type AssignedClientIdentifier string

func (s *AssignedClientIdentifier) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x12)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *AssignedClientIdentifier) Unpack(buf *bytes.Buffer) (uint32, error) {
	identifier, num := decodeUTF8[string](buf)
	*s = AssignedClientIdentifier(identifier)
	return num, nil
}

func (s AssignedClientIdentifier) String() string {
	return string(s)
}

// ReasonString (0x1F) — human-readable diagnostic text, not meant to be
// parsed programmatically.
type ReasonString string

func (s *ReasonString) Pack(buf *bytes.Buffer) error {
	if s == nil || *s == "" {
		return nil
	}
	buf.WriteByte(0x1F)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *ReasonString) Unpack(buf *bytes.Buffer) (uint32, error) {
	reason, num := decodeUTF8[string](buf)
	*s = ReasonString(reason)
	return num, nil
}

func (s ReasonString) String() string {
	return string(s)
}

// WildcardSubscriptionAvailable (0x28).
type WildcardSubscriptionAvailable uint8

func (s *WildcardSubscriptionAvailable) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x28)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *WildcardSubscriptionAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid wildcard subscription available", ErrProtocolErr)
	}
	*s = WildcardSubscriptionAvailable(value[0])
	return 1, nil
}

func (s WildcardSubscriptionAvailable) Uint8() uint8 {
	return uint8(s)
}

// SubscriptionIdentifiersAvailable (0x29).
type SubscriptionIdentifiersAvailable uint8

func (s *SubscriptionIdentifiersAvailable) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x29)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *SubscriptionIdentifiersAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid subscription identifiers available", ErrProtocolErr)
	}
	*s = SubscriptionIdentifiersAvailable(value[0])
	return 1, nil
}

func (s SubscriptionIdentifiersAvailable) Uint8() uint8 {
	return uint8(s)
}

// SharedSubscriptionAvailable (0x2A).
type SharedSubscriptionAvailable uint8

func (s *SharedSubscriptionAvailable) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x2A)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *SharedSubscriptionAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid shared subscription available", ErrProtocolErr)
	}
	*s = SharedSubscriptionAvailable(value[0])
	return 1, nil
}

func (s SharedSubscriptionAvailable) Uint8() uint8 {
	return uint8(s)
}

// ServerKeepAlive (0x13) overrides the keep-alive the client proposed in
// CONNECT.
type ServerKeepAlive uint16

func (s *ServerKeepAlive) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x13)
	buf.Write(i2b(uint16(*s)))
	return nil
}

func (s *ServerKeepAlive) Unpack(buf *bytes.Buffer) (uint32, error) {
	keepAlive := binary.BigEndian.Uint16(buf.Next(2))
	*s = ServerKeepAlive(keepAlive)
	return 2, nil
}

func (s ServerKeepAlive) Uint16() uint16 {
	return uint16(s)
}

// ResponseInformation (0x1A) seeds the client's construction of a response
// topic, used by request/response patterns layered on top of MQTT.
type ResponseInformation string

func (s *ResponseInformation) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x1A)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *ResponseInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	response, num := decodeUTF8[string](buf)
	*s = ResponseInformation(response)
	return num, nil
}

func (s ResponseInformation) String() string {
	return string(s)
}

// ServerReference (0x1C) points the client at an alternate server, usually
// alongside a "use another server" reason code.
type ServerReference string

func (s *ServerReference) Pack(buf *bytes.Buffer) error {
	buf.WriteByte(0x1C)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *ServerReference) Unpack(buf *bytes.Buffer) (uint32, error) {
	reference, num := decodeUTF8[string](buf)
	*s = ServerReference(reference)
	return num, nil
}

func (s ServerReference) String() string {
	return string(s)
}

// PayloadFormatIndicator (0x01) — 0 for unspecified bytes, 1 for UTF-8 text.
type PayloadFormatIndicator uint8

func (s *PayloadFormatIndicator) Pack(buf *bytes.Buffer) error {
	if s == nil || *s == 0 {
		return nil
	}
	buf.WriteByte(0x01)
	buf.WriteByte(uint8(*s))
	return nil
}

func (s *PayloadFormatIndicator) Unpack(buf *bytes.Buffer) (uint32, error) {
	value := buf.Next(1)
	if len(value) != 1 {
		return 0, fmt.Errorf("%w: invalid payload format indicator", ErrProtocolErr)
	}
	*s = PayloadFormatIndicator(value[0])
	return 1, nil
}

// MessageExpiryInterval (0x02) — seconds after which the server may discard
// an undelivered application message.
type MessageExpiryInterval uint32

func (s *MessageExpiryInterval) Pack(buf *bytes.Buffer) error {
	if s == nil || *s == 0 {
		return nil
	}
	buf.WriteByte(0x02)
	buf.Write(i4b(uint32(*s)))
	return nil
}

func (s *MessageExpiryInterval) Unpack(buf *bytes.Buffer) (uint32, error) {
	interval := binary.BigEndian.Uint32(buf.Next(4))
	*s = MessageExpiryInterval(interval)
	return 4, nil
}

func (s MessageExpiryInterval) Uint32() uint32 {
	return uint32(s)
}

// TopicAlias (0x23) substitutes a small integer for a topic name already
// exchanged earlier in the connection, shrinking repeat PUBLISH packets.
type TopicAlias uint16

func (s *TopicAlias) Pack(buf *bytes.Buffer) error {
	if s == nil || *s == 0 {
		return nil
	}
	buf.WriteByte(0x23)
	buf.Write(i2b(uint16(*s)))
	return nil
}

func (s *TopicAlias) Unpack(buf *bytes.Buffer) (uint32, error) {
	alias := binary.BigEndian.Uint16(buf.Next(2))
	*s = TopicAlias(alias)
	return 2, nil
}

func (s TopicAlias) Uint16() uint16 {
	return uint16(s)
}

// CorrelationData (0x09) lets a requester match a PUBLISH response back to
// its request; opaque to the broker.
type CorrelationData []byte

func (s *CorrelationData) Pack(buf *bytes.Buffer) error {
	if s == nil || len(*s) == 0 {
		return nil
	}
	buf.WriteByte(0x09)
	buf.Write(encodeUTF8(*s))
	return nil
}

func (s *CorrelationData) Unpack(buf *bytes.Buffer) (uint32, error) {
	data, num := decodeUTF8[[]byte](buf)
	*s = CorrelationData(data)
	return num, nil
}

func (s CorrelationData) Bytes() []byte {
	return []byte(s)
}

// ContentType (0x03) — MIME-style description of the payload, opaque to
// the broker.
type ContentType string

func (s ContentType) Pack(buf *bytes.Buffer) error {
	if s == "" {
		return nil
	}
	buf.WriteByte(0x03)
	buf.Write(encodeUTF8(s))
	return nil
}

func (s *ContentType) Unpack(buf *bytes.Buffer) (uint32, error) {
	value, num := decodeUTF8[string](buf)
	*s = ContentType(value)
	return num, nil
}

func (s ContentType) String() string {
	return string(s)
}

// SubscriptionIdentifier (0x0B) tags a subscription so matching deliveries
// can be traced back to it; encoded as a variable byte integer, so Unpack
// has to count the continuation bytes itself rather than reuse decodeUTF8's
// fixed two-byte prefix accounting.
type SubscriptionIdentifier uint32

func (s SubscriptionIdentifier) Pack(buf *bytes.Buffer) error {
	if s == 0 {
		return nil
	}
	buf.WriteByte(0x0B)
	vbi, err := encodeLength(uint32(s))
	if err != nil {
		return err
	}
	buf.Write(vbi)
	return nil
}

func (s *SubscriptionIdentifier) Unpack(buf *bytes.Buffer) (uint32, error) {
	var value uint32
	var consumed uint32
	for shift := 0; ; shift += 7 {
		b, err := buf.ReadByte()
		if err != nil {
			return 0, err
		}
		consumed++
		value |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
	}
	*s = SubscriptionIdentifier(value)
	return consumed, nil
}

func (s SubscriptionIdentifier) Uint32() uint32 {
	return uint32(s)
}
