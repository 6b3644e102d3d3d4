package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// PUBLISH carries an application message between client and broker. The
// fixed-header flags are meaningful here, unlike most other packet types:
// DUP marks a resend, QoS selects delivery guarantee, RETAIN asks the
// broker to keep the message as the topic's last-known value.
//
// Variable header: topic name, then packet identifier (QoS > 0 only), then
// a v5 properties block. Payload: the raw application message, which may
// be zero-length.
type PUBLISH struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	// PacketID is absent on the wire when QoS == 0 [MQTT-2.3.1-5].
	PacketID uint16 `json:"PacketID,omitempty"`

	Message *Message `json:"message,omitempty"`

	Props *PublishProperties `json:"properties,omitempty"`
}

func (pkt *PUBLISH) Kind() byte { return 0x3 }

func (pkt *PUBLISH) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if pkt.FixedHeader == nil {
		return fmt.Errorf("publish: fixed header is nil")
	}
	if pkt.FixedHeader.QoS == 3 {
		return fmt.Errorf("publish: QoS bits 11 are reserved [MQTT-3.3.1-4]")
	}
	if pkt.Message.TopicName == "" {
		return fmt.Errorf("publish: topic name cannot be empty [MQTT-3.3.2-1]")
	}
	if strings.ContainsAny(pkt.Message.TopicName, "+#") {
		return fmt.Errorf("publish: topic name cannot contain wildcard characters [MQTT-3.3.2-2]")
	}
	if strings.Contains(pkt.Message.TopicName, " ") {
		return fmt.Errorf("publish: topic name cannot contain space characters")
	}

	buf.Write(s2b(pkt.Message.TopicName))
	if pkt.FixedHeader.QoS > 0 {
		if pkt.PacketID == 0 {
			return fmt.Errorf("publish: packet identifier must be > 0 for QoS > 0 [MQTT-2.3.1-1]")
		}
		buf.Write(i2b(pkt.PacketID))
	}

	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &PublishProperties{}
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

	if _, err := buf.Write(pkt.Message.Content); err != nil {
		return err
	}
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())

	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *PUBLISH) Unpack(buf *bytes.Buffer) error {
	topicLength := int(binary.BigEndian.Uint16(buf.Next(2)))
	if topicLength == 0 {
		return fmt.Errorf("publish: topic name cannot be empty [MQTT-3.3.2-1]")
	}

	pkt.Message = &Message{TopicName: string(buf.Next(topicLength))}
	if strings.ContainsAny(pkt.Message.TopicName, "+#") {
		return fmt.Errorf("publish: topic name cannot contain wildcard characters [MQTT-3.3.2-2]")
	}
	if strings.Contains(pkt.Message.TopicName, " ") {
		return fmt.Errorf("publish: topic name cannot contain space characters")
	}

	if pkt.FixedHeader.QoS > 0 {
		if buf.Len() < 2 {
			return fmt.Errorf("publish: insufficient data for packet identifier")
		}
		pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))
		if pkt.PacketID == 0 {
			return fmt.Errorf("publish: packet identifier must be > 0 for QoS > 0 [MQTT-2.3.1-1]")
		}
	}

	if pkt.Version == VERSION500 {
		pkt.Props = &PublishProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return fmt.Errorf("publish: properties (remaining length %d): %w", pkt.RemainingLength, err)
		}
	}

	// buf.Bytes() aliases the scratch buffer's backing array, which pool.go
	// recycles once the caller is done with this packet; copy it out so the
	// message content outlives the buffer.
	pkt.Message.Content = append([]byte{}, buf.Bytes()...)
	return nil
}

// Message is a PUBLISH payload: the topic it was sent on and its raw
// content.
type Message struct {
	TopicName string
	Content   []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s # %s", m.TopicName, m.Content)
}

// PublishProperties is PUBLISH's v5 properties block: payload framing
// (format indicator, content type), routing hints (topic alias,
// subscription identifiers), request/response correlation, and expiry.
type PublishProperties struct {
	PayloadFormatIndicator PayloadFormatIndicator
	MessageExpiryInterval  MessageExpiryInterval
	TopicAlias             TopicAlias
	ResponseTopic          ReasonString
	CorrelationData        CorrelationData
	UserProperty           map[string][]string
	SubscriptionIdentifier []uint32
	ContentType            ContentType
}

func (props *PublishProperties) Unpack(buf *bytes.Buffer) error {
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
		case 0x01:
			if n, err = props.PayloadFormatIndicator.Unpack(buf); err != nil {
				return fmt.Errorf("publish: payload format indicator: %w", err)
			}
		case 0x02:
			if n, err = props.MessageExpiryInterval.Unpack(buf); err != nil {
				return fmt.Errorf("publish: message expiry interval: %w", err)
			}
		case 0x23:
			if n, err = props.TopicAlias.Unpack(buf); err != nil {
				return fmt.Errorf("publish: topic alias: %w", err)
			}
		case 0x08:
			if n, err = props.ResponseTopic.Unpack(buf); err != nil {
				return fmt.Errorf("publish: response topic: %w", err)
			}
		case 0x09:
			if n, err = props.CorrelationData.Unpack(buf); err != nil {
				return fmt.Errorf("publish: correlation data: %w", err)
			}
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			if n, err = up.Unpack(buf); err != nil {
				return fmt.Errorf("publish: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
		case 0x0B:
			var sub SubscriptionIdentifier
			if n, err = sub.Unpack(buf); err != nil {
				return fmt.Errorf("publish: subscription identifier: %w", err)
			}
			props.SubscriptionIdentifier = append(props.SubscriptionIdentifier, sub.Uint32())
		case 0x03:
			if n, err = props.ContentType.Unpack(buf); err != nil {
				return fmt.Errorf("publish: content type: %w", err)
			}
		default:
			return ErrMalformedBadProperty
		}
		i += n
	}
	return nil
}

func (props *PublishProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := props.PayloadFormatIndicator.Pack(buf); err != nil {
		return nil, err
	}
	if err := props.MessageExpiryInterval.Pack(buf); err != nil {
		return nil, err
	}
	if err := props.TopicAlias.Pack(buf); err != nil {
		return nil, err
	}
	// ResponseTopic shares ReasonString's Go type but not its property
	// identifier, so it is written here with its own id (0x08).
	if props.ResponseTopic != "" {
		buf.WriteByte(0x08)
		buf.Write(encodeUTF8(props.ResponseTopic))
	}
	if err := props.CorrelationData.Pack(buf); err != nil {
		return nil, err
	}
	for k, values := range props.UserProperty {
		for _, v := range values {
			if err := (&UserProperty{Name: k, Value: v}).Pack(buf); err != nil {
				return nil, err
			}
		}
	}
	for _, sub := range props.SubscriptionIdentifier {
		buf.WriteByte(0x0B)
		v, err := encodeLength(sub)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	if err := props.ContentType.Pack(buf); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
