package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// SUBSCRIBE asks the server to route matching PUBLISH packets back to this
// connection. The fixed header flags are pinned by the protocol: DUP=0,
// QoS=1, RETAIN=0 [MQTT-3.8.1-1].
type SUBSCRIBE struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	PacketID uint16 `json:"PacketID,omitempty"`

	// Props carries v5 subscribe options (subscription identifier, user
	// properties). Unused under v3.1.1.
	Props *SubscribeProperties

	// Subscriptions is the payload: one entry per topic filter. At least
	// one is required [MQTT-3.8.3-1].
	Subscriptions []Subscription `json:"Subscription,omitempty"`
}

func (pkt *SUBSCRIBE) Kind() byte {
	return 0x8
}

func (pkt *SUBSCRIBE) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.Write(i2b(pkt.PacketID))

	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &SubscribeProperties{}
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

	for _, subscription := range pkt.Subscriptions {
		if subscription.TopicFilter == "" {
			return ErrProtocolViolationNoTopic
		}
		buf.Write(s2b(subscription.TopicFilter))
		buf.WriteByte(subscription.optionsByte())
	}
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	// Reserved bits 3-0 of byte 1 of the fixed header must read 0,0,1,0
	// [MQTT-3.8.1-1]; any other value is a malformed packet.
	if pkt.Dup != 0x0 || pkt.QoS != 0x1 || pkt.Retain != 0x0 {
		return ErrMalformedFlags
	}
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))
	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &SubscribeProperties{}
		}
		if err := pkt.Props.Unpack(buf); err != nil {
			return fmt.Errorf("pkt.RemainingLength=%v err=%w", pkt.RemainingLength, err)
		}
	}
	for buf.Len() != 0 {
		subscription := Subscription{}
		subscription.TopicFilter, _ = decodeUTF8[string](buf)
		if err := subscription.setOptionsByte(buf.Next(1)[0]); err != nil {
			return err
		}
		pkt.Subscriptions = append(pkt.Subscriptions, subscription)
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoTopic
	}
	return nil
}

// Subscription is one topic filter plus its subscribe options. MaximumQoS is
// meaningful under both protocol versions; NoLocal, RetainAsPublished, and
// RetainHandling only exist on the wire under v5 but are harmless to set
// under v3.1.1 (they're simply never packed).
type Subscription struct {
	// TopicFilter may use the + (single level) and # (multi level, must
	// trail the filter) wildcards.
	TopicFilter string

	// MaximumQoS caps the QoS the server will use when forwarding matching
	// messages. 0x03 is reserved.
	MaximumQoS uint8

	// NoLocal, when 1, asks the server not to echo this connection's own
	// publishes back to it.
	NoLocal uint8

	// RetainAsPublished, when 1, asks the server to preserve the RETAIN
	// flag of forwarded messages instead of always clearing it.
	RetainAsPublished uint8

	// RetainHandling controls whether existing retained messages are sent
	// on (re)subscribe: 0 always, 1 only for a new subscription, 2 never.
	RetainHandling uint8
}

// optionsByte packs the four subscription fields into the single options
// byte that follows each topic filter on the wire, mirroring the bit layout
// setOptionsByte reads back.
func (s Subscription) optionsByte() byte {
	return s.MaximumQoS | s.NoLocal<<2 | s.RetainAsPublished<<3 | s.RetainHandling<<4
}

func (s *Subscription) setOptionsByte(options byte) error {
	s.MaximumQoS = options & 0b00000011
	if s.MaximumQoS > 0x02 {
		return ErrProtocolViolationQosOutOfRange
	}
	s.NoLocal = options & 0b00000100 >> 2
	s.RetainAsPublished = options & 0b00001000 >> 3
	s.RetainHandling = options & 0b00110000 >> 4
	if options&0b11000000>>6 != 0 {
		return ErrMalformedFlags
	}
	return nil
}

func (s *Subscription) String() string {
	return fmt.Sprintf("%s@%d", s.TopicFilter, s.MaximumQoS)
}

// SubscribeProperties holds the v5 SUBSCRIBE properties block: an optional
// subscription identifier plus any number of user properties.
type SubscribeProperties struct {
	// SubscriptionIdentifier tags matching deliveries so the client can
	// tell which subscription produced them. A packet carrying more than
	// one is a protocol error.
	SubscriptionIdentifier SubscriptionIdentifier

	UserProperty UserProperty
}

func (props *SubscribeProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.SubscriptionIdentifier != 0 {
		buf.WriteByte(0x0B)
		vb, err := encodeLength(props.SubscriptionIdentifier)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	if err := props.UserProperty.Pack(buf); err != nil {
		return nil, err
	}

	return bytes.Clone(buf.Bytes()), nil
}

func (props *SubscribeProperties) Unpack(buf *bytes.Buffer) error {
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
		case 0x0B:
			if uLen, err = props.SubscriptionIdentifier.Unpack(buf); err != nil {
				return err
			}
		case 0x26:
			if uLen, err = props.UserProperty.Unpack(buf); err != nil {
				return err
			}
		default:
			return ErrProtocolViolation
		}
		i += uLen
	}
	return nil
}
