package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// UNSUBSCRIBE tells the server to stop routing PUBLISH packets for one or
// more topic filters previously established with SUBSCRIBE. The fixed
// header flags are pinned the same way SUBSCRIBE's are: DUP=0, QoS=1,
// RETAIN=0 [MQTT-3.10.1-1].
type UNSUBSCRIBE struct {
	*FixedHeader

	PacketID uint16

	// Subscriptions lists the topic filters to remove. Each filter must
	// match a prior SUBSCRIBE exactly; at least one is required
	// [MQTT-3.10.3-2].
	Subscriptions []Subscription

	Props *UnsubscribeProperties
}

func (pkt *UNSUBSCRIBE) Kind() byte {
	return 0xA
}

func (pkt *UNSUBSCRIBE) Pack(w io.Writer) error {
	if len(pkt.Subscriptions) == 0 {
		return ErrMalformedTopic
	}

	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.Write(i2b(pkt.PacketID))

	if pkt.Version == VERSION500 {
		if pkt.Props == nil {
			pkt.Props = &UnsubscribeProperties{}
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
			return ErrMalformedTopic
		}
		buf.Write(s2b(subscription.TopicFilter))
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *UNSUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacketID
	}
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))

	if pkt.Version == VERSION500 {
		pkt.Props = &UnsubscribeProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	}

	for buf.Len() != 0 {
		if buf.Len() < 2 {
			return ErrMalformedTopic
		}
		topicLength := int(binary.BigEndian.Uint16(buf.Next(2)))
		if buf.Len() < topicLength {
			return ErrMalformedTopic
		}
		pkt.Subscriptions = append(pkt.Subscriptions, Subscription{TopicFilter: string(buf.Next(topicLength))})
	}

	if len(pkt.Subscriptions) == 0 {
		return ErrMalformedTopic
	}
	return nil
}

// UnsubscribeProperties is UNSUBSCRIBE's only v5 addition: arbitrary user
// properties, the same repeatable name/value mechanism used across the
// protocol's other properties blocks.
type UnsubscribeProperties struct {
	UserProperty map[string][]string
}

func (props *UnsubscribeProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	for k, values := range props.UserProperty {
		for _, v := range values {
			buf.WriteByte(0x26)
			buf.Write(encodeUTF8(k))
			buf.Write(encodeUTF8(v))
		}
	}
	return bytes.Clone(buf.Bytes()), nil
}

func (props *UnsubscribeProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}
	for i := uint32(0); i < propsLen; i++ {
		propsCode, err := decodeLength(buf)
		if err != nil {
			return err
		}
		switch propsCode {
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			n, err := up.Unpack(buf)
			if err != nil {
				return fmt.Errorf("unsubscribe: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
			i += n
		default:
			return ErrProtocolViolation
		}
	}
	return nil
}
