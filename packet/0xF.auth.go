package packet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// AUTH is new in v5.0: it carries an extended authentication exchange
// (SASL-style challenge/response) that can continue after CONNECT, or be
// re-triggered mid-session to re-authenticate without dropping the
// connection. v3.1.1 has no equivalent packet type.
//
// The fixed header flags are reserved and must be zero [MQTT-3.15.1-1].
// AuthenticationMethod in Props is what turns extended auth on in the
// first place; AUTH only makes sense once CONNECT named one.
type AUTH struct {
	*FixedHeader

	// ReasonCode is one of Success (0x00), ContinueAuthentication (0x18),
	// or ReAuthenticate (0x19) [MQTT-3.15.2-1].
	ReasonCode ReasonCode

	Props *AuthProperties
}

func NewAUTH(version byte, reasonCode ReasonCode) *AUTH {
	return &AUTH{
		FixedHeader: &FixedHeader{
			Kind:    0xF,
			Version: version,
		},
		ReasonCode: reasonCode,
		Props:      &AuthProperties{},
	}
}

func isValidAuthReasonCode(code uint8) bool {
	switch code {
	case 0x00, 0x18, 0x19:
		return true
	default:
		return false
	}
}

func (pkt *AUTH) Validate() error {
	if pkt.Version != VERSION500 {
		return errors.New("auth: packet not supported before MQTT v5.0")
	}
	if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
		return fmt.Errorf("auth: fixed header flags must be zero, got dup=%d qos=%d retain=%d", pkt.Dup, pkt.QoS, pkt.Retain)
	}
	if !isValidAuthReasonCode(pkt.ReasonCode.Code) {
		return fmt.Errorf("auth: invalid reason code 0x%02X", pkt.ReasonCode.Code)
	}
	if pkt.Props != nil {
		if err := pkt.Props.Validate(); err != nil {
			return fmt.Errorf("auth properties: %w", err)
		}
	}
	return nil
}

func (pkt *AUTH) Kind() byte {
	return 0xF
}

func (pkt *AUTH) Pack(w io.Writer) error {
	if err := pkt.Validate(); err != nil {
		return err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.ReasonCode.Code)

	if pkt.Props != nil {
		propsData, err := pkt.Props.Pack()
		if err != nil {
			return fmt.Errorf("auth: pack properties: %w", err)
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

func (pkt *AUTH) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 1 {
		return errors.New("auth: missing reason code")
	}

	reasonCodeByte := buf.Next(1)[0]
	if !isValidAuthReasonCode(reasonCodeByte) {
		return fmt.Errorf("auth: invalid reason code 0x%02X", reasonCodeByte)
	}
	pkt.ReasonCode = ReasonCode{Code: reasonCodeByte}

	if buf.Len() > 0 {
		pkt.Props = &AuthProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return fmt.Errorf("auth: unpack properties: %w", err)
		}
	}

	return nil
}

// AuthProperties is AUTH's v5 properties block. AuthenticationMethod and
// AuthenticationData must each appear at most once; AuthenticationData
// without a method is a protocol error [MQTT-3.15.2-2].
type AuthProperties struct {
	AuthenticationMethod AuthenticationMethod
	AuthenticationData   AuthenticationData
	ReasonString         ReasonString
	UserProperty         map[string][]string
}

func (props *AuthProperties) Validate() error {
	if len(props.AuthenticationData) > 0 && props.AuthenticationMethod == "" {
		return errors.New("auth: authentication data present without an authentication method")
	}
	if props.AuthenticationMethod != "" && !isValidUTF8String(string(props.AuthenticationMethod)) {
		return errors.New("auth: authentication method is not valid UTF-8")
	}
	if props.ReasonString != "" && !isValidUTF8String(string(props.ReasonString)) {
		return errors.New("auth: reason string is not valid UTF-8")
	}
	for key, values := range props.UserProperty {
		if !isValidUTF8String(key) {
			return fmt.Errorf("auth: user property key is not valid UTF-8: %s", key)
		}
		for _, value := range values {
			if !isValidUTF8String(value) {
				return fmt.Errorf("auth: user property value is not valid UTF-8: %s", value)
			}
		}
	}
	return nil
}

func isValidUTF8String(s string) bool {
	return utf8.ValidString(s)
}

func (props *AuthProperties) Pack() ([]byte, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if props.AuthenticationMethod != "" {
		buf.WriteByte(0x15)
		buf.Write(encodeUTF8(string(props.AuthenticationMethod)))
	}
	if len(props.AuthenticationData) > 0 {
		buf.WriteByte(0x16)
		buf.Write(encodeUTF8([]byte(props.AuthenticationData)))
	}
	if props.ReasonString != "" {
		buf.WriteByte(0x1F)
		buf.Write(encodeUTF8(string(props.ReasonString)))
	}
	for key, values := range props.UserProperty {
		for _, value := range values {
			buf.WriteByte(0x26)
			buf.Write(encodeUTF8(key))
			buf.Write(encodeUTF8(value))
		}
	}

	return bytes.Clone(buf.Bytes()), nil
}

func (props *AuthProperties) Unpack(buf *bytes.Buffer) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return fmt.Errorf("auth: decode properties length: %w", err)
	}

	seen := make(map[byte]bool)
	for i := uint32(0); i < propsLen; i++ {
		if buf.Len() < 1 {
			return ErrMalformedProperties
		}
		propID := buf.Next(1)[0]

		var n uint32
		switch propID {
		case 0x15:
			if seen[propID] {
				return errors.New("auth: duplicate authentication method")
			}
			seen[propID] = true
			if n, err = props.AuthenticationMethod.Unpack(buf); err != nil {
				return fmt.Errorf("auth: authentication method: %w", err)
			}
		case 0x16:
			if seen[propID] {
				return errors.New("auth: duplicate authentication data")
			}
			seen[propID] = true
			if n, err = props.AuthenticationData.Unpack(buf); err != nil {
				return fmt.Errorf("auth: authentication data: %w", err)
			}
		case 0x1F:
			if n, err = props.ReasonString.Unpack(buf); err != nil {
				return fmt.Errorf("auth: reason string: %w", err)
			}
		case 0x26:
			if props.UserProperty == nil {
				props.UserProperty = make(map[string][]string)
			}
			up := &UserProperty{}
			if n, err = up.Unpack(buf); err != nil {
				return fmt.Errorf("auth: user property: %w", err)
			}
			props.UserProperty[up.Name] = append(props.UserProperty[up.Name], up.Value)
		default:
			return fmt.Errorf("auth: unknown property id 0x%02X", propID)
		}
		i += n
	}

	return props.Validate()
}

func (pkt *AUTH) String() string {
	if pkt == nil {
		return "AUTH<nil>"
	}

	result := fmt.Sprintf("AUTH{ReasonCode:0x%02X", pkt.ReasonCode.Code)
	if pkt.Props != nil {
		if pkt.Props.AuthenticationMethod != "" {
			result += fmt.Sprintf(", Method:%s", pkt.Props.AuthenticationMethod)
		}
		if len(pkt.Props.AuthenticationData) > 0 {
			result += fmt.Sprintf(", DataLen:%d", len(pkt.Props.AuthenticationData))
		}
		if pkt.Props.ReasonString != "" {
			result += fmt.Sprintf(", Reason:%s", pkt.Props.ReasonString)
		}
		if len(pkt.Props.UserProperty) > 0 {
			result += fmt.Sprintf(", UserProps:%d", len(pkt.Props.UserProperty))
		}
	}
	result += "}"
	return result
}
