package packet

import (
	"bytes"
	"testing"
)

func TestFixedHeaderPackUnpackRoundTrip(t *testing.T) {
	cases := []*FixedHeader{
		{Kind: 0x01, RemainingLength: 0},
		{Kind: 0x03, QoS: 1, RemainingLength: 10},
		{Kind: 0x03, Dup: 1, QoS: 2, RemainingLength: 2097152},
		{Kind: 0x08, QoS: 1, RemainingLength: 20},
	}

	for _, fh := range cases {
		var wire bytes.Buffer
		if err := fh.Pack(&wire); err != nil {
			t.Fatalf("Pack(%+v): %v", fh, err)
		}
		got := &FixedHeader{}
		if err := got.Unpack(&wire); err != nil {
			t.Fatalf("Unpack() after Pack(%+v): %v", fh, err)
		}
		if *got != *fh {
			t.Errorf("round trip = %+v, want %+v", got, fh)
		}
	}
}

func TestFixedHeaderPackEncodesByteLayout(t *testing.T) {
	fh := &FixedHeader{Kind: 0x03, QoS: 1, RemainingLength: 10}
	var wire bytes.Buffer
	if err := fh.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	want := []byte{0x32, 0x0A}
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("Pack() = %#v, want %#v", wire.Bytes(), want)
	}
}

func TestFixedHeaderUnpackRejectsReservedFlags(t *testing.T) {
	cases := []struct {
		name string
		b    byte
	}{
		{"connect dup set", 0x18},    // CONNECT (0x1) with DUP
		{"subscribe qos0", 0x80},     // SUBSCRIBE with QoS 0 instead of 1
		{"publish qos3", 0x36},       // PUBLISH QoS 3 is reserved
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire := bytes.NewBuffer([]byte{tc.b, 0x00})
			fh := &FixedHeader{}
			if err := fh.Unpack(wire); err == nil {
				t.Errorf("Unpack(%#08b) should reject the flag combination", tc.b)
			}
		})
	}
}

func TestFixedHeaderUnpackShortReadErrors(t *testing.T) {
	fh := &FixedHeader{}
	if err := fh.Unpack(bytes.NewBuffer(nil)); err == nil {
		t.Error("Unpack() on an empty reader should error")
	}
}

func TestFixedHeaderString(t *testing.T) {
	fh := &FixedHeader{Kind: 0x03, RemainingLength: 42}
	if got := fh.String(); got == "" {
		t.Error("String() should not be empty")
	}
}
