package packet

import (
	"bytes"
	"testing"
)

func TestPINGREQ_Kind(t *testing.T) {
	if (&PINGREQ{}).Kind() != 0xC {
		t.Errorf("Kind() = %#x, want 0xC", (&PINGREQ{}).Kind())
	}
}

func TestPINGREQ_ByteLayout(t *testing.T) {
	for _, version := range []byte{VERSION311, VERSION500} {
		pkt := &PINGREQ{FixedHeader: &FixedHeader{Version: version, Kind: 0xC}}
		var wire bytes.Buffer
		if err := pkt.Pack(&wire); err != nil {
			t.Fatalf("Pack() error = %v", err)
		}
		want := []byte{0xC0, 0x00}
		if !bytes.Equal(wire.Bytes(), want) {
			t.Errorf("version %d: Pack() = %#v, want %#v", version, wire.Bytes(), want)
		}
	}
}

func TestPINGREQ_RoundTrip(t *testing.T) {
	pkt := &PINGREQ{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xC}}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: VERSION311}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &PINGREQ{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if got.Kind() != 0xC || fh.RemainingLength != 0 {
		t.Errorf("got Kind=%#x RemainingLength=%d, want 0xC/0", got.Kind(), fh.RemainingLength)
	}
}

func TestPINGREQ_UnpackRejectsSetFlags(t *testing.T) {
	fh := &FixedHeader{Version: VERSION311}
	if err := fh.Unpack(bytes.NewBuffer([]byte{0xCE, 0x00})); err == nil {
		t.Error("FixedHeader.Unpack() should reject PINGREQ sent with non-zero flags")
	}
}

func BenchmarkPINGREQ_Pack(b *testing.B) {
	pkt := &PINGREQ{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xC}}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
