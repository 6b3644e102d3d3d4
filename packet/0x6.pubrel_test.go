package packet

import (
	"bytes"
	"testing"
)

func TestPUBREL_Kind(t *testing.T) {
	if (&PUBREL{}).Kind() != 0x06 {
		t.Errorf("Kind() = %#x, want 0x06", (&PUBREL{}).Kind())
	}
}

func TestPUBREL_ByteLayoutV311(t *testing.T) {
	pkt := &PUBREL{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x06, QoS: 1},
		PacketID:    12345,
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	want := []byte{0x62, 0x02, 0x30, 0x39}
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("Pack() = %#v, want %#v", wire.Bytes(), want)
	}
}

func TestPUBREL_RoundTripV5RepeatedUserProperty(t *testing.T) {
	pkt := &PUBREL{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x06, QoS: 1},
		PacketID:    12345,
		ReasonCode:  ReasonCode{Code: 0x92},
		Props: &PubrelProperties{
			ReasonString: "unknown packet identifier",
			UserProperty: map[string][]string{"k": {"v1", "v2"}},
		},
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	fh := &FixedHeader{Version: VERSION500}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &PUBREL{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if got.ReasonCode.Code != pkt.ReasonCode.Code {
		t.Errorf("ReasonCode = %#x, want %#x", got.ReasonCode.Code, pkt.ReasonCode.Code)
	}
	if got.Props.ReasonString != pkt.Props.ReasonString {
		t.Errorf("ReasonString = %q, want %q", got.Props.ReasonString, pkt.Props.ReasonString)
	}
	if len(got.Props.UserProperty["k"]) != 2 {
		t.Errorf("UserProperty[\"k\"] = %v, want 2 values preserved", got.Props.UserProperty["k"])
	}
}

func TestPUBREL_UnpackShortFormOmitsReasonAndProperties(t *testing.T) {
	// RemainingLength == 2 means only the packet ID was sent; Unpack must
	// not try to read a reason code byte that isn't there.
	fh := &FixedHeader{Version: VERSION500, RemainingLength: 2}
	pkt := &PUBREL{FixedHeader: fh}
	if err := pkt.Unpack(bytes.NewBuffer([]byte{0x30, 0x39})); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if pkt.PacketID != 12345 {
		t.Errorf("PacketID = %d, want 12345", pkt.PacketID)
	}
}

func TestPUBREL_PackDefaultsNilProps(t *testing.T) {
	pkt := &PUBREL{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x06, QoS: 1},
		PacketID:    1,
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if pkt.Props == nil {
		t.Error("Pack() should default Props when nil")
	}
}

func TestPUBREL_QoS2Handshake(t *testing.T) {
	id := uint16(12345)
	pubrec := &PUBREC{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x05}, PacketID: id}
	pubrel := &PUBREL{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x06, QoS: 1}, PacketID: id}
	pubcomp := &PUBCOMP{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x07}, PacketID: id}

	if pubrec.PacketID != pubrel.PacketID || pubrel.PacketID != pubcomp.PacketID {
		t.Error("QoS 2 handshake packets must share a packet identifier")
	}
	if pubrel.QoS != 1 {
		t.Errorf("PUBREL.QoS = %d, want 1", pubrel.QoS)
	}
}

func BenchmarkPUBREL_Pack(b *testing.B) {
	pkt := &PUBREL{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x06, QoS: 1},
		PacketID:    12345,
		ReasonCode:  CodeSuccess,
		Props:       &PubrelProperties{},
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
