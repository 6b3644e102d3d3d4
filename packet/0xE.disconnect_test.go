package packet

import (
	"bytes"
	"testing"
)

func TestDISCONNECT_Kind(t *testing.T) {
	if (&DISCONNECT{}).Kind() != 0xE {
		t.Errorf("Kind() = %#x, want 0xE", (&DISCONNECT{}).Kind())
	}
}

func TestDISCONNECT_NewDISCONNECT(t *testing.T) {
	pkt := NewDISCONNECT(VERSION500, CodeDisconnectWillMessage)
	if pkt.Kind() != 0xE || pkt.Version != VERSION500 {
		t.Errorf("NewDISCONNECT() Kind/Version = %#x/%d, want 0xE/%d", pkt.Kind(), pkt.Version, VERSION500)
	}
	if pkt.ReasonCode.Code != CodeDisconnectWillMessage.Code {
		t.Errorf("ReasonCode = %#x, want %#x", pkt.ReasonCode.Code, CodeDisconnectWillMessage.Code)
	}
	if err := pkt.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDISCONNECT_ValidateRejectsNonZeroFlags(t *testing.T) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Kind: 0xE, Version: VERSION500, Dup: 1},
		ReasonCode:  CodeSuccess,
	}
	if err := pkt.Validate(); err == nil {
		t.Error("Validate() should reject a set DUP flag")
	}
}

func TestDISCONNECT_ValidateRejectsUnknownReasonCode(t *testing.T) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Kind: 0xE, Version: VERSION500},
		ReasonCode:  ReasonCode{Code: 0x01},
	}
	if err := pkt.Validate(); err == nil {
		t.Error("Validate() should reject an undefined reason code")
	}
}

func packAndReparseDisconnect(t *testing.T, pkt *DISCONNECT) *DISCONNECT {
	t.Helper()
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: pkt.Version}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &DISCONNECT{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	return got
}

func TestDISCONNECT_RoundTripV311(t *testing.T) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xE},
		ReasonCode:  CodeSuccess,
	}
	got := packAndReparseDisconnect(t, pkt)
	if got.ReasonCode.Code != CodeSuccess.Code {
		t.Errorf("ReasonCode = %#x, want %#x", got.ReasonCode.Code, CodeSuccess.Code)
	}
}

func TestDISCONNECT_UnpackEmptyPayloadDefaultsToNormal(t *testing.T) {
	pkt := &DISCONNECT{FixedHeader: &FixedHeader{Version: VERSION500}}
	if err := pkt.Unpack(bytes.NewBuffer(nil)); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if pkt.ReasonCode.Code != 0x00 {
		t.Errorf("ReasonCode = %#x, want 0x00", pkt.ReasonCode.Code)
	}
}

func TestDISCONNECT_RoundTripV5WithReasonAndServerReference(t *testing.T) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0xE},
		ReasonCode:  ReasonCode{Code: 0x9C},
		Props: &DisconnectProperties{
			ReasonString:    "moving to another cluster",
			ServerReference: "mqtt2.example.com",
			UserProperty:    map[string][]string{"region": {"eu-west"}},
		},
	}
	got := packAndReparseDisconnect(t, pkt)
	if got.ReasonCode.Code != 0x9C {
		t.Errorf("ReasonCode = %#x, want 0x9C", got.ReasonCode.Code)
	}
	if got.Props == nil {
		t.Fatal("Props should not be nil after round trip")
	}
	if got.Props.ReasonString != pkt.Props.ReasonString {
		t.Errorf("ReasonString = %q, want %q", got.Props.ReasonString, pkt.Props.ReasonString)
	}
	if got.Props.ServerReference != pkt.Props.ServerReference {
		t.Errorf("ServerReference = %q, want %q", got.Props.ServerReference, pkt.Props.ServerReference)
	}
	if len(got.Props.UserProperty["region"]) != 1 || got.Props.UserProperty["region"][0] != "eu-west" {
		t.Errorf("UserProperty[region] = %v, want [eu-west]", got.Props.UserProperty["region"])
	}
}

func TestDISCONNECT_PropertiesUnpackRejectsDuplicateSessionExpiry(t *testing.T) {
	props := &DisconnectProperties{SessionExpiryInterval: 60}
	packed, err := props.Pack()
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	var wire bytes.Buffer
	propsLen, _ := encodeLength(len(packed)*2 + 10)
	wire.Write(propsLen)
	wire.Write(packed)
	wire.Write(packed)

	got := &DisconnectProperties{}
	if err := got.Unpack(&wire); err == nil {
		t.Error("Unpack() should reject a duplicate session expiry interval property")
	}
}

func TestDISCONNECT_PropertiesUnpackRejectsUnknownID(t *testing.T) {
	var wire bytes.Buffer
	propsLen, _ := encodeLength(1)
	wire.Write(propsLen)
	wire.WriteByte(0x7E) // not a defined DISCONNECT property
	got := &DisconnectProperties{}
	if err := got.Unpack(&wire); err == nil {
		t.Error("Unpack() should reject an unknown property id")
	}
}

func TestDISCONNECT_String(t *testing.T) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0xE},
		ReasonCode:  CodeSuccess,
		Props:       &DisconnectProperties{ReasonString: "bye"},
	}
	if got := pkt.String(); got == "" {
		t.Error("String() should not be empty")
	}
	var nilPkt *DISCONNECT
	if got := nilPkt.String(); got != "DISCONNECT<nil>" {
		t.Errorf("String() on nil = %q, want %q", got, "DISCONNECT<nil>")
	}
}

func BenchmarkDISCONNECT_Pack(b *testing.B) {
	pkt := &DISCONNECT{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0xE},
		ReasonCode:  CodeSuccess,
		Props:       &DisconnectProperties{ReasonString: "normal shutdown"},
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
