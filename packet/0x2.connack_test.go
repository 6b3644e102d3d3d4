package packet

import (
	"bytes"
	"testing"
)

func TestCONNACK_Kind(t *testing.T) {
	if (&CONNACK{}).Kind() != 0x2 {
		t.Errorf("Kind() = %#x, want 0x2", (&CONNACK{}).Kind())
	}
}

func TestCONNACK_String(t *testing.T) {
	cases := []struct {
		name string
		code byte
		want string
	}{
		{"Accepted", 0x00, "[0x2]ConnectReturnCode=0"},
		{"NotAuthorized", 0x05, "[0x2]ConnectReturnCode=5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkt := &CONNACK{FixedHeader: &FixedHeader{Kind: 0x2}, ConnectReturnCode: ReasonCode{Code: tc.code}}
			if got := pkt.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func packAndReparseConnack(t *testing.T, pkt *CONNACK) *CONNACK {
	t.Helper()
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: pkt.Version}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &CONNACK{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	return got
}

func TestCONNACK_ByteLayoutV311(t *testing.T) {
	pkt := &CONNACK{
		FixedHeader:       &FixedHeader{Version: VERSION311, Kind: 0x2},
		SessionPresent:    1,
		ConnectReturnCode: ReasonCode{Code: 0x00},
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	want := []byte{0x20, 0x02, 0x01, 0x00}
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("Pack() = %#v, want %#v", wire.Bytes(), want)
	}
}

func TestCONNACK_RoundTripV311Refused(t *testing.T) {
	pkt := &CONNACK{
		FixedHeader:       &FixedHeader{Version: VERSION311, Kind: 0x2},
		ConnectReturnCode: ReasonCode{Code: 0x05},
	}
	got := packAndReparseConnack(t, pkt)
	if got.ConnectReturnCode.Code != 0x05 || got.SessionPresent != 0 {
		t.Errorf("got = %+v, want code=5 sessionPresent=0", got)
	}
}

func TestCONNACK_RoundTripV5PropertiesAndAssignedClientID(t *testing.T) {
	pkt := &CONNACK{
		FixedHeader:       &FixedHeader{Version: VERSION500, Kind: 0x2},
		ConnectReturnCode: ReasonCode{Code: 0x00},
		Props: &ConnackProps{
			SessionExpiryInterval: 7200,
			ReceiveMaximum:        50,
			MaximumQoS:            1,
			RetainAvailable:       0,
			AssignedClientID:      "server-assigned-001",
			ServerKeepAlive:       120,
			UserProperty:          map[string][]string{"tier": {"gold"}},
		},
	}
	got := packAndReparseConnack(t, pkt)
	if got.Props == nil {
		t.Fatal("Props should not be nil after round trip")
	}
	if got.Props.SessionExpiryInterval != pkt.Props.SessionExpiryInterval {
		t.Errorf("SessionExpiryInterval = %d, want %d", got.Props.SessionExpiryInterval, pkt.Props.SessionExpiryInterval)
	}
	if got.Props.AssignedClientID != pkt.Props.AssignedClientID {
		t.Errorf("AssignedClientID = %q, want %q", got.Props.AssignedClientID, pkt.Props.AssignedClientID)
	}
	if got.Props.MaximumQoS != 1 || got.Props.ServerKeepAlive != 120 {
		t.Errorf("MaximumQoS/ServerKeepAlive = %d/%d, want 1/120", got.Props.MaximumQoS, got.Props.ServerKeepAlive)
	}
	if len(got.Props.UserProperty["tier"]) != 1 || got.Props.UserProperty["tier"][0] != "gold" {
		t.Errorf("UserProperty[tier] = %v, want [gold]", got.Props.UserProperty["tier"])
	}
}

func TestCONNACK_PackDefaultsNilPropsUnderV5(t *testing.T) {
	pkt := &CONNACK{
		FixedHeader:       &FixedHeader{Version: VERSION500, Kind: 0x2},
		ConnectReturnCode: ReasonCode{Code: 0x00},
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if pkt.Props == nil {
		t.Error("Pack() should default Props when nil")
	}
}

func TestCONNACK_UnpackRejectsUnknownProperty(t *testing.T) {
	pkt := &CONNACK{FixedHeader: &FixedHeader{Version: VERSION500}}
	data := []byte{0x00, 0x00, 0x02, 0xFE, 0x00} // 0xFE is not a defined CONNACK property
	if err := pkt.Unpack(bytes.NewBuffer(data)); err == nil {
		t.Error("Unpack() should reject an undefined property identifier")
	}
}

func BenchmarkCONNACK_Pack(b *testing.B) {
	pkt := &CONNACK{
		FixedHeader:       &FixedHeader{Version: VERSION311, Kind: 0x2},
		ConnectReturnCode: ReasonCode{Code: 0x00},
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
