package packet

import (
	"bytes"
	"testing"
)

func TestUNSUBSCRIBE_Kind(t *testing.T) {
	if (&UNSUBSCRIBE{}).Kind() != 0xA {
		t.Errorf("Kind() = %#x, want 0xA", (&UNSUBSCRIBE{}).Kind())
	}
}

func packAndReparseUnsubscribe(t *testing.T, pkt *UNSUBSCRIBE) *UNSUBSCRIBE {
	t.Helper()
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: pkt.Version}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &UNSUBSCRIBE{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	return got
}

func TestUNSUBSCRIBE_PackRejectsEmptySubscriptionList(t *testing.T) {
	pkt := &UNSUBSCRIBE{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xA, QoS: 1},
		PacketID:    1,
	}
	if err := pkt.Pack(new(bytes.Buffer)); err == nil {
		t.Error("Pack() should reject an empty subscription list")
	}
}

func TestUNSUBSCRIBE_RoundTripMultipleFilters(t *testing.T) {
	pkt := &UNSUBSCRIBE{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xA, QoS: 1},
		PacketID:    12346,
		Subscriptions: []Subscription{
			{TopicFilter: "sensor/+/data"},
			{TopicFilter: "device/#"},
			{TopicFilter: "user/status"},
		},
	}
	got := packAndReparseUnsubscribe(t, pkt)
	if len(got.Subscriptions) != 3 {
		t.Fatalf("Subscriptions count = %d, want 3", len(got.Subscriptions))
	}
	for i, sub := range got.Subscriptions {
		if sub.TopicFilter != pkt.Subscriptions[i].TopicFilter {
			t.Errorf("Subscriptions[%d] = %q, want %q", i, sub.TopicFilter, pkt.Subscriptions[i].TopicFilter)
		}
	}
}

func TestUNSUBSCRIBE_RoundTripNonASCIITopic(t *testing.T) {
	pkt := &UNSUBSCRIBE{
		FixedHeader:   &FixedHeader{Version: VERSION311, Kind: 0xA, QoS: 1},
		PacketID:      1,
		Subscriptions: []Subscription{{TopicFilter: "test/中文/主题"}},
	}
	got := packAndReparseUnsubscribe(t, pkt)
	if len(got.Subscriptions) != 1 || got.Subscriptions[0].TopicFilter != pkt.Subscriptions[0].TopicFilter {
		t.Errorf("Subscriptions = %v, want %v", got.Subscriptions, pkt.Subscriptions)
	}
}

func TestUNSUBSCRIBE_UnpackRejectsShortPacketID(t *testing.T) {
	pkt := &UNSUBSCRIBE{FixedHeader: &FixedHeader{Version: VERSION311}}
	if err := pkt.Unpack(bytes.NewBuffer([]byte{0x30})); err == nil {
		t.Error("Unpack() should reject data too short for a packet identifier")
	}
}

func TestUNSUBSCRIBE_UnpackRejectsTruncatedTopicFilter(t *testing.T) {
	pkt := &UNSUBSCRIBE{FixedHeader: &FixedHeader{Version: VERSION311}}
	data := []byte{0x30, 0x39, 0x00, 0x05, 0x74, 0x65, 0x73, 0x74} // length 5 but 4 bytes follow
	if err := pkt.Unpack(bytes.NewBuffer(data)); err == nil {
		t.Error("Unpack() should reject a topic filter whose declared length exceeds the buffer")
	}
}

func TestUNSUBSCRIBE_UnpackRejectsNoTopicFilters(t *testing.T) {
	pkt := &UNSUBSCRIBE{FixedHeader: &FixedHeader{Version: VERSION311}}
	data := []byte{0x30, 0x39} // packet ID only, no payload
	if err := pkt.Unpack(bytes.NewBuffer(data)); err == nil {
		t.Error("Unpack() should reject a packet with no topic filters")
	}
}

func TestUNSUBSCRIBE_RoundTripV5UserProperties(t *testing.T) {
	pkt := &UNSUBSCRIBE{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0xA, QoS: 1},
		PacketID:    7,
		Subscriptions: []Subscription{
			{TopicFilter: "a/b"},
		},
		Props: &UnsubscribeProperties{
			UserProperty: map[string][]string{"reason": {"cleanup", "maintenance"}},
		},
	}
	got := packAndReparseUnsubscribe(t, pkt)
	if got.Props == nil {
		t.Fatal("Props should not be nil after round trip")
	}
	if len(got.Props.UserProperty["reason"]) != 2 {
		t.Errorf("UserProperty[\"reason\"] = %v, want 2 values", got.Props.UserProperty["reason"])
	}
}

func TestUNSUBSCRIBE_PackDefaultsNilPropsUnderV5(t *testing.T) {
	pkt := &UNSUBSCRIBE{
		FixedHeader:   &FixedHeader{Version: VERSION500, Kind: 0xA, QoS: 1},
		PacketID:      1,
		Subscriptions: []Subscription{{TopicFilter: "a"}},
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if pkt.Props == nil {
		t.Error("Pack() should default Props when nil")
	}
}

func BenchmarkUNSUBSCRIBE_Pack(b *testing.B) {
	pkt := &UNSUBSCRIBE{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xA, QoS: 1},
		PacketID:    12345,
		Subscriptions: []Subscription{
			{TopicFilter: "sensor/+/data"},
			{TopicFilter: "device/#"},
			{TopicFilter: "user/status"},
		},
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
