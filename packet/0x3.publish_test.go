package packet

import (
	"bytes"
	"testing"
)

func TestPUBLISH_Kind(t *testing.T) {
	if (&PUBLISH{}).Kind() != 0x03 {
		t.Errorf("Kind() = %#x, want 0x03", (&PUBLISH{}).Kind())
	}
}

func packAndReparsePublish(t *testing.T, pkt *PUBLISH) *PUBLISH {
	t.Helper()
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: pkt.Version}
	if err := fh.Unpack(&wire); err != nil {
		t.Fatalf("FixedHeader.Unpack() error = %v", err)
	}
	got := &PUBLISH{FixedHeader: fh}
	if err := got.Unpack(bytes.NewBuffer(wire.Next(int(fh.RemainingLength)))); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	return got
}

func TestPUBLISH_RoundTripQoS0(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03},
		Message:     &Message{TopicName: "sensors/temp", Content: []byte("21.5")},
	}
	got := packAndReparsePublish(t, pkt)
	if got.Message.TopicName != pkt.Message.TopicName || !bytes.Equal(got.Message.Content, pkt.Message.Content) {
		t.Errorf("round trip = %+v, want %+v", got.Message, pkt.Message)
	}
}

func TestPUBLISH_RoundTripQoS1CarriesPacketID(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03, QoS: 1},
		PacketID:    42,
		Message:     &Message{TopicName: "a/b", Content: []byte("x")},
	}
	got := packAndReparsePublish(t, pkt)
	if got.PacketID != 42 {
		t.Errorf("PacketID = %d, want 42", got.PacketID)
	}
}

func TestPUBLISH_RoundTripV5Properties(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x03, QoS: 1},
		PacketID:    7,
		Message:     &Message{TopicName: "a/b", Content: []byte("payload")},
		Props: &PublishProperties{
			ContentType:            "text/plain",
			UserProperty:           map[string][]string{"trace": {"abc"}},
			SubscriptionIdentifier: []uint32{1, 2},
		},
	}
	got := packAndReparsePublish(t, pkt)
	if string(got.Props.ContentType) != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", got.Props.ContentType)
	}
	if len(got.Props.SubscriptionIdentifier) != 2 {
		t.Errorf("SubscriptionIdentifier = %v, want 2 entries", got.Props.SubscriptionIdentifier)
	}
}

func TestPUBLISH_PackRejectsReservedQoS(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03, QoS: 3},
		Message:     &Message{TopicName: "a", Content: nil},
	}
	if err := pkt.Pack(new(bytes.Buffer)); err == nil {
		t.Error("Pack() should reject QoS 3")
	}
}

func TestPUBLISH_PackRejectsEmptyTopic(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03},
		Message:     &Message{TopicName: ""},
	}
	if err := pkt.Pack(new(bytes.Buffer)); err == nil {
		t.Error("Pack() should reject an empty topic name")
	}
}

func TestPUBLISH_PackRejectsWildcardsAndSpaces(t *testing.T) {
	for _, topic := range []string{"a/+/b", "a/#", "a b"} {
		pkt := &PUBLISH{
			FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03},
			Message:     &Message{TopicName: topic},
		}
		if err := pkt.Pack(new(bytes.Buffer)); err == nil {
			t.Errorf("Pack() with topic %q should be rejected", topic)
		}
	}
}

func TestPUBLISH_PackRejectsZeroPacketIDUnderQoS1(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03, QoS: 1},
		Message:     &Message{TopicName: "a"},
	}
	if err := pkt.Pack(new(bytes.Buffer)); err == nil {
		t.Error("Pack() should reject packet ID 0 under QoS 1")
	}
}

func TestPUBLISH_UnpackRejectsEmptyTopic(t *testing.T) {
	pkt := &PUBLISH{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03}}
	data := []byte{0x00, 0x00}
	if err := pkt.Unpack(bytes.NewBuffer(data)); err == nil {
		t.Error("Unpack() should reject a zero-length topic name")
	}
}

func TestPUBLISH_UnpackCopiesContentOutOfScratchBuffer(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03},
		Message:     &Message{TopicName: "a", Content: []byte("hello")},
	}
	var wire bytes.Buffer
	if err := pkt.Pack(&wire); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	fh := &FixedHeader{Version: VERSION311}
	fh.Unpack(&wire)
	body := GetBuffer()
	body.Write(wire.Bytes())
	got := &PUBLISH{FixedHeader: fh}
	if err := got.Unpack(body); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	PutBuffer(body) // reused/zeroed by the pool; Content must not alias it
	if string(got.Message.Content) != "hello" {
		t.Errorf("Content = %q after buffer reuse, want %q", got.Message.Content, "hello")
	}
}

func TestMessage_String(t *testing.T) {
	m := &Message{TopicName: "a/b", Content: []byte("x")}
	if m.String() == "" {
		t.Error("String() should not be empty")
	}
}

func BenchmarkPUBLISH_Pack(b *testing.B) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x03},
		Message:     &Message{TopicName: "a/b", Content: []byte("test message")},
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = pkt.Pack(&buf)
	}
}
