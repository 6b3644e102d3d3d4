package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nexmqtt/client/packet"
)

// fakeWriter records every packet written; every write succeeds.
type fakeWriter struct {
	mu      sync.Mutex
	written []packet.Packet
}

func (w *fakeWriter) Write(pkt packet.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, pkt)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

// fakeRegistry is an in-memory Registry with one inbox per packet id.
type fakeRegistry struct {
	mu    sync.Mutex
	boxes map[uint16]chan packet.Packet
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{boxes: make(map[uint16]chan packet.Packet)}
}

func (r *fakeRegistry) Register(id uint16) <-chan packet.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan packet.Packet, 4)
	r.boxes[id] = ch
	return ch
}

func (r *fakeRegistry) Unregister(id uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boxes, id)
}

func (r *fakeRegistry) deliver(id uint16, pkt packet.Packet) {
	r.mu.Lock()
	ch := r.boxes[id]
	r.mu.Unlock()
	if ch != nil {
		ch <- pkt
	}
}

func TestPublishQoS1_SucceedsOnFirstAck(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- PublishQoS1(ctx, w, reg, packet.VERSION311, 7, &packet.Message{TopicName: "t"}, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	reg.deliver(7, &packet.PUBACK{FixedHeader: &packet.FixedHeader{Kind: 0x4}, PacketID: 7})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PublishQoS1() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishQoS1 did not return after PUBACK")
	}
	if w.count() != 1 {
		t.Fatalf("expected exactly one PUBLISH write, got %d", w.count())
	}
}

func TestPublishQoS1_CancelledReturnsErrCancelled(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- PublishQoS1(ctx, w, reg, packet.VERSION311, 1, &packet.Message{TopicName: "t"}, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != ErrCancelled {
			t.Fatalf("PublishQoS1() error = %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishQoS1 did not return after cancellation")
	}
}

func TestPublishQoS2_RunsBothPhases(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx := context.Background()

	var phases []Phase
	done := make(chan error, 1)
	go func() {
		done <- PublishQoS2(ctx, w, reg, packet.VERSION311, 3, &packet.Message{TopicName: "t"}, nil, PhasePublish, func(p Phase) {
			phases = append(phases, p)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	reg.deliver(3, &packet.PUBREC{FixedHeader: &packet.FixedHeader{Kind: 0x5}, PacketID: 3})
	time.Sleep(10 * time.Millisecond)
	reg.deliver(3, &packet.PUBCOMP{FixedHeader: &packet.FixedHeader{Kind: 0x7}, PacketID: 3})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PublishQoS2() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishQoS2 did not complete")
	}
	if len(phases) != 1 || phases[0] != PhasePubrel {
		t.Fatalf("onPhase calls = %v, want [PhasePubrel]", phases)
	}
}

func TestPublishQoS2_ResumesAtPubrelPhase(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- PublishQoS2(ctx, w, reg, packet.VERSION311, 9, &packet.Message{TopicName: "t"}, nil, PhasePubrel, func(Phase) {})
	}()

	time.Sleep(10 * time.Millisecond)
	reg.deliver(9, &packet.PUBCOMP{FixedHeader: &packet.FixedHeader{Kind: 0x7}, PacketID: 9})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PublishQoS2() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishQoS2 did not complete")
	}
	if w.count() != 1 {
		t.Fatalf("expected only the PUBREL write (phase A skipped), got %d writes", w.count())
	}
}

func TestSubscribe_ReturnsReasonCodes(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx := context.Background()

	done := make(chan struct {
		codes []packet.ReasonCode
		err   error
	}, 1)
	go func() {
		codes, err := Subscribe(ctx, w, reg, packet.VERSION311, 2, []packet.Subscription{{TopicFilter: "a/b"}}, nil)
		done <- struct {
			codes []packet.ReasonCode
			err   error
		}{codes, err}
	}()

	time.Sleep(10 * time.Millisecond)
	reg.deliver(2, &packet.SUBACK{FixedHeader: &packet.FixedHeader{Kind: 0x9}, PacketID: 2, ReasonCode: []packet.ReasonCode{{Code: 0x01}}})

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Subscribe() error = %v", res.err)
		}
		if len(res.codes) != 1 || res.codes[0].Code != 0x01 {
			t.Fatalf("Subscribe() codes = %v, want [{0x01}]", res.codes)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after SUBACK")
	}
}

func TestPing_SucceedsOnPingresp(t *testing.T) {
	w := &fakeWriter{}
	reg := newFakeRegistry()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- Ping(ctx, w, reg, packet.VERSION311) }()

	time.Sleep(10 * time.Millisecond)
	reg.deliver(PingID, &packet.PINGRESP{FixedHeader: &packet.FixedHeader{Kind: 0xD}})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Ping did not return after PINGRESP")
	}
}
