package mqtt

import (
	"testing"

	"github.com/nexmqtt/client/packet"
)

func TestNoopSessionStore_AlwaysEmpty(t *testing.T) {
	var s NoopSessionStore
	if err := s.SavePendingPublish(1, &PersistedPublish{Topic: "t"}); err != nil {
		t.Fatalf("SavePendingPublish() error = %v", err)
	}
	pending, err := s.LoadPendingPublishes()
	if err != nil {
		t.Fatalf("LoadPendingPublishes() error = %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending publishes, got %d", len(pending))
	}
}

func TestFileSessionStore_PendingPublishRoundTrip(t *testing.T) {
	store, err := NewFileSessionStore(t.TempDir(), "client-1")
	if err != nil {
		t.Fatalf("NewFileSessionStore() error = %v", err)
	}

	pub := &PersistedPublish{Topic: "a/b", Payload: []byte("hello"), QoS: 1}
	if err := store.SavePendingPublish(42, pub); err != nil {
		t.Fatalf("SavePendingPublish() error = %v", err)
	}

	loaded, err := store.LoadPendingPublishes()
	if err != nil {
		t.Fatalf("LoadPendingPublishes() error = %v", err)
	}
	got, ok := loaded[42]
	if !ok {
		t.Fatal("expected packet id 42 to be present")
	}
	if got.Topic != pub.Topic || string(got.Payload) != string(pub.Payload) {
		t.Fatalf("loaded = %+v, want %+v", got, pub)
	}

	if err := store.DeletePendingPublish(42); err != nil {
		t.Fatalf("DeletePendingPublish() error = %v", err)
	}
	loaded, err = store.LoadPendingPublishes()
	if err != nil {
		t.Fatalf("LoadPendingPublishes() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected store to be empty after delete, got %d entries", len(loaded))
	}
}

func TestFileSessionStore_SubscriptionRoundTrip(t *testing.T) {
	store, err := NewFileSessionStore(t.TempDir(), "client-2")
	if err != nil {
		t.Fatalf("NewFileSessionStore() error = %v", err)
	}

	sub := packet.Subscription{TopicFilter: "x/y", MaximumQoS: 2}
	if err := store.SaveSubscription("x/y", sub); err != nil {
		t.Fatalf("SaveSubscription() error = %v", err)
	}

	loaded, err := store.LoadSubscriptions()
	if err != nil {
		t.Fatalf("LoadSubscriptions() error = %v", err)
	}
	if got, ok := loaded["x/y"]; !ok || got.MaximumQoS != 2 {
		t.Fatalf("loaded subscriptions = %+v", loaded)
	}

	if err := store.DeleteSubscription("x/y"); err != nil {
		t.Fatalf("DeleteSubscription() error = %v", err)
	}
	loaded, err = store.LoadSubscriptions()
	if err != nil {
		t.Fatalf("LoadSubscriptions() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no subscriptions after delete, got %d", len(loaded))
	}
}

func TestFileSessionStore_Clear(t *testing.T) {
	store, err := NewFileSessionStore(t.TempDir(), "client-3")
	if err != nil {
		t.Fatalf("NewFileSessionStore() error = %v", err)
	}
	if err := store.SaveSubscription("a", packet.Subscription{TopicFilter: "a"}); err != nil {
		t.Fatalf("SaveSubscription() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	loaded, err := store.LoadSubscriptions()
	if err != nil {
		t.Fatalf("LoadSubscriptions() after Clear() error = %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty store after Clear, got %d", len(loaded))
	}
}
