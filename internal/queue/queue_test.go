package queue

import (
	"context"
	"testing"
	"time"
)

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeSignedIn, Body: []byte("3f2c|weird")}
	got := deserialize(serialize(msg))
	if got.Type != TypeSignedIn {
		t.Errorf("type = %q", got.Type)
	}
	if string(got.Body) != "3f2c|weird" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestDeserialize_NoSeparator(t *testing.T) {
	got := deserialize("plain")
	if got.Type != "" || string(got.Body) != "plain" {
		t.Errorf("unexpected message %+v", got)
	}
}

func TestInMemory_PublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Publish(ctx, Message{Type: TypeSignedIn, Body: []byte("v1")}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	select {
	case m := <-msgs:
		if string(m.Body) != "v1" {
			t.Errorf("body = %q", m.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("expected channel closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, Message{Type: TypeSignedIn}); err == nil {
		t.Error("expected error publishing with cancelled context on a full queue")
	}
}
