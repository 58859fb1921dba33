package mq

import (
	"context"
	"testing"

	"github.com/campus-events/apiserver/config"
)

type recordingBackend struct {
	channel string
	data    []byte
	closed  bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	b.channel = channel
	b.data = data
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(_ context.Context, channel string, handler Handler) error {
	b.channel = channel
	return handler(context.Background(), Message{ID: "id-1", Data: []byte("hello")})
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestOpen(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"", "none", " NONE "} {
		queue, err := Open(context.Background(), config.MQConfig{Backend: backend})
		if err != nil || queue != nil {
			t.Fatalf("%q: expected disabled queue, got %v, %v", backend, queue, err)
		}
	}

	if _, err := Open(context.Background(), config.MQConfig{Backend: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestMQBindsChannel(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	queue := New(backend, "campus-events")

	id, err := queue.Publish(context.Background(), []byte("payload"), nil)
	if err != nil || id != "id-1" {
		t.Fatalf("expected id-1, got %q, %v", id, err)
	}
	if backend.channel != "campus-events" || string(backend.data) != "payload" {
		t.Fatalf("unexpected publish %q %q", backend.channel, backend.data)
	}

	var got string
	if err := queue.Subscribe(context.Background(), func(_ context.Context, msg Message) error {
		got = string(msg.Data)
		return nil
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}

	if err := queue.Close(); err != nil || !backend.closed {
		t.Fatalf("expected backend closed, got %v", err)
	}
}
