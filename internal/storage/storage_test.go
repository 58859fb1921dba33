package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/campus-events/apiserver/config"
)

type memoryBackend struct {
	objects map[string][]byte
	ensured bool
}

func (m *memoryBackend) EnsureBucket(context.Context) error {
	m.ensured = true
	return nil
}

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string {
	return "events"
}

func TestOpen(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"", "none"} {
		s, err := Open(context.Background(), config.StorageConfig{Backend: backend})
		if err != nil || s != nil {
			t.Fatalf("%q: expected disabled storage, got %v, %v", backend, s, err)
		}
	}
	if _, err := Open(context.Background(), config.StorageConfig{Backend: "s3"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestStorageDelegates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &memoryBackend{objects: make(map[string][]byte)}
	s := NewStorage(backend)

	if err := s.EnsureBucket(ctx); err != nil || !backend.ensured {
		t.Fatalf("expected bucket ensured, got %v", err)
	}
	if err := s.Put(ctx, "events/1/a.png", strings.NewReader("img"), 3, "image/png"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rc, err := s.Get(ctx, "events/1/a.png")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "img" {
		t.Fatalf("expected img, got %q", data)
	}

	if err := s.Delete(ctx, "events/1/a.png"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.Get(ctx, "events/1/a.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if s.Bucket() != "events" {
		t.Fatalf("expected bucket events, got %q", s.Bucket())
	}
}
