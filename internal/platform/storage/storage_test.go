package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/gogotex/submission-compile/internal/platform/config"
)

func TestNewDefaultsToMemory(t *testing.T) {
	st, err := New(config.StorageConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := st.(*memoryStore); !ok {
		t.Fatalf("expected memoryStore for empty backend, got %T", st)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(config.StorageConfig{Backend: "nfs"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	payload := []byte("outcome archive bytes")
	if err := st.Upload(ctx, "outcomes/job1.tar.gz", bytes.NewReader(payload), int64(len(payload)), "application/gzip"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rc, err := st.Download(ctx, "outcomes/job1.tar.gz")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got, payload)
	}

	if _, err := st.PresignedURL(ctx, "outcomes/job1.tar.gz", 0); err != nil {
		t.Fatalf("PresignedURL: %v", err)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.Download(ctx, "missing"); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := st.PresignedURL(ctx, "missing", 0); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
