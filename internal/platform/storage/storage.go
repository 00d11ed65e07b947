// Package storage provides the outcome-archive object store used by the
// HTTP boundary and the compile worker. Two real backends are wired
// (MinIO/S3-compatible and Supabase Storage) behind one interface, plus an
// in-memory backend for tests, mirroring the Mongo-or-memory fallback shape
// the document service uses elsewhere in this codebase.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	storage_go "github.com/supabase-community/storage-go"

	"github.com/gogotex/submission-compile/internal/platform/config"
)

// Store uploads and retrieves outcome archives and input bundles by key.
type Store interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// New selects a backend from cfg.Storage.Backend ("minio", "supabase", or
// "memory") the way the document service selects Mongo vs. memory based on
// whether MONGODB_URI is set.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "minio":
		return newMinIOStore(cfg)
	case "supabase":
		return newSupabaseStore(cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// --- MinIO backend ---

type minioStore struct {
	client *minio.Client
	bucket string
}

func newMinIOStore(cfg config.StorageConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: minio endpoint missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &minioStore{client: mc, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func (s *minioStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *minioStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (s *minioStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// --- Supabase Storage backend ---

type supabaseStore struct {
	client *storage_go.Client
	bucket string
}

func newSupabaseStore(cfg config.StorageConfig) (Store, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("storage: supabase project URL missing")
	}
	c := storage_go.NewClient(cfg.ProjectURL+"/storage/v1", cfg.ServiceKey, nil)
	return &supabaseStore{client: c, bucket: cfg.Bucket}, nil
}

func (s *supabaseStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.UploadFile(s.bucket, key, reader)
	return err
}

func (s *supabaseStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *supabaseStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, key, int(expires.Seconds()))
	if err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

// --- In-memory backend (tests, local dev without object storage) ---

type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns a Store that keeps all objects in process memory.
func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	buf, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = buf
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	buf, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: key %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *memoryStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: key %q not found", key)
	}
	return fmt.Sprintf("memory://%s?expires=%s", key, expires), nil
}
