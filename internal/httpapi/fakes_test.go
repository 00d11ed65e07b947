package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/gogotex/submission-compile/internal/assemble"
)

// fakeStore is a no-op storage.Store used only to satisfy the readiness
// check; /convert/ and /stamp/ tests in this package never exercise it.
type fakeStore struct{}

func (fakeStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return nil
}

func (fakeStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, nil
}

func (fakeStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "", nil
}

// fakeWatermarker records the last stamp request instead of shelling out.
type fakeWatermarker struct {
	called bool
	err    error
}

func (f *fakeWatermarker) Stamp(ctx context.Context, pdfPath string, spec assemble.WatermarkSpec) error {
	f.called = true
	return f.err
}

// fakePDFProbe reports PDF/A status without reading the file.
type fakePDFProbe struct {
	isPDFA bool
	err    error
}

func (f fakePDFProbe) IsPDFA(path string) (bool, error) {
	return f.isPDFA, f.err
}
