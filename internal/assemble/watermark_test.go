package assemble

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakeWatermarker struct {
	called bool
	spec   WatermarkSpec
}

func (f *fakeWatermarker) Stamp(ctx context.Context, pdfPath string, spec WatermarkSpec) error {
	f.called = true
	f.spec = spec
	return nil
}

type fakeProbe struct{ isPDFA bool }

func (f fakeProbe) IsPDFA(path string) (bool, error) { return f.isPDFA, nil }

func TestApplyWatermarkSkipsWhenNoText(t *testing.T) {
	w := &fakeWatermarker{}
	if err := ApplyWatermark(context.Background(), w, fakeProbe{}, "/does/not/matter.pdf", WatermarkSpec{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.called {
		t.Fatal("watermarker should not be invoked with an empty spec")
	}
}

func TestApplyWatermarkRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-pdf.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := &fakeWatermarker{}
	err := ApplyWatermark(context.Background(), w, fakeProbe{}, path, WatermarkSpec{Text: "DRAFT"})
	if err == nil {
		t.Fatal("expected rejection of non-PDF input")
	}
	if w.called {
		t.Fatal("watermarker should not be invoked for a rejected input")
	}
}

func TestApplyWatermarkRejectsPDFA(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 ..."), 0o644); err != nil {
		t.Fatal(err)
	}
	w := &fakeWatermarker{}
	err := ApplyWatermark(context.Background(), w, fakeProbe{isPDFA: true}, path, WatermarkSpec{Text: "DRAFT"})
	if err == nil {
		t.Fatal("expected rejection of PDF/A input")
	}
	if w.called {
		t.Fatal("watermarker should not be invoked for a rejected input")
	}
}

func TestApplyWatermarkCallsStampForEligibleInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 ..."), 0o644); err != nil {
		t.Fatal(err)
	}
	w := &fakeWatermarker{}
	spec := WatermarkSpec{Text: "DRAFT", Link: "https://example.org"}
	if err := ApplyWatermark(context.Background(), w, fakeProbe{}, path, spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.called || w.spec != spec {
		t.Fatalf("expected Stamp called with %+v, got called=%v spec=%+v", spec, w.called, w.spec)
	}
}
