package preflight

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestImageSizeMPixelsDecodesPNG(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	img.Set(0, 0, color.White)

	f, err := os.Create(filepath.Join(dir, "fig.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	mp, ok := imageSizeMPixels(dir, "fig.png")
	if !ok {
		t.Fatal("expected a decodable PNG")
	}
	want := float64(200*100) / 1_000_000
	if mp != want {
		t.Fatalf("mp = %v, want %v", mp, want)
	}
}

func TestImageSizeMPixelsReadsEPSBoundingBox(t *testing.T) {
	dir := t.TempDir()
	content := "%!PS-Adobe-3.0 EPSF-3.0\n%%BoundingBox: 0 0 3000 3000\n"
	if err := os.WriteFile(filepath.Join(dir, "fig.eps"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	mp, ok := imageSizeMPixels(dir, "fig.eps")
	if !ok {
		t.Fatal("expected a bounding box to be found")
	}
	want := float64(3000*3000) / 1_000_000
	if mp != want {
		t.Fatalf("mp = %v, want %v", mp, want)
	}
}

func TestImageSizeMPixelsSkipsPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fig.pdf"), []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := imageSizeMPixels(dir, "fig.pdf"); ok {
		t.Fatal("expected PDF dimensions to be unmeasurable")
	}
}

func TestImageSizeMPixelsMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, ok := imageSizeMPixels(dir, "missing.png"); ok {
		t.Fatal("expected a missing file to be unmeasurable")
	}
}
