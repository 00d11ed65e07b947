package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	zw.Close()
	return buf.Bytes()
}

func TestExtractTarGz(t *testing.T) {
	data := buildTarGz(t, map[string]string{"main.tex": "\\documentclass{article}", "sub/fig.png": "binary"})
	dest := t.TempDir()

	files, err := Extract(bytes.NewReader(data), dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2", files)
	}
	got, err := os.ReadFile(filepath.Join(dest, "main.tex"))
	if err != nil || string(got) != "\\documentclass{article}" {
		t.Fatalf("main.tex contents = %q, err %v", got, err)
	}
}

func TestExtractZip(t *testing.T) {
	data := buildZip(t, map[string]string{"00README.XXX": "\\TOPLEVEL main.tex"})
	dest := t.TempDir()

	files, err := Extract(bytes.NewReader(data), dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v, want 1", files)
	}
}

func TestExtractRejectsPathEscape(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: "../../etc/passwd", Mode: 0o644, Size: 4}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	tw.Write([]byte("evil"))
	tw.Close()

	dest := t.TempDir()
	if _, err := Extract(&buf, dest); err == nil {
		t.Fatal("expected path-escape entry to be rejected")
	}
}
