package zzrm

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadReturnsNilWhenNoManifestPresent(t *testing.T) {
	dir := t.TempDir()
	z, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if z != nil {
		t.Fatalf("expected nil manifest, got %+v", z)
	}
}

func TestLoadPrefersV2OverV1(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00README.XXX", "a.tex toplevelfile\n")
	writeFile(t, dir, "00README.json", `{"sources":{"b.tex":{"usage":"toplevel"}}}`)

	z, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := z.Toplevels(); len(got) != 1 || got[0] != "b.tex" {
		t.Fatalf("toplevels = %v, want [b.tex] (v2 should win)", got)
	}
}

func TestLoadRejectsMultipleV1Candidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00README.XXX", "a.tex toplevelfile\n")
	writeFile(t, dir, "00readme.txt", "b.tex toplevelfile\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for two v1 candidates")
	}
}

func TestLoadParsesLoneV1File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00README.XXX", "a.tex toplevelfile\n")

	z, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := z.Toplevels(); len(got) != 1 || got[0] != "a.tex" {
		t.Fatalf("toplevels = %v, want [a.tex]", got)
	}
}
