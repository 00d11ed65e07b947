package assemble

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputIntentProbeDetectsPDFA(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n<< /Type /Catalog /OutputIntents [1 0 R] >>"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := OutputIntentProbe{}.IsPDFA(path)
	if err != nil {
		t.Fatalf("IsPDFA: %v", err)
	}
	if !ok {
		t.Fatal("expected PDF/A detection to trip on /OutputIntents")
	}
}

func TestOutputIntentProbePlainPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n<< /Type /Catalog >>"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := OutputIntentProbe{}.IsPDFA(path)
	if err != nil {
		t.Fatalf("IsPDFA: %v", err)
	}
	if ok {
		t.Fatal("expected plain PDF to not be flagged PDF/A")
	}
}
