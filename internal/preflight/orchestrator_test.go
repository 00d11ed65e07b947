package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogotex/submission-compile/internal/texresolve"
)

type fakeResolver struct{}

func (fakeResolver) ResolveBatch(ctx context.Context, sandboxRoot string, queries []texresolve.Query) (map[string]string, error) {
	results := make(map[string]string, len(queries))
	for _, q := range queries {
		candidate := filepath.Join(sandboxRoot, q.Name)
		if _, err := os.Stat(candidate); err == nil {
			results[q.Name] = q.Name
			continue
		}
		results[q.Name] = ""
	}
	return results, nil
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOrchestratorScenarioS1(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.tex", "\\documentclass{article}\n\\begin{document}Hi\\end{document}\n")

	o := New(fakeResolver{})
	resp, err := o.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.DetectedToplevelFiles) != 1 {
		t.Fatalf("expected one toplevel, got %v", resp.DetectedToplevelFiles)
	}
	if resp.DetectedToplevelFiles[0].Process.Compiler.String() != "pdflatex" {
		t.Fatalf("expected pdflatex, got %s", resp.DetectedToplevelFiles[0].Process.Compiler.String())
	}
}

func TestOrchestratorScenarioS2NoToplevelWithoutDocumentclass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.tex", "\\include{sec1}\n\\include{sec2}\n")
	writeFile(t, dir, "sec1.tex", "hello\n")
	writeFile(t, dir, "sec2.tex", "world\n")

	o := New(fakeResolver{})
	resp, err := o.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.DetectedToplevelFiles) != 0 {
		t.Fatalf("expected no toplevels, got %v", resp.DetectedToplevelFiles)
	}
	if resp.Status != "success" {
		t.Fatalf("expected success status, got %s", resp.Status)
	}
}

func TestOrchestratorScenarioS3TwoToplevels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", "Hello \\bye\n")
	writeFile(t, dir, "b.tex", "\\documentclass{article}\n\\begin{document}x\\end{document}\n")

	o := New(fakeResolver{})
	resp, err := o.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.DetectedToplevelFiles) != 2 {
		t.Fatalf("expected two toplevels, got %v", resp.DetectedToplevelFiles)
	}
	byCompiler := map[string]string{}
	for _, tl := range resp.DetectedToplevelFiles {
		byCompiler[tl.Filename] = tl.Process.Compiler.String()
	}
	if byCompiler["a.tex"] != "etex+dvips_ps2pdf" {
		t.Fatalf("expected a.tex etex+dvips_ps2pdf, got %s", byCompiler["a.tex"])
	}
	if byCompiler["b.tex"] != "pdflatex" {
		t.Fatalf("expected b.tex pdflatex, got %s", byCompiler["b.tex"])
	}
}

func TestOrchestratorSinglePDFSubmission(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.pdf", "%PDF-1.4 fake\n")

	o := New(fakeResolver{})
	resp, err := o.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.DetectedToplevelFiles) != 1 || resp.DetectedToplevelFiles[0].Filename != "paper.pdf" {
		t.Fatalf("expected paper.pdf as sole toplevel, got %v", resp.DetectedToplevelFiles)
	}
	if resp.DetectedToplevelFiles[0].Process.Compiler.String() != "pdf_submission" {
		t.Fatalf("expected pdf_submission, got %s", resp.DetectedToplevelFiles[0].Process.Compiler.String())
	}
}
