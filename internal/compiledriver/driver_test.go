package compiledriver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogotex/submission-compile/internal/model"
)

func TestRunRejectsUnsupportedCompiler(t *testing.T) {
	dir := t.TempDir()
	s := NewSession("req-1", dir, "main.tex", model.CompilerSpec{
		Engine: model.EngineLuaTeX, Language: model.LanguageLaTeX, Output: model.OutputPDF, Postprocess: model.PostprocessNone,
	}, time.Now().Add(time.Minute))

	res := s.Run(context.Background())
	if res.Status != StatusFail {
		t.Fatalf("status = %v, want fail", res.Status)
	}
	if res.Err == nil {
		t.Fatal("expected an error for an unsupported compiler")
	}
}

func TestHashStabilityFilesChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	h1 := hashStabilityFiles(dir, "main")
	write("main.aux", "\\relax")
	h2 := hashStabilityFiles(dir, "main")
	write("main.aux", "\\newlabel{x}{1}")
	h3 := hashStabilityFiles(dir, "main")

	if h1 == h2 {
		t.Fatal("expected hash to change once main.aux exists")
	}
	if h2 == h3 {
		t.Fatal("expected hash to change when main.aux content changes")
	}
}

func TestDetectBiblatexAuxTreeRequiresVersionMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.bbl"), []byte("% biblatex version 3.3\n\\begin{thebibliography}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectBiblatexAuxTree(dir, "main"); got == "" {
		t.Fatal("expected a non-empty aux tree for a 3.3-format bbl")
	}

	other := t.TempDir()
	if err := os.WriteFile(filepath.Join(other, "main.bbl"), []byte("% biblatex version 2.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectBiblatexAuxTree(other, "main"); got != "" {
		t.Fatalf("expected no aux tree for a 2.9-format bbl, got %q", got)
	}
}

func TestEnvToMapRoundTrips(t *testing.T) {
	env := []string{"PATH=/usr/bin", "HOME=/tmp/x"}
	m := envToMap(env)
	if m["PATH"] != "/usr/bin" || m["HOME"] != "/tmp/x" {
		t.Fatalf("got %v", m)
	}
}

func TestInspectBibliographyFlagsMissingBbl(t *testing.T) {
	dir := t.TempDir()
	s := NewSession("req-3", dir, "main.tex", model.CompilerSpec{}, time.Now().Add(time.Minute))

	issues := s.inspectBibliography("main")
	if len(issues) != 1 || issues[0].Kind != model.IssueBblFileMissing {
		t.Fatalf("expected a single bbl_file_missing issue, got %+v", issues)
	}
}

func TestInspectBibliographyFlagsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewSession("req-4", dir, "main.tex", model.CompilerSpec{}, time.Now().Add(time.Minute))
	if err := os.WriteFile(filepath.Join(dir, "main.bbl"), []byte("% biblatex bbl format version 2.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	issues := s.inspectBibliography("main")
	if len(issues) != 1 || issues[0].Kind != model.IssueBblVersionMismatch {
		t.Fatalf("expected a single bbl_version_mismatch issue, got %+v", issues)
	}
}

func TestInspectBibliographyAcceptsSupportedVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewSession("req-5", dir, "main.tex", model.CompilerSpec{}, time.Now().Add(time.Minute))
	if err := os.WriteFile(filepath.Join(dir, "main.bbl"), []byte("% biblatex bbl format version 3.3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if issues := s.inspectBibliography("main"); len(issues) != 0 {
		t.Fatalf("expected no issues for a supported bbl version, got %+v", issues)
	}
}

func TestBuildEnvSquashesSecrets(t *testing.T) {
	dir := t.TempDir()
	s := NewSession("req-2", dir, "main.tex", model.CompilerSpec{}, time.Now().Add(time.Minute))
	env, err := s.buildEnv("main")
	if err != nil {
		t.Fatalf("buildEnv: %v", err)
	}
	m := envToMap(env)
	if m["SECRETS"] != "?" || m["GOOGLE_APPLICATION_CREDENTIALS"] != "?" {
		t.Fatalf("expected secrets squashed, got %v", m)
	}
}
