package compiledriver

import "testing"

func TestInspectLogRecoversMissingFile(t *testing.T) {
	log := "LaTeX Warning: File `figure1.eps' not found on input line 12.\n"
	got := inspectLog(log, true)
	if len(got.MissingFiles) != 1 || got.MissingFiles[0] != "figure1.eps" {
		t.Fatalf("expected figure1.eps recovered, got %+v", got.MissingFiles)
	}
	if got.PatternHits == 0 {
		t.Fatalf("expected at least one pattern hit")
	}
}

func TestInspectLogDedupsAcrossPatterns(t *testing.T) {
	log := "! LaTeX Error: File `missing.sty' not found.\n" +
		"Package foo file `missing.sty' not found\n"
	got := inspectLog(log, true)
	if len(got.MissingFiles) != 1 {
		t.Fatalf("expected one deduped filename, got %+v", got.MissingFiles)
	}
}

func TestInspectLogEmptyLog(t *testing.T) {
	got := inspectLog("", true)
	if len(got.MissingFiles) != 0 || got.PatternHits != 0 {
		t.Fatalf("expected empty result for empty log, got %+v", got)
	}
}

func TestInspectLogNoMatches(t *testing.T) {
	got := inspectLog("This is an ordinary line with no error.\n", true)
	if len(got.MissingFiles) != 0 {
		t.Fatalf("expected no matches, got %+v", got.MissingFiles)
	}
}
