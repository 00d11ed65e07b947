package zzrm

import "testing"

func TestParseV2YAMLPreservesSourceOrder(t *testing.T) {
	data := []byte(`
sources:
  b.tex:
    usage: include
  a.tex:
    usage: toplevel
process:
  compiler: pdflatex
`)
	z, err := ParseV2(data, ".yaml")
	if err != nil {
		t.Fatalf("ParseV2 yaml: %v", err)
	}
	if got := z.SourcesOrder; len(got) != 2 || got[0] != "b.tex" || got[1] != "a.tex" {
		t.Fatalf("source order = %v, want [b.tex a.tex]", got)
	}
	if got := z.Toplevels(); len(got) != 1 || got[0] != "a.tex" {
		t.Fatalf("toplevels = %v, want [a.tex]", got)
	}
	if !z.Process.Compiler.IsDetermined() {
		t.Fatal("expected process.compiler to be determined from \"pdflatex\"")
	}
}

func TestParseV2JSONPreservesSourceOrder(t *testing.T) {
	data := []byte(`{"sources":{"z.tex":{"usage":"toplevel"},"a.tex":{"usage":"toplevel"}}}`)
	z, err := ParseV2(data, ".json")
	if err != nil {
		t.Fatalf("ParseV2 json: %v", err)
	}
	if got := z.SourcesOrder; len(got) != 2 || got[0] != "z.tex" || got[1] != "a.tex" {
		t.Fatalf("source order = %v, want [z.tex a.tex]", got)
	}
}

func TestParseV2NDJSONMetadataThenSources(t *testing.T) {
	data := []byte("{\"process\":{\"compiler\":\"pdflatex\"},\"nohyperref\":true}\n" +
		"{\"filename\":\"b.tex\",\"usage\":\"toplevel\"}\n" +
		"{\"filename\":\"a.tex\",\"usage\":\"include\"}\n")
	z, err := ParseV2(data, ".ndjson")
	if err != nil {
		t.Fatalf("ParseV2 ndjson: %v", err)
	}
	if !z.NoHyperref {
		t.Fatal("expected nohyperref=true from metadata line")
	}
	if got := z.SourcesOrder; len(got) != 2 || got[0] != "b.tex" || got[1] != "a.tex" {
		t.Fatalf("source order = %v, want [b.tex a.tex]", got)
	}
	if got := z.Toplevels(); len(got) != 1 || got[0] != "b.tex" {
		t.Fatalf("toplevels = %v, want [b.tex]", got)
	}
}

func TestParseV2TOMLFallsBackToMapOrder(t *testing.T) {
	data := []byte("[sources.a_tex]\nusage = \"toplevel\"\n")
	_, err := ParseV2(data, ".toml")
	if err != nil {
		t.Fatalf("ParseV2 toml: %v", err)
	}
}

func TestParseV2RejectsUnknownExtension(t *testing.T) {
	_, err := ParseV2([]byte("{}"), ".xml")
	if err == nil {
		t.Fatal("expected error for unrecognized v2 extension")
	}
}

func TestParseV2RejectsUnsupportedSpecVersion(t *testing.T) {
	data := []byte(`{"spec_version": 99, "sources": {}}`)
	_, err := ParseV2(data, ".json")
	if err == nil {
		t.Fatal("expected error for spec_version above CurrentSpecVersion")
	}
}
