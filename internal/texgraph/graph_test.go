package texgraph

import (
	"testing"

	"github.com/gogotex/submission-compile/internal/model"
)

func node(name string, resolved ...string) *model.ParsedTeXFile {
	p := model.NewParsedTeXFile(name)
	p.ResolvedTeXFiles = resolved
	return p
}

func TestBuildWiresEdgesAndFindsRoot(t *testing.T) {
	nodes := map[string]*model.ParsedTeXFile{
		"main.tex": node("main.tex", "sec1.tex", "sec2.tex"),
		"sec1.tex": node("sec1.tex"),
		"sec2.tex": node("sec2.tex"),
	}

	roots := Build(nodes)
	if len(roots) != 1 || roots[0] != "main.tex" {
		t.Fatalf("expected single root main.tex, got %v", roots)
	}
	if len(nodes["main.tex"].Children) != 2 {
		t.Fatalf("expected 2 children, got %v", nodes["main.tex"].Children)
	}
	if len(nodes["sec1.tex"].Parents) != 1 || nodes["sec1.tex"].Parents[0] != "main.tex" {
		t.Fatalf("expected sec1 parent main.tex, got %v", nodes["sec1.tex"].Parents)
	}
}

func TestBuildExcludesStyleRootsFromToplevelCandidates(t *testing.T) {
	nodes := map[string]*model.ParsedTeXFile{
		"main.tex":   node("main.tex"),
		"mystyle.sty": node("mystyle.sty"),
	}

	roots := Build(nodes)
	if len(roots) != 1 || roots[0] != "main.tex" {
		t.Fatalf("expected only main.tex as root, got %v", roots)
	}
}

func TestBuildSuppressesWarningForConditionallyLoadedFile(t *testing.T) {
	nodes := map[string]*model.ParsedTeXFile{
		"main.tex": node("main.tex", "svglov3.clo"),
	}
	// Should not panic or add a phantom node; absence is silently tolerated.
	roots := Build(nodes)
	if len(roots) != 1 || roots[0] != "main.tex" {
		t.Fatalf("expected main.tex as sole root, got %v", roots)
	}
}
