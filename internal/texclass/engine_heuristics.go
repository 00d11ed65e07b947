package texclass

import (
	"regexp"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
)

// Supplemental routing hints, layered on top of the %!TEX-directive and
// \documentclass-derived engine/output/postprocess merge above: packages
// and directives that imply requirements the parser doesn't already model
// as a distinct Language/Engine/Output value.
var (
	shellEscapeSignals = []string{
		`\write18`,
		`%!TEX enableShellEscape`,
		`% !TEX enableShellEscape`,
	}
	shellEscapePackages = map[string]bool{
		"minted":     true,
		"pythontex":  true,
		"pygmentex":  true,
		"gnuplottex": true,
		"shellesc":   true,
	}
	biberHints = []string{
		"backend=biber",
		"%!BIB program = biber",
		"% !BIB program = biber",
	}
	usePackageRegex = regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{([^}]*)\}`)
)

// applyEngineHeuristics scans a toplevel's subgraph contents for
// shell-escape and biber signals the structural parse doesn't already
// surface as a distinct field, recording non-fatal issues for both and
// upgrading tf's bibliography requirement to biber when warranted.
func applyEngineHeuristics(tf *model.ToplevelFile, nodes map[string]*model.ParsedTeXFile, subgraph map[string]bool) {
	var joined strings.Builder
	for name := range subgraph {
		if node, ok := nodes[name]; ok {
			joined.WriteString(node.RawContents)
			joined.WriteByte('\n')
		}
	}
	content := joined.String()
	packages := extractPackages(content)

	if reason := shellEscapeReason(content, packages); reason != "" {
		tf.Issues = append(tf.Issues, model.Issue{
			Kind:     model.IssueRequiresShellEscape,
			Message:  reason,
			Filename: tf.Filename,
		})
	}

	if usesBiber(content) {
		tf.Issues = append(tf.Issues, model.Issue{
			Kind:     model.IssueRequiresBiber,
			Message:  "bibliography backend directive requests biber",
			Filename: tf.Filename,
		})
		if tf.Process.Bibliography == nil {
			tf.Process.Bibliography = &model.BibliographySpec{}
		}
		tf.Process.Bibliography.RequiresBiber = true
	}
}

func shellEscapeReason(content string, packages map[string]bool) string {
	for _, signal := range shellEscapeSignals {
		if strings.Contains(content, signal) {
			return "shell-escape directive detected"
		}
	}
	for pkg := range shellEscapePackages {
		if packages[pkg] {
			return "package " + pkg + " requires shell-escape"
		}
	}
	return ""
}

func usesBiber(content string) bool {
	for _, hint := range biberHints {
		if strings.Contains(content, hint) {
			return true
		}
	}
	return false
}

func extractPackages(content string) map[string]bool {
	result := make(map[string]bool)
	for _, match := range usePackageRegex.FindAllStringSubmatch(content, -1) {
		if len(match) < 2 {
			continue
		}
		for _, pkg := range strings.Split(match[1], ",") {
			if trimmed := strings.ToLower(strings.TrimSpace(pkg)); trimmed != "" {
				result[trimmed] = true
			}
		}
	}
	return result
}
