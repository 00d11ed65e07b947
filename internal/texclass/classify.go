// Package texclass implements the classifier and pipeline selection
// (component 4.4): for each root in the include graph, a worklist-driven
// subgraph walk infers language/engine/output/postprocess, decides whether
// the root is a toplevel, and fills in defaults and bibliography info.
package texclass

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
)

// HasFile reports whether a bundle-relative path exists, used for the
// <stem>.bbl pre-generated-bibliography check.
type HasFile func(relativePath string) bool

// Classify walks the subgraph of every root and returns the toplevels that
// survive the contains_documentclass/contains_bye filter. imageSize may be
// nil, in which case oversized-image detection is skipped.
func Classify(nodes map[string]*model.ParsedTeXFile, roots []string, hasFile HasFile, imageSize ImageSizeMPixels) []model.ToplevelFile {
	sorted := append([]string(nil), roots...)
	sort.Strings(sorted)

	var toplevels []model.ToplevelFile
	for _, root := range sorted {
		lang, output, engine, postp, containsDC, containsBye, hasHyperref, hasBib, hasMakeindex, hasPrintindex, issues, subgraph := walkSubgraph(nodes, root)

		if !containsDC && !containsBye {
			continue
		}

		issues = append(issues, subfileIssues(nodes, subgraph, root)...)

		if hasPrintindex && !hasMakeindex {
			issues = append(issues, model.Issue{Kind: model.IssueIndexDefinitionMissing, Filename: root, Message: `\printindex used without \makeindex`})
		}

		engine, language, output, postp := applyDefaults(engine, lang, output, postp)
		spec := model.CompilerSpec{Engine: engine, Language: language, Output: output, Postprocess: postp}

		if !spec.Supported() {
			issues = append(issues, model.Issue{
				Kind:     model.IssueUnsupportedCompilerType,
				Message:  "unsupported compiler string: " + spec.String(),
				Filename: root,
			})
		}

		tf := model.ToplevelFile{
			Filename: root,
			Process: model.ToplevelSpec{
				Compiler: spec,
			},
			Issues: issues,
		}
		if hasHyperref {
			found := true
			tf.HyperrefFound = &found
		}
		if hasMakeindex {
			tf.Process.Index = &model.IndexSpec{Defined: true}
		}

		stem := strings.TrimSuffix(root, filepath.Ext(root))
		bblPath := stem + ".bbl"
		switch {
		case hasFile != nil && hasFile(bblPath):
			tf.Process.Bibliography = &model.BibliographySpec{PreGenerated: true}
		case hasBib:
			tf.Process.Bibliography = &model.BibliographySpec{PreGenerated: false}
		}

		applyEngineHeuristics(&tf, nodes, subgraph)
		checkOversizedImages(&tf, nodes, subgraph, imageSize)

		toplevels = append(toplevels, tf)
	}
	return toplevels
}

func walkSubgraph(nodes map[string]*model.ParsedTeXFile, root string) (
	lang model.Language, output model.Output, engine model.Engine, postp model.Postprocess,
	containsDocumentclass, containsBye, hasHyperref, hasBib, hasMakeindex, hasPrintindex bool, issues []model.Issue,
	visited map[string]bool,
) {
	visited = make(map[string]bool)
	queue := []string{root}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		node, ok := nodes[name]
		if !ok {
			continue
		}

		var conflict bool
		lang, conflict = mergeLanguage(lang, node.Language)
		if conflict {
			issues = append(issues, model.Issue{Kind: model.IssueConflictingFileType, Message: "conflicting language in subgraph", Filename: name})
		}
		output, conflict = mergeOutput(output, node.Output)
		if conflict {
			issues = append(issues, model.Issue{Kind: model.IssueConflictingOutputType, Message: "conflicting output in subgraph", Filename: name})
		}
		engine, conflict = mergeEngine(engine, node.Engine)
		if conflict {
			issues = append(issues, model.Issue{Kind: model.IssueConflictingEngineType, Message: "conflicting engine in subgraph", Filename: name})
		}
		postp, conflict = mergePostprocess(postp, node.Postprocess)
		if conflict {
			issues = append(issues, model.Issue{Kind: model.IssueConflictingPostprocess, Message: "conflicting postprocess in subgraph", Filename: name})
		}

		containsDocumentclass = containsDocumentclass || node.ContainsDocumentclass
		containsBye = containsBye || node.ContainsBye
		hasMakeindex = hasMakeindex || node.HasMakeindex
		hasPrintindex = hasPrintindex || node.HasPrintindex

		if _, ok := node.MentionedFiles["hyperref.sty"]; ok {
			hasHyperref = true
		}
		if len(node.ResolvedBibFiles) > 0 {
			hasBib = true
		}
		for name := range node.MentionedFiles {
			if strings.HasSuffix(name, ".bib") {
				hasBib = true
			}
		}

		queue = append(queue, node.Children...)
	}

	return
}

// subfileIssues surfaces an issue_in_subfile diagnostic on the toplevel for
// every other file reachable in its subgraph that carries its own recorded
// issues (§4.4), e.g. a \input'd file with file_not_found or
// contents_decode_error.
func subfileIssues(nodes map[string]*model.ParsedTeXFile, subgraph map[string]bool, root string) []model.Issue {
	names := make([]string, 0, len(subgraph))
	for name := range subgraph {
		if name == root {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []model.Issue
	for _, name := range names {
		node, ok := nodes[name]
		if !ok || len(node.Issues) == 0 {
			continue
		}
		issues = append(issues, model.Issue{
			Kind:     model.IssueIssueInSubfile,
			Filename: name,
			Message:  "subfile " + name + " carries its own issues",
		})
	}
	return issues
}

func mergeLanguage(a, b model.Language) (model.Language, bool) {
	if a == model.LanguageUnknown {
		return b, false
	}
	if b == model.LanguageUnknown {
		return a, false
	}
	if a == b {
		return a, false
	}
	return model.LanguageLaTeX, true
}

func mergeOutput(a, b model.Output) (model.Output, bool) {
	if a == model.OutputUnknown {
		return b, false
	}
	if b == model.OutputUnknown {
		return a, false
	}
	if a == b {
		return a, false
	}
	return a, true
}

func mergeEngine(a, b model.Engine) (model.Engine, bool) {
	if a == model.EngineUnknown {
		return b, false
	}
	if b == model.EngineUnknown {
		return a, false
	}
	if a == b {
		return a, false
	}
	return a, true
}

func mergePostprocess(a, b model.Postprocess) (model.Postprocess, bool) {
	if a == model.PostprocessUnknown {
		return b, false
	}
	if b == model.PostprocessUnknown {
		return a, false
	}
	if a == b {
		return a, false
	}
	return a, true
}

func applyDefaults(engine model.Engine, lang model.Language, output model.Output, postp model.Postprocess) (model.Engine, model.Language, model.Output, model.Postprocess) {
	if engine == model.EngineUnknown {
		engine = model.EngineTeX
	}
	if lang == model.LanguageUnknown {
		lang = model.LanguageTeX
	}
	if output == model.OutputUnknown {
		if lang == model.LanguageLaTeX {
			output = model.OutputPDF
		} else {
			output = model.OutputDVI
		}
	}
	if postp == model.PostprocessUnknown {
		if output == model.OutputDVI {
			postp = model.PostprocessDvipsPs2pdf
		} else {
			postp = model.PostprocessNone
		}
	}
	return engine, lang, output, postp
}
