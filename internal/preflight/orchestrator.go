// Package preflight drives the parse -> resolve -> graph -> classify
// pipeline and assembles the PreflightResponse (component "Preflight
// orchestrator" in the spec's system overview).
package preflight

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/platform/logger"
	"github.com/gogotex/submission-compile/internal/texclass"
	"github.com/gogotex/submission-compile/internal/texgraph"
	"github.com/gogotex/submission-compile/internal/texparse"
	"github.com/gogotex/submission-compile/internal/texresolve"
)

var texLikeExtensions = map[string]bool{
	".tex": true, ".sty": true, ".cls": true, ".clo": true,
}

// Orchestrator runs one preflight analysis for one unpacked submission.
type Orchestrator struct {
	Resolver texresolve.Resolver
}

func New(resolver texresolve.Resolver) *Orchestrator {
	return &Orchestrator{Resolver: resolver}
}

// Run parses, resolves, graphs, and classifies sandboxRoot's contents.
func (o *Orchestrator) Run(ctx context.Context, sandboxRoot string) (*model.PreflightResponse, error) {
	allFiles, err := walkBundle(sandboxRoot)
	if err != nil {
		return &model.PreflightResponse{Status: model.PreflightError, Info: err.Error()}, err
	}

	nodes := make(map[string]*model.ParsedTeXFile)
	var ancillary []string
	for _, rel := range allFiles {
		if texLikeExtensions[strings.ToLower(filepath.Ext(rel))] {
			nodes[rel] = texparse.Parse(sandboxRoot, rel)
		} else {
			ancillary = append(ancillary, rel)
		}
	}

	if len(nodes) == 0 {
		if resp := singlePDFSubmission(ancillary); resp != nil {
			return resp, nil
		}
		return &model.PreflightResponse{
			Status:              model.PreflightSuccess,
			DetectedToplevelFiles: nil,
			TexFiles:            nil,
			AncillaryFiles:      ancillary,
		}, nil
	}

	o.resolveAll(ctx, sandboxRoot, nodes)

	for _, node := range nodes {
		texparse.UpgradeEngineFromSystemPaths(node)
	}

	roots := texgraph.Build(nodes)

	hasFile := func(relativePath string) bool {
		_, err := os.Stat(filepath.Join(sandboxRoot, relativePath))
		return err == nil
	}
	imageSize := func(relativePath string) (float64, bool) {
		return imageSizeMPixels(sandboxRoot, relativePath)
	}
	toplevels := texclass.Classify(nodes, roots, hasFile, imageSize)

	texFiles := make([]model.ParsedTeXFile, 0, len(nodes))
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		texFiles = append(texFiles, nodes[name].ForResponse())
	}

	return &model.PreflightResponse{
		Status:              model.PreflightSuccess,
		DetectedToplevelFiles: toplevels,
		TexFiles:            texFiles,
		AncillaryFiles:      ancillary,
	}, nil
}

// singlePDFSubmission implements invariant 6: zero TeX files and exactly one
// .pdf file in the bundle means the whole submission is that PDF.
func singlePDFSubmission(ancillary []string) *model.PreflightResponse {
	var pdfs []string
	for _, f := range ancillary {
		if strings.ToLower(filepath.Ext(f)) == ".pdf" {
			pdfs = append(pdfs, f)
		}
	}
	if len(pdfs) != 1 {
		return nil
	}
	spec, _ := model.ParseCompilerString(model.CompilerStringPDFSubmission)
	return &model.PreflightResponse{
		Status: model.PreflightSuccess,
		DetectedToplevelFiles: []model.ToplevelFile{
			{Filename: pdfs[0], Process: model.ToplevelSpec{Compiler: spec}},
		},
		AncillaryFiles: ancillary,
	}
}

func (o *Orchestrator) resolveAll(ctx context.Context, sandboxRoot string, nodes map[string]*model.ParsedTeXFile) {
	queries := make([]texresolve.Query, 0)
	seen := make(map[string]bool)
	for _, node := range nodes {
		for _, name := range node.MentionedFileOrder {
			if seen[name] {
				continue
			}
			seen[name] = true
			spec := node.MentionedFiles[name]
			queries = append(queries, texresolve.Query{Name: name, Extensions: spec.Extensions})
		}
	}

	results, err := o.Resolver.ResolveBatch(ctx, sandboxRoot, queries)
	if err != nil {
		logger.Warnf("preflight: resolver batch failed: %v", err)
		results = make(map[string]string)
	}

	for _, node := range nodes {
		for _, name := range node.MentionedFileOrder {
			spec := node.MentionedFiles[name]
			resolved, ok := results[name]
			if !ok || resolved == "" {
				node.AddIssue(model.IssueFileNotFound, "could not resolve "+name, node.Filename)
				continue
			}
			path, isSystem := texresolve.IsSystemPath(resolved)
			if isSystem {
				node.ResolvedSystemFiles = append(node.ResolvedSystemFiles, path)
				continue
			}
			switch spec.FileType {
			case model.FileTypeTeX:
				node.ResolvedTeXFiles = append(node.ResolvedTeXFiles, path)
			case model.FileTypeBib:
				node.ResolvedBibFiles = append(node.ResolvedBibFiles, path)
			default:
				node.ResolvedOtherFiles = append(node.ResolvedOtherFiles, path)
			}
		}
	}
}

func walkBundle(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
