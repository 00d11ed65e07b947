// Package texgraph builds the include graph (component 4.3) from a set of
// already-resolved ParsedTeXFile records: it wires child/parent edges and
// identifies root nodes.
package texgraph

import (
	"sort"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// conditionallyLoadedFiles are resolved-but-sometimes-absent files the
// graph builder does not warn about when no matching node exists.
var conditionallyLoadedFiles = map[string]bool{
	"svglov3.clo": true,
}

var auxiliaryRootExtensions = map[string]bool{
	".sty": true, ".cls": true, ".clo": true,
}

// Build wires Children/Parents edges on every node in nodes, using each
// node's ResolvedTeXFiles to find the matching node by filename. It returns
// the filenames of root nodes — those with no parents — excluding
// .sty/.cls/.clo files, which are never toplevel candidates.
func Build(nodes map[string]*model.ParsedTeXFile) []string {
	hasParent := make(map[string]bool, len(nodes))

	// Deterministic iteration order keeps edge-addition (and therefore any
	// logged warnings) reproducible across runs.
	filenames := make([]string, 0, len(nodes))
	for fn := range nodes {
		filenames = append(filenames, fn)
	}
	sort.Strings(filenames)

	for _, fn := range filenames {
		node := nodes[fn]
		for _, resolved := range node.ResolvedTeXFiles {
			child, ok := findNodeByPath(nodes, resolved)
			if !ok {
				base := baseName(resolved)
				if !conditionallyLoadedFiles[base] {
					logger.Warnf("texgraph: %s references %s which is not present in the bundle", fn, resolved)
				}
				continue
			}
			if !contains(node.Children, child.Filename) {
				node.Children = append(node.Children, child.Filename)
			}
			if !contains(child.Parents, node.Filename) {
				child.Parents = append(child.Parents, node.Filename)
			}
			hasParent[child.Filename] = true
		}
	}

	var roots []string
	for _, fn := range filenames {
		if hasParent[fn] {
			continue
		}
		if isAuxiliaryExtension(fn) {
			continue
		}
		roots = append(roots, fn)
	}
	return roots
}

func findNodeByPath(nodes map[string]*model.ParsedTeXFile, resolved string) (*model.ParsedTeXFile, bool) {
	if n, ok := nodes[resolved]; ok {
		return n, true
	}
	base := baseName(resolved)
	if n, ok := nodes[base]; ok {
		return n, true
	}
	for fn, n := range nodes {
		if baseName(fn) == base {
			return n, true
		}
	}
	return nil, false
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isAuxiliaryExtension(filename string) bool {
	for ext := range auxiliaryRootExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
