// Package patch applies the small set of idempotent source rewrites the
// convert handler runs once per request over the unpacked bundle, before
// the first engine invocation.
package patch

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gogotex/submission-compile/internal/platform/logger"
)

var (
	graphicspathRe = regexp.MustCompile(`\\graphicspath\{((?:\{[^{}]*\})+)\}`)
	graphicspathGroupRe = regexp.MustCompile(`\{([^{}]*)\}`)
	autoPstPdfRe   = regexp.MustCompile(`(?m)^([ \t]*)(\\usepackage(?:\[[^\]]*\])?\{auto-pst-pdf\}.*)$`)
	overleafhomeRe = regexp.MustCompile(`\\def\\overleafhome\{([^}]*)\}`)
)

// ApplyAll rewrites every *.tex-like file under root in place, returning the
// relative paths actually modified. Renaming foo.tex.txt -> foo.tex happens
// first so the rewrite pass below sees the renamed files.
func ApplyAll(root string, texLikeExt map[string]bool) ([]string, error) {
	renamed, err := RenameDoubleExtensions(root, texLikeExt)
	if err != nil {
		return nil, err
	}

	var touched []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !texLikeExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rewritten, changed := RewriteSource(string(data))
		if !changed {
			return nil
		}
		if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		touched = append(touched, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(renamed, touched...), nil
}

// RewriteSource applies the three idempotent text rewrites to one source's
// contents, reporting whether anything changed.
func RewriteSource(src string) (string, bool) {
	changed := false

	if out, ok := normalizeGraphicspath(src); ok {
		src = out
		changed = true
	}
	if out, ok := commentOutAutoPstPdf(src); ok {
		src = out
		changed = true
	}
	if out, ok := appendHomepath(src); ok {
		src = out
		changed = true
	}

	return src, changed
}

// normalizeGraphicspath ensures every path in a \graphicspath{...} group
// also has a trailing-slash variant, de-duplicated, preserving order.
func normalizeGraphicspath(src string) (string, bool) {
	loc := graphicspathRe.FindStringSubmatchIndex(src)
	if loc == nil {
		return src, false
	}

	whole := src[loc[0]:loc[1]]
	groupsBlob := src[loc[2]:loc[3]]
	groups := graphicspathGroupRe.FindAllStringSubmatch(groupsBlob, -1)

	seen := make(map[string]bool)
	var normalized []string
	for _, g := range groups {
		p := g[1]
		withSlash := p
		if !strings.HasSuffix(withSlash, "/") {
			withSlash += "/"
		}
		if !seen[p] {
			seen[p] = true
			normalized = append(normalized, p)
		}
		if !seen[withSlash] {
			seen[withSlash] = true
			normalized = append(normalized, withSlash)
		}
	}

	var b strings.Builder
	b.WriteString(`\graphicspath{`)
	for _, p := range normalized {
		b.WriteString("{")
		b.WriteString(p)
		b.WriteString("}")
	}
	b.WriteString("}")

	rebuilt := b.String()
	if rebuilt == whole {
		return src, false
	}
	return src[:loc[0]] + rebuilt + src[loc[1]:], true
}

// commentOutAutoPstPdf comments out \usepackage{auto-pst-pdf} lines, since
// that package requires shell-escape, which this driver disallows.
func commentOutAutoPstPdf(src string) (string, bool) {
	changed := false
	out := autoPstPdfRe.ReplaceAllStringFunc(src, func(line string) string {
		m := autoPstPdfRe.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		if strings.HasPrefix(strings.TrimSpace(m[2]), "%") {
			return line
		}
		changed = true
		return m[1] + "% " + m[2]
	})
	return out, changed
}

// appendHomepath appends \def\homepath{X} after a \def\overleafhome{X}
// definition, idempotently (a no-op if \homepath is already defined to X).
func appendHomepath(src string) (string, bool) {
	m := overleafhomeRe.FindStringSubmatch(src)
	if m == nil {
		return src, false
	}
	target := `\def\homepath{` + m[1] + `}`
	if strings.Contains(src, target) {
		return src, false
	}
	idx := strings.Index(src, m[0])
	insertAt := idx + len(m[0])
	return src[:insertAt] + "\n" + target + src[insertAt:], true
}

// RenameDoubleExtensions renames foo.tex.txt -> foo.tex whenever the inner
// extension is TeX-like, returning the relative paths renamed.
func RenameDoubleExtensions(root string, texLikeExt map[string]bool) ([]string, error) {
	var renamed []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if filepath.Ext(path) != ".txt" {
			return nil
		}
		inner := strings.TrimSuffix(path, ".txt")
		if !texLikeExt[strings.ToLower(filepath.Ext(inner))] {
			return nil
		}
		if _, err := os.Stat(inner); err == nil {
			logger.Warnf("patch: skipping rename of %s, %s already exists", path, inner)
			return nil
		}
		if err := os.Rename(path, inner); err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, inner)
		renamed = append(renamed, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}
