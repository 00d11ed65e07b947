// Package texparse implements the TeX source parser (component 4.1): it
// turns one file's bytes into a model.ParsedTeXFile, never failing — I/O and
// decode problems become issues attached to the record instead of errors
// returned to the caller.
package texparse

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/platform/logger"
)

var macroParamRe = regexp.MustCompile(`^#[1-9]`)

var bareInputRe = regexp.MustCompile(`\\input[ \t]+([-A-Za-z0-9._]+)`)

var formatHintRe = regexp.MustCompile(`\\text(bf|it|sl)|\\section|\\chapter`)
var byeRe = regexp.MustCompile(`\\bye([^A-Za-z]|$)`)
var documentclassRe = regexp.MustCompile(`\\documentclass([^A-Za-z]|$)`)
var makeindexRe = regexp.MustCompile(`\\makeindex([^A-Za-z]|$)`)
var printindexRe = regexp.MustCompile(`\\printindex([^A-Za-z]|$)`)

var commandRe = buildCommandRegexp()

// buildCommandRegexp assembles one alternation over every recognized
// command, longest names first so e.g. "RequirePackageWithOptions" is tried
// before "RequirePackage".
func buildCommandRegexp() *regexp.Regexp {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	pattern := `\\(` + strings.Join(names, "|") + `)(\[[^\]\n]*\])?[ \t]*\{([^{}]*)\}(?:[ \t]*\{([^{}]*)\})?`
	return regexp.MustCompile(pattern)
}

// Parse reads basedir/relativeFilename, decodes and normalizes it, and
// returns the populated record.
func Parse(basedir, relativeFilename string) *model.ParsedTeXFile {
	p := model.NewParsedTeXFile(relativeFilename)

	raw, err := os.ReadFile(filepath.Join(basedir, relativeFilename))
	if err != nil {
		p.AddIssue(model.IssueContentsDecodeError, err.Error(), relativeFilename)
		return p
	}

	text, err := decode(raw)
	if err != nil {
		p.AddIssue(model.IssueContentsDecodeError, err.Error(), relativeFilename)
		text = ""
	}
	text = normalizeNewlines(text)
	p.RawContents = text

	body := stripComments(text)

	detectIncludes(p, body)
	inferFormatHints(p, body)
	inferOutputAndPostprocess(p)

	return p
}

// stripComments removes everything from an unescaped % to end of line.
func stripComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '%' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}

func detectIncludes(p *model.ParsedTeXFile, body string) {
	for _, m := range bareInputRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		addMentionOrIssue(p, name, commandTable["input"])
	}

	for _, m := range commandRe.FindAllStringSubmatch(body, -1) {
		cmd := m[1]
		arg1 := m[3]
		arg2 := m[4]
		spec, ok := commandTable[cmd]
		if !ok {
			continue
		}

		names := namesForCommand(cmd, spec, arg1, arg2)
		for _, n := range names {
			addMentionOrIssue(p, n, spec)
		}
	}
}

func namesForCommand(cmd string, spec model.IncludeSpec, arg1, arg2 string) []string {
	switch cmd {
	case "import":
		composed := arg1 + "/" + arg2
		composed = strings.ReplaceAll(composed, "//", "/")
		composed = strings.TrimPrefix(composed, "./")
		return []string{composed}
	case "usetikzlibrary", "usepgflibrary", "tcbuselibrary":
		var names []string
		for _, part := range strings.Split(arg1, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			names = append(names, "tikzlibrary"+part+".code.tex")
		}
		return names
	case "bibliography":
		var names []string
		for _, part := range strings.Split(arg1, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			names = append(names, ensureSuffix(part, ".bib"))
		}
		return names
	case "usepackage", "RequirePackage":
		var names []string
		for _, part := range strings.Split(arg1, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			names = append(names, ensureSuffix(part, ".sty"))
		}
		return names
	}

	raw := arg1
	if spec.FileArgument == model.FileArgumentTwo {
		raw = arg2
	}
	if spec.MultiArgs {
		var names []string
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "./")
			if part == "" {
				continue
			}
			names = append(names, part)
		}
		return names
	}
	if raw == "" {
		return nil
	}
	return []string{raw}
}

func ensureSuffix(name, suffix string) string {
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}

func addMentionOrIssue(p *model.ParsedTeXFile, name string, spec model.IncludeSpec) {
	if macroParamRe.MatchString(name) {
		p.AddIssue(model.IssueIncludeCommandWithMacro, "include command argument is a macro parameter: "+name, p.Filename)
		return
	}
	p.AddMention(name, spec)
}

func inferFormatHints(p *model.ParsedTeXFile, body string) {
	if strings.HasSuffix(p.Filename, ".sty") {
		p.SetLanguage(model.LanguageLaTeX)
	}
	if formatHintRe.MatchString(body) {
		p.SetLanguage(model.LanguageLaTeX)
	}

	hasBye := byeRe.MatchString(body)
	hasDocumentclass := documentclassRe.MatchString(body)

	if hasBye {
		p.ContainsBye = true
		p.SetLanguage(model.LanguageTeX)
	}
	if hasDocumentclass {
		p.ContainsDocumentclass = true
		p.SetLanguage(model.LanguageLaTeX)
	}
	if hasBye && hasDocumentclass {
		p.AddIssue(model.IssueConflictingFileType, `file contains both \bye and \documentclass`, p.Filename)
		p.Language = model.LanguageLaTeX
	}

	p.HasMakeindex = makeindexRe.MatchString(body)
	p.HasPrintindex = printindexRe.MatchString(body)
}

func inferOutputAndPostprocess(p *model.ParsedTeXFile) {
	sawPDFImage := false
	sawDVIImage := false
	for name := range p.MentionedFiles {
		ext := strings.ToLower(filepath.Ext(name))
		if pdftexImageExtensions[ext] {
			sawPDFImage = true
		}
		if dvipsImageExtensions[ext] {
			sawDVIImage = true
		}
	}

	switch {
	case sawPDFImage && sawDVIImage:
		p.AddIssue(model.IssueConflictingImageTypes, "both pdf-compatible and eps/ps images referenced", p.Filename)
		p.Output = model.OutputUnknown
	case sawPDFImage:
		p.Output = model.OutputPDF
	case sawDVIImage:
		p.Output = model.OutputDVI
	}

	switch p.Output {
	case model.OutputDVI:
		p.Postprocess = model.PostprocessDvipsPs2pdf
	case model.OutputPDF:
		p.Postprocess = model.PostprocessNone
	default:
		p.Postprocess = model.PostprocessUnknown
	}
}

// UpgradeEngineFromSystemPaths promotes Engine to luatex when resolution
// placed any system file under a /luatex/ or /lualatex/ tree. Called by the
// orchestrator after the path resolver has populated ResolvedSystemFiles.
func UpgradeEngineFromSystemPaths(p *model.ParsedTeXFile) {
	for _, path := range p.ResolvedSystemFiles {
		if strings.Contains(path, "/luatex/") || strings.Contains(path, "/lualatex/") {
			p.Engine = model.EngineLuaTeX
			logger.Debugf("texparse: %s upgraded to luatex via system path %s", p.Filename, path)
			return
		}
	}
}
