package model

import "fmt"

// CompilerSpec is the four-tuple that selects a compilation pipeline.
type CompilerSpec struct {
	Engine      Engine      `json:"engine"`
	Language    Language    `json:"language"`
	Output      Output      `json:"output"`
	Postprocess Postprocess `json:"postprocess"`
}

// IsDetermined reports whether every dimension has been resolved.
func (c CompilerSpec) IsDetermined() bool {
	return c.Engine != EngineUnknown && c.Language != LanguageUnknown &&
		c.Output != OutputUnknown && c.Postprocess != PostprocessUnknown
}

// Reserved compiler strings for non-TeX submissions.
const (
	CompilerStringPDFSubmission  = "pdf_submission"
	CompilerStringHTMLSubmission = "html_submission"
)

// String derives the canonical compiler-string from the four-tuple, per the
// canonical table. pdfetex is normalized to "pdftex" on the way out, and
// ParseCompilerString accepts both spellings on the way in so the
// normalization is consistent in both directions.
func (c CompilerSpec) String() string {
	if c.Language == LanguagePDF {
		return CompilerStringPDFSubmission
	}
	if c.Language == LanguageHTML {
		return CompilerStringHTMLSubmission
	}

	switch {
	case c.Language == LanguageTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessNone:
		return "etex"
	case c.Language == LanguageTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessDvipsPs2pdf:
		return "etex+dvips_ps2pdf"
	case c.Language == LanguageTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessDvipdfmx:
		return "etex+dvipdfmx"
	case c.Language == LanguageTeX && c.Output == OutputPDF && c.Engine == EngineTeX:
		return "pdftex"
	case c.Language == LanguageLaTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessNone:
		return "latex"
	case c.Language == LanguageLaTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessDvipsPs2pdf:
		return "latex+dvips_ps2pdf"
	case c.Language == LanguageLaTeX && c.Output == OutputDVI && c.Engine == EngineTeX && c.Postprocess == PostprocessDvipdfmx:
		return "latex+dvipdfmx"
	case c.Language == LanguageLaTeX && c.Output == OutputPDF && c.Engine == EngineTeX:
		return "pdflatex"
	case c.Language == LanguageLaTeX && c.Output == OutputPDF && c.Engine == EngineLuaTeX:
		return "lualatex"
	case c.Language == LanguageLaTeX && c.Output == OutputPDF && c.Engine == EngineXeTeX:
		return "xelatex"
	default:
		return fmt.Sprintf("unknown(%s,%s,%s,%s)", c.Engine, c.Language, c.Output, c.Postprocess)
	}
}

// ParseCompilerString inverts String for every canonical spelling, including
// the legacy "pdfetex" alias for "pdftex" and the bare "tex" alias for
// "etex".
func ParseCompilerString(s string) (CompilerSpec, error) {
	switch s {
	case CompilerStringPDFSubmission:
		return CompilerSpec{Language: LanguagePDF}, nil
	case CompilerStringHTMLSubmission:
		return CompilerSpec{Language: LanguageHTML}, nil
	case "etex", "tex":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageTeX, Output: OutputDVI, Postprocess: PostprocessNone}, nil
	case "etex+dvips_ps2pdf":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageTeX, Output: OutputDVI, Postprocess: PostprocessDvipsPs2pdf}, nil
	case "etex+dvipdfmx":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageTeX, Output: OutputDVI, Postprocess: PostprocessDvipdfmx}, nil
	case "pdftex", "pdfetex":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageTeX, Output: OutputPDF, Postprocess: PostprocessNone}, nil
	case "latex":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageLaTeX, Output: OutputDVI, Postprocess: PostprocessNone}, nil
	case "latex+dvips_ps2pdf":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageLaTeX, Output: OutputDVI, Postprocess: PostprocessDvipsPs2pdf}, nil
	case "latex+dvipdfmx":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageLaTeX, Output: OutputDVI, Postprocess: PostprocessDvipdfmx}, nil
	case "pdflatex":
		return CompilerSpec{Engine: EngineTeX, Language: LanguageLaTeX, Output: OutputPDF, Postprocess: PostprocessNone}, nil
	case "lualatex":
		return CompilerSpec{Engine: EngineLuaTeX, Language: LanguageLaTeX, Output: OutputPDF, Postprocess: PostprocessNone}, nil
	case "xelatex":
		return CompilerSpec{Engine: EngineXeTeX, Language: LanguageLaTeX, Output: OutputPDF, Postprocess: PostprocessNone}, nil
	default:
		return CompilerSpec{}, fmt.Errorf("model: unrecognized compiler string %q", s)
	}
}

// Supported reports whether this spec is one of the three pipelines the
// compilation driver actually implements. Anything else is accepted by the
// classifier (producing an unsupported_compiler_type issue) but never runs.
func (c CompilerSpec) Supported() bool {
	switch c.String() {
	case "etex+dvips_ps2pdf", "latex+dvips_ps2pdf", "pdflatex":
		return true
	default:
		return false
	}
}

// MarshalJSON renders the compiler spec as its canonical string, matching
// the "exclude_none/exclude_defaults" compact PreflightResponse shape.
func (c CompilerSpec) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON parses a canonical compiler string.
func (c *CompilerSpec) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseCompilerString(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
