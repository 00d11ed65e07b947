package model

// FileArgument says which brace-group of a TeX command holds the filename.
type FileArgument int

const (
	FileArgumentOne FileArgument = iota
	FileArgumentTwo
	FileArgumentBoth
)

// FileTypeTag classifies what kind of file an IncludeSpec's command refers to.
type FileTypeTag string

const (
	FileTypeTeX   FileTypeTag = "tex"
	FileTypeBib   FileTypeTag = "bib"
	FileTypeIdx   FileTypeTag = "idx"
	FileTypeBbl   FileTypeTag = "bbl"
	FileTypeInd   FileTypeTag = "ind"
	FileTypeBst   FileTypeTag = "bst"
	FileTypeOther FileTypeTag = "other"
)

// IncludeSpec describes how a single TeX command references a file: which
// brace-group carries the name, what extension(s) are implied, and whether
// the command takes an optional [options] group before its arguments.
type IncludeSpec struct {
	Command      string
	Package      string
	FileType     FileTypeTag
	Extensions   []string // resolved extension candidates, in priority order
	FileArgument FileArgument
	TakeOptions  bool
	MultiArgs    bool
}

// ParsedTeXFile is the per-file analysis record produced by the TeX source
// parser and mutated in place by the resolver and the graph builder.
type ParsedTeXFile struct {
	Filename string `json:"filename"`

	RawContents string `json:"-"`

	// MentionedFiles preserves insertion order: later duplicate keys
	// overwrite the value but not the position recorded here.
	MentionedFiles     map[string]IncludeSpec `json:"-"`
	MentionedFileOrder []string               `json:"-"`

	ResolvedTeXFiles    []string `json:"resolved_tex_files,omitempty"`
	ResolvedBibFiles    []string `json:"resolved_bib_files,omitempty"`
	ResolvedOtherFiles  []string `json:"resolved_other_files,omitempty"`
	ResolvedSystemFiles []string `json:"resolved_system_files,omitempty"`

	Language    Language    `json:"language"`
	Engine      Engine      `json:"engine"`
	Output      Output      `json:"output"`
	Postprocess Postprocess `json:"postprocess"`

	ContainsDocumentclass bool `json:"contains_documentclass,omitempty"`
	ContainsBye           bool `json:"contains_bye,omitempty"`

	HasMakeindex  bool `json:"has_makeindex,omitempty"`
	HasPrintindex bool `json:"has_printindex,omitempty"`

	Issues []Issue `json:"issues,omitempty"`

	Children []string `json:"children,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// NewParsedTeXFile returns an empty record for filename, ready for the
// parser to populate.
func NewParsedTeXFile(filename string) *ParsedTeXFile {
	return &ParsedTeXFile{
		Filename:       filename,
		MentionedFiles: make(map[string]IncludeSpec),
	}
}

// AddMention records (or overwrites, per the "later duplicates overwrite"
// invariant) a mentioned file, preserving first-seen position in
// MentionedFileOrder.
func (p *ParsedTeXFile) AddMention(logicalName string, spec IncludeSpec) {
	if _, exists := p.MentionedFiles[logicalName]; !exists {
		p.MentionedFileOrder = append(p.MentionedFileOrder, logicalName)
	}
	p.MentionedFiles[logicalName] = spec
}

// ForResponse returns a shallow copy with graph edges and raw contents
// stripped, the shape the preflight response's tex_files list carries.
func (p *ParsedTeXFile) ForResponse() ParsedTeXFile {
	cp := *p
	cp.RawContents = ""
	cp.Children = nil
	cp.Parents = nil
	return cp
}

// AddIssue appends a non-fatal diagnostic to the record.
func (p *ParsedTeXFile) AddIssue(kind IssueKind, message, filename string) {
	p.Issues = append(p.Issues, Issue{Kind: kind, Message: message, Filename: filename})
}

// SetLanguage enforces the "language never regresses from latex to tex"
// invariant: once a file is known latex, a later tex hint is a no-op.
func (p *ParsedTeXFile) SetLanguage(l Language) {
	if p.Language == LanguageLaTeX && l == LanguageTeX {
		return
	}
	p.Language = l
}

// ToplevelFile is the per-toplevel summary surfaced in a PreflightResponse.
type ToplevelFile struct {
	Filename string        `json:"filename"`
	Process  ToplevelSpec  `json:"process"`
	HyperrefFound *bool    `json:"hyperref_found,omitempty"`
	Issues   []Issue       `json:"issues,omitempty"`
}

// BibliographySpec records whether a toplevel's bibliography is already
// compiled (pre_generated) or still needs bibtex/biber, and which of the
// two the source hints at.
type BibliographySpec struct {
	PreGenerated  bool `json:"pre_generated"`
	RequiresBiber bool `json:"requires_biber,omitempty"`
}

// IndexSpec records whether a toplevel defines an index.
type IndexSpec struct {
	Defined bool `json:"defined"`
}

// ToplevelSpec is the "process" block of a ToplevelFile entry.
type ToplevelSpec struct {
	Compiler     CompilerSpec      `json:"compiler"`
	Bibliography *BibliographySpec `json:"bibliography,omitempty"`
	Index        *IndexSpec        `json:"index,omitempty"`
	Fontmaps     []string          `json:"fontmaps,omitempty"`
}

// PreflightStatus is the top-level outcome of a preflight run.
type PreflightStatus string

const (
	PreflightSuccess    PreflightStatus = "success"
	PreflightError      PreflightStatus = "error"
	PreflightSuspicious PreflightStatus = "suspicious"
)

// PreflightResponse is the full output of the preflight orchestrator.
type PreflightResponse struct {
	Status              PreflightStatus `json:"status"`
	Info                string          `json:"info,omitempty"`
	DetectedToplevelFiles []ToplevelFile `json:"detected_toplevel_files"`
	TexFiles            []ParsedTeXFile `json:"tex_files"`
	AncillaryFiles      []string        `json:"ancillary_files,omitempty"`
}
