// Package errors defines the typed error taxonomy the core uses in place of
// exceptions-as-control-flow: a ZZRMError for manifest problems and a
// CompileError for pipeline-execution problems, each carrying an enumerated
// Kind so callers can branch on cause without string matching.
package errors

import "fmt"

// ZZRMKind enumerates the ways a submission manifest can be rejected.
type ZZRMKind int

const (
	ZZRMUnknown ZZRMKind = iota
	ZZRMMultipleFiles
	ZZRMKey
	ZZRMParse
	ZZRMInvalidFormat
	ZZRMUnsupported
	ZZRMUnderspecified
)

func (k ZZRMKind) String() string {
	switch k {
	case ZZRMMultipleFiles:
		return "multiple_files"
	case ZZRMKey:
		return "key"
	case ZZRMParse:
		return "parse"
	case ZZRMInvalidFormat:
		return "invalid_format"
	case ZZRMUnsupported:
		return "unsupported"
	case ZZRMUnderspecified:
		return "underspecified"
	default:
		return "unknown"
	}
}

// ZZRMError reports a fatal-for-request problem with the submitter manifest.
type ZZRMError struct {
	Kind       ZZRMKind
	File       string
	Underlying error
}

func NewZZRMError(kind ZZRMKind, file string, underlying error) *ZZRMError {
	return &ZZRMError{Kind: kind, File: file, Underlying: underlying}
}

func (e *ZZRMError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("zzrm: %s", e.Kind)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("zzrm: %s (%s): %v", e.Kind, e.File, e.Underlying)
	}
	return fmt.Sprintf("zzrm: %s (%s)", e.Kind, e.File)
}

func (e *ZZRMError) Unwrap() error { return e.Underlying }

// CompileKind enumerates the ways the compilation driver can fail a toplevel.
type CompileKind int

const (
	CompileUnknown CompileKind = iota
	CompileNoTexFile
	CompileRunFail
	CompileCompilerNotSpecified
	CompileImplementationError
)

func (k CompileKind) String() string {
	switch k {
	case CompileNoTexFile:
		return "no_tex_file"
	case CompileRunFail:
		return "run_fail"
	case CompileCompilerNotSpecified:
		return "compiler_not_specified"
	case CompileImplementationError:
		return "implementation_error"
	default:
		return "unknown"
	}
}

// CompileError reports why the compilation driver gave up on a toplevel.
type CompileError struct {
	Kind       CompileKind
	Toplevel   string
	Underlying error
}

func NewCompileError(kind CompileKind, toplevel string, underlying error) *CompileError {
	return &CompileError{Kind: kind, Toplevel: toplevel, Underlying: underlying}
}

func (e *CompileError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("compile: %s (%s): %v", e.Kind, e.Toplevel, e.Underlying)
	}
	return fmt.Sprintf("compile: %s (%s)", e.Kind, e.Toplevel)
}

func (e *CompileError) Unwrap() error { return e.Underlying }
