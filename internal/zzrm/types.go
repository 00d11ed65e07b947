// Package zzrm implements the submission directive model: loading the
// submitter-supplied 00README manifest (v1 line-based or v2 YAML/JSON/TOML),
// and merging it with a preflight result.
package zzrm

import (
	"path/filepath"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
)

// CurrentSpecVersion is the highest v2 spec_version this loader accepts.
const CurrentSpecVersion = 1

// Usage says how the compilation driver should treat a listed source file.
type Usage string

const (
	UsageToplevel Usage = "toplevel"
	UsageIgnore   Usage = "ignore"
	UsageInclude  Usage = "include"
	UsageAppend   Usage = "append"
)

// Orientation is a page-orientation override applied at the dvips step.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// UserFile is one entry in the manifest's ordered "sources" mapping.
type UserFile struct {
	Filename     string      `json:"filename" yaml:"filename" toml:"filename"`
	Usage        Usage       `json:"usage" yaml:"usage" toml:"usage"`
	Orientation  Orientation `json:"orientation,omitempty" yaml:"orientation,omitempty" toml:"orientation,omitempty"`
	KeepComments bool        `json:"keep_comments,omitempty" yaml:"keep_comments,omitempty" toml:"keep_comments,omitempty"`
	Fontmaps     []string    `json:"fontmaps,omitempty" yaml:"fontmaps,omitempty" toml:"fontmaps,omitempty"`
}

// ProcessSpec is the manifest's "process" block.
type ProcessSpec struct {
	Compiler model.CompilerSpec `json:"compiler" yaml:"compiler" toml:"compiler"`
	Fontmaps []string           `json:"fontmaps,omitempty" yaml:"fontmaps,omitempty" toml:"fontmaps,omitempty"`
}

// ZeroZeroReadMe is the parsed, in-memory submission manifest.
type ZeroZeroReadMe struct {
	// Sources preserves insertion order: SourcesOrder records first-seen
	// position, Sources holds the current (possibly overwritten) value.
	Sources      map[string]UserFile
	SourcesOrder []string

	Process        ProcessSpec
	Stamp          bool
	NoHyperref     bool
	TexliveVersion *int
	SpecVersion    int
}

// New returns an empty manifest with the spec's documented defaults.
func New() *ZeroZeroReadMe {
	return &ZeroZeroReadMe{
		Sources:     make(map[string]UserFile),
		Stamp:       true,
		SpecVersion: CurrentSpecVersion,
	}
}

// SetSource inserts or overwrites a source entry, preserving first-seen
// order for SourcesOrder.
func (z *ZeroZeroReadMe) SetSource(uf UserFile) {
	if _, exists := z.Sources[uf.Filename]; !exists {
		z.SourcesOrder = append(z.SourcesOrder, uf.Filename)
	}
	z.Sources[uf.Filename] = uf
}

// OrderedSources returns the sources in insertion order.
func (z *ZeroZeroReadMe) OrderedSources() []UserFile {
	out := make([]UserFile, 0, len(z.SourcesOrder))
	for _, name := range z.SourcesOrder {
		out = append(out, z.Sources[name])
	}
	return out
}

// Toplevels returns the filenames marked usage=toplevel, in manifest order.
func (z *ZeroZeroReadMe) Toplevels() []string {
	var out []string
	for _, name := range z.SourcesOrder {
		if z.Sources[name].Usage == UsageToplevel {
			out = append(out, name)
		}
	}
	return out
}

// AssemblingFiles derives the ordered list of per-toplevel PDF names: each
// toplevel's stem with a .pdf extension, in manifest order.
func (z *ZeroZeroReadMe) AssemblingFiles() []string {
	toplevels := z.Toplevels()
	out := make([]string, 0, len(toplevels))
	for _, name := range toplevels {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		out = append(out, stem+".pdf")
	}
	return out
}

// ReadyForCompilation reports whether the manifest has at least one
// toplevel and a fully-determined compiler, per §4.5's merge contract.
func (z *ZeroZeroReadMe) ReadyForCompilation() bool {
	return len(z.Toplevels()) > 0 && z.Process.Compiler.IsDetermined()
}
