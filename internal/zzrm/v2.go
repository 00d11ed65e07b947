package zzrm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	zerrors "github.com/gogotex/submission-compile/internal/errors"
	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// v2Doc is the loose schema every v2 form decodes into before validation.
type v2Doc struct {
	Sources        map[string]v2Source `yaml:"sources" json:"sources" toml:"sources"`
	Process        v2Process           `yaml:"process" json:"process" toml:"process"`
	Stamp          *bool               `yaml:"stamp" json:"stamp" toml:"stamp"`
	NoHyperref     *bool               `yaml:"nohyperref" json:"nohyperref" toml:"nohyperref"`
	TexliveVersion *int                `yaml:"texlive_version" json:"texlive_version" toml:"texlive_version"`
	SpecVersion    *int                `yaml:"spec_version" json:"spec_version" toml:"spec_version"`
}

type v2Source struct {
	Usage        string   `yaml:"usage" json:"usage" toml:"usage"`
	Orientation  string   `yaml:"orientation" json:"orientation" toml:"orientation"`
	KeepComments bool     `yaml:"keep_comments" json:"keep_comments" toml:"keep_comments"`
	Fontmaps     []string `yaml:"fontmaps" json:"fontmaps" toml:"fontmaps"`
}

type v2Process struct {
	Compiler string   `yaml:"compiler" json:"compiler" toml:"compiler"`
	Fontmaps []string `yaml:"fontmaps" json:"fontmaps" toml:"fontmaps"`
}

// ParseV2 parses a YAML, JSON, JSN, TOML, or NDJSON v2 manifest.
func ParseV2(data []byte, ext string) (*ZeroZeroReadMe, error) {
	switch ext {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".json", ".jsn":
		return parseJSON(data)
	case ".toml":
		return parseTOML(data)
	case ".ndjson":
		return parseNDJSON(data)
	default:
		return nil, zerrors.NewZZRMError(zerrors.ZZRMInvalidFormat, ext, nil)
	}
}

func parseYAML(data []byte) (*ZeroZeroReadMe, error) {
	var doc v2Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, "", err)
	}

	order, err := yamlSourceOrder(data)
	if err != nil {
		logger.Warnf("zzrm: could not recover yaml source order, falling back to map order: %v", err)
	}
	return buildFromDoc(doc, order)
}

// yamlSourceOrder walks the raw YAML tree to recover the mapping-key order
// under "sources", since unmarshaling into a Go map loses it.
func yamlSourceOrder(data []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "sources" {
			continue
		}
		sourcesNode := doc.Content[i+1]
		var order []string
		for j := 0; j+1 < len(sourcesNode.Content); j += 2 {
			order = append(order, sourcesNode.Content[j].Value)
		}
		return order, nil
	}
	return nil, nil
}

func parseJSON(data []byte) (*ZeroZeroReadMe, error) {
	var doc v2Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, "", err)
	}

	order, err := jsonSourceOrder(data)
	if err != nil {
		logger.Warnf("zzrm: could not recover json source order, falling back to map order: %v", err)
	}
	return buildFromDoc(doc, order)
}

// jsonSourceOrder tokenizes the raw document to recover "sources"' key
// order, which encoding/json's map decoding does not preserve.
func jsonSourceOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	inSources := false
	sourcesDepth := 0
	var order []string

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case json.Delim:
			if t == '{' || t == '[' {
				depth++
			} else {
				depth--
				if inSources && depth < sourcesDepth {
					inSources = false
				}
			}
		case string:
			if !inSources && depth == 1 && t == "sources" {
				inSources = true
				sourcesDepth = depth + 1
				continue
			}
			if inSources && depth == sourcesDepth {
				order = append(order, t)
			}
		}
	}
	return order, nil
}

func parseTOML(data []byte) (*ZeroZeroReadMe, error) {
	var doc v2Doc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, "", err)
	}
	// go-toml/v2 has no ergonomic ordered-key API short of hand-walking its
	// internal AST; for this format only, sources are added in Go map
	// iteration order rather than file order, so their order is not defined.
	return buildFromDoc(doc, nil)
}

// parseNDJSON treats the first line as manifest metadata (process, stamp,
// nohyperref, texlive_version, spec_version) and every subsequent line as
// one source entry object, e.g. {"filename":"a.tex","usage":"toplevel"}.
// This keeps source order exact without needing key-order recovery tricks.
func parseNDJSON(data []byte) (*ZeroZeroReadMe, error) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMInvalidFormat, "", nil)
	}

	var meta struct {
		Process        v2Process `json:"process"`
		Stamp          *bool     `json:"stamp"`
		NoHyperref     *bool     `json:"nohyperref"`
		TexliveVersion *int      `json:"texlive_version"`
		SpecVersion    *int      `json:"spec_version"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, "", err)
	}

	z := New()
	if err := applyMeta(z, meta.Process, meta.Stamp, meta.NoHyperref, meta.TexliveVersion, meta.SpecVersion); err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry struct {
			Filename     string   `json:"filename"`
			Usage        string   `json:"usage"`
			Orientation  string   `json:"orientation"`
			KeepComments bool     `json:"keep_comments"`
			Fontmaps     []string `json:"fontmaps"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, "", err)
		}
		if entry.Filename == "" {
			return nil, zerrors.NewZZRMError(zerrors.ZZRMKey, "filename", nil)
		}
		uf := UserFile{
			Filename:     entry.Filename,
			Usage:        usageOrDefault(entry.Usage),
			Orientation:  Orientation(entry.Orientation),
			KeepComments: entry.KeepComments,
			Fontmaps:     entry.Fontmaps,
		}
		z.SetSource(uf)
	}
	return z, nil
}

func usageOrDefault(s string) Usage {
	if s == "" {
		return UsageToplevel
	}
	return Usage(s)
}

func applyMeta(z *ZeroZeroReadMe, proc v2Process, stamp, nohyperref *bool, texliveVersion, specVersion *int) error {
	if proc.Compiler != "" {
		spec, err := model.ParseCompilerString(proc.Compiler)
		if err != nil {
			return zerrors.NewZZRMError(zerrors.ZZRMUnsupported, proc.Compiler, err)
		}
		z.Process.Compiler = spec
	}
	z.Process.Fontmaps = proc.Fontmaps
	if stamp != nil {
		z.Stamp = *stamp
	}
	if nohyperref != nil {
		z.NoHyperref = *nohyperref
	}
	z.TexliveVersion = texliveVersion
	if specVersion != nil {
		if *specVersion < 1 || *specVersion > CurrentSpecVersion {
			return zerrors.NewZZRMError(zerrors.ZZRMUnsupported, fmt.Sprintf("spec_version=%d", *specVersion), nil)
		}
		z.SpecVersion = *specVersion
	}
	return nil
}

func buildFromDoc(doc v2Doc, order []string) (*ZeroZeroReadMe, error) {
	z := New()
	if err := applyMeta(z, doc.Process, doc.Stamp, doc.NoHyperref, doc.TexliveVersion, doc.SpecVersion); err != nil {
		return nil, err
	}

	keys := order
	if keys == nil {
		for k := range doc.Sources {
			keys = append(keys, k)
		}
	}

	for _, name := range keys {
		src, ok := doc.Sources[name]
		if !ok {
			continue
		}
		z.SetSource(UserFile{
			Filename:     name,
			Usage:        usageOrDefault(src.Usage),
			Orientation:  Orientation(src.Orientation),
			KeepComments: src.KeepComments,
			Fontmaps:     src.Fontmaps,
		})
	}
	return z, nil
}
