package zzrm

import (
	"github.com/gogotex/submission-compile/internal/model"
)

// Merge reconciles a (possibly nil) manifest with the preflight result per
// §4.5: a manifest that names no toplevel inherits the preflight-detected
// ones; a manifest that names toplevels but leaves the compiler undetermined
// derives it from the first named toplevel's preflight classification,
// filling only the dimensions still unknown. A nil manifest is treated as an
// empty one built entirely from preflight.
func Merge(z *ZeroZeroReadMe, preflight *model.PreflightResponse) *ZeroZeroReadMe {
	if z == nil {
		z = New()
	}

	byFilename := make(map[string]model.ToplevelFile, len(preflight.DetectedToplevelFiles))
	for _, t := range preflight.DetectedToplevelFiles {
		byFilename[t.Filename] = t
	}

	if len(z.Toplevels()) == 0 {
		for _, t := range preflight.DetectedToplevelFiles {
			z.SetSource(UserFile{Filename: t.Filename, Usage: UsageToplevel})
		}
	}

	if !z.Process.Compiler.IsDetermined() {
		for _, name := range z.Toplevels() {
			t, ok := byFilename[name]
			if !ok {
				continue
			}
			z.Process.Compiler = fillUnknown(z.Process.Compiler, t.Process.Compiler)
			break
		}
	}

	return z
}

// fillUnknown overlays detected onto declared, keeping every dimension the
// manifest already pinned and filling only the ones still unknown.
func fillUnknown(declared, detected model.CompilerSpec) model.CompilerSpec {
	if declared.Engine == model.EngineUnknown {
		declared.Engine = detected.Engine
	}
	if declared.Language == model.LanguageUnknown {
		declared.Language = detected.Language
	}
	if declared.Output == model.OutputUnknown {
		declared.Output = detected.Output
	}
	if declared.Postprocess == model.PostprocessUnknown {
		declared.Postprocess = detected.Postprocess
	}
	return declared
}
