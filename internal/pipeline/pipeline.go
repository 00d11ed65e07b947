// Package pipeline maps a resolved compiler string to the concrete sequence
// of engine and postprocess steps the compilation driver executes.
package pipeline

import (
	"github.com/gogotex/submission-compile/internal/model"
)

// EngineCommand is the subprocess name invoked for one engine run.
type EngineCommand string

const (
	EngineCommandEtex  EngineCommand = "etex"
	EngineCommandPdftex EngineCommand = "pdftex"
	EngineCommandLatex EngineCommand = "latex"
	EngineCommandPdflatex EngineCommand = "pdflatex"
	EngineCommandLualatex EngineCommand = "lualatex"
	EngineCommandXelatex  EngineCommand = "xelatex"
)

// Strategy describes how a supported compiler spec runs to completion: the
// engine command run to a fixed point, and the postprocess chain (if any)
// run once the engine has stabilized.
type Strategy struct {
	Engine         EngineCommand
	ProducesPDFDirectly bool
	HasPostprocess bool
}

// Select maps a CompilerSpec's canonical string to its Strategy. Only the
// three pipelines the driver actually implements resolve to a non-zero
// Strategy; callers must check spec.Supported() first.
func Select(spec model.CompilerSpec) (Strategy, bool) {
	switch spec.String() {
	case "etex+dvips_ps2pdf":
		return Strategy{Engine: EngineCommandEtex, ProducesPDFDirectly: false, HasPostprocess: true}, true
	case "latex+dvips_ps2pdf":
		return Strategy{Engine: EngineCommandLatex, ProducesPDFDirectly: false, HasPostprocess: true}, true
	case "pdflatex":
		return Strategy{Engine: EngineCommandPdflatex, ProducesPDFDirectly: true, HasPostprocess: false}, true
	default:
		return Strategy{}, false
	}
}

// EngineArgs returns the base command-line arguments for one engine run,
// modeled on latexmk's nonstopmode invocation contract.
func EngineArgs(cmd EngineCommand, jobName string) []string {
	args := []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-file-line-error",
	}
	if cmd == EngineCommandPdflatex || cmd == EngineCommandLualatex || cmd == EngineCommandXelatex || cmd == EngineCommandPdftex {
		args = append(args, "-synctex=1")
	}
	args = append(args, "-jobname="+jobName)
	return args
}
