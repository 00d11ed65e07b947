// Package assemble builds the final per-toplevel PDF from the artifacts a
// compilation run produced: moving a lone PDF into place, merging several,
// and reordering by a ZZRM assembling_files list.
package assemble

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	zerrors "github.com/gogotex/submission-compile/internal/errors"
	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// Merger shells out to an external PDF-merging tool. Two are configured:
// a primary and a fallback, tried in order.
type Merger struct {
	PrimaryCommand  string
	FallbackCommand string
}

// NewMerger returns a Merger using qpdf as primary and pdfunite (poppler) as
// fallback, the two external mergers most commonly available alongside a
// TeX Live install.
func NewMerger() *Merger {
	return &Merger{PrimaryCommand: "qpdf", FallbackCommand: "pdfunite"}
}

// Result records the merger invocation(s) the caller should surface in the
// outcome's run list.
type Result struct {
	OutputPath string
	UsedFallback bool
	Stdout, Stderr string
	ReturnCode   int
}

// Assemble builds the final PDF at outputPath from the ordered list of
// input PDFs (already-existing image-converted-to-PDF paths included).
// A single input is just moved; more than one is merged via the external
// tool chain with fallback.
func Assemble(ctx context.Context, m *Merger, inputs []string, outputPath string) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("assemble: no inputs to assemble")
	}
	if len(inputs) == 1 {
		if err := moveFile(inputs[0], outputPath); err != nil {
			return nil, err
		}
		return &Result{OutputPath: outputPath}, nil
	}

	res, err := runMerger(ctx, m.PrimaryCommand, mergeArgs(m.PrimaryCommand, inputs, outputPath))
	if err == nil && res.ReturnCode == 0 {
		res.OutputPath = outputPath
		return res, nil
	}
	primaryRC := -1
	if res != nil {
		primaryRC = res.ReturnCode
	}
	logger.Warnf("assemble: primary merger %s failed (rc=%d), trying fallback %s", m.PrimaryCommand, primaryRC, m.FallbackCommand)

	fallback, ferr := runMerger(ctx, m.FallbackCommand, mergeArgs(m.FallbackCommand, inputs, outputPath))
	if ferr != nil {
		return nil, fmt.Errorf("assemble: fallback merger failed: %w", ferr)
	}
	fallback.UsedFallback = true
	if fallback.ReturnCode != 0 {
		return fallback, fmt.Errorf("assemble: both mergers failed (primary rc=%d, fallback rc=%d)", primaryRC, fallback.ReturnCode)
	}
	fallback.OutputPath = outputPath
	return fallback, nil
}

func mergeArgs(command string, inputs []string, outputPath string) []string {
	switch command {
	case "qpdf":
		args := []string{"--empty", "--pages"}
		args = append(args, inputs...)
		args = append(args, "--", outputPath)
		return args
	default: // pdfunite
		return append(append([]string{}, inputs...), outputPath)
	}
}

func runMerger(ctx context.Context, command string, args []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	rc := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		rc = exitErr.ExitCode()
	} else if err != nil {
		return nil, err
	}
	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ReturnCode: rc}, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

// ReorderByAssemblingFiles reorders inputs (matched by basename) to follow
// the ZZRM's assembling_files order. A missing name is a fatal abort per
// §4.6.
func ReorderByAssemblingFiles(inputs []string, assemblingFiles []string) ([]string, error) {
	if len(assemblingFiles) == 0 {
		return inputs, nil
	}

	byBase := make(map[string]string, len(inputs))
	for _, p := range inputs {
		byBase[filepath.Base(p)] = p
	}

	out := make([]string, 0, len(assemblingFiles))
	for _, name := range assemblingFiles {
		p, ok := byBase[filepath.Base(name)]
		if !ok {
			return nil, zerrors.NewCompileError(zerrors.CompileImplementationError, name,
				fmt.Errorf("assembling_files entry %q not found among produced artifacts", name))
		}
		out = append(out, p)
	}
	return out, nil
}

// IsIntermediateConversion reports whether path is an intermediate image
// conversion artifact that must not be treated as a fresh output file.
func IsIntermediateConversion(path string) bool {
	return strings.HasSuffix(path, "-eps-converted-to.pdf")
}

// NewSinceStart partitions the directory's current file list against a
// before-snapshot, returning files present now but absent at start, minus
// intermediate conversion artifacts and the toplevel's own collision PDF
// (which the artifact policy already special-cases by letting the fresh
// one overwrite it).
func NewSinceStart(before map[string]time.Time, dir string) ([]string, error) {
	var fresh []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if IsIntermediateConversion(path) {
			return nil
		}
		if _, existed := before[path]; existed {
			return nil
		}
		fresh = append(fresh, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}
