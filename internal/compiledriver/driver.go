// Package compiledriver runs the state machine that turns one toplevel TeX
// source into a PDF: parse/resolve/patch already happened upstream; this
// package iterates the selected engine to a fixed point, runs the
// postprocess chain, and reports per-run metadata for the outcome.
package compiledriver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	zerrors "github.com/gogotex/submission-compile/internal/errors"
	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/pipeline"
	"github.com/gogotex/submission-compile/internal/platform/logger"
	"github.com/gogotex/submission-compile/internal/platform/metrics"
	"github.com/gogotex/submission-compile/internal/zzrm"
)

// MaxLatexRuns bounds engine iterations per toplevel (§4.6 default).
const MaxLatexRuns = 5

// killGrace is the SIGTERM-to-SIGKILL grace period on deadline expiry (§5).
const killGrace = 100 * time.Millisecond

// Status is the terminal outcome of one toplevel's compilation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Result is everything the outcome packer needs about one toplevel's run.
type Result struct {
	Toplevel   string
	Status     Status
	PDFPath    string
	Runs       []model.RunRecord
	Iterations int
	Issues     []model.Issue
	Err        error
}

// Session drives one toplevel's compilation inside an already-unpacked,
// already-patched input directory.
type Session struct {
	RequestID   string
	WorkDir     string
	Toplevel    string // relative path, e.g. "main.tex"
	Compiler    model.CompilerSpec
	Bibliography *model.BibliographySpec
	UserFile    zzrm.UserFile
	Fontmaps    []string

	DeadlineAt time.Time

	// RequiresBiber routes the bibliography pass through biber instead of
	// bibtex, set from the classifier's requires_biber issue.
	RequiresBiber bool

	log *logger.RequestLogger
}

// NewSession constructs a driver session, bound to a per-request deadline.
func NewSession(requestID, workDir, toplevel string, compiler model.CompilerSpec, deadline time.Time) *Session {
	return &Session{
		RequestID:  requestID,
		WorkDir:    workDir,
		Toplevel:   toplevel,
		Compiler:   compiler,
		DeadlineAt: deadline,
		log:        logger.Request(requestID),
	}
}

// Run executes the full state machine for this session's toplevel.
func (s *Session) Run(ctx context.Context) *Result {
	strategy, ok := pipeline.Select(s.Compiler)
	if !ok {
		return &Result{Toplevel: s.Toplevel, Status: StatusFail,
			Err: zerrors.NewCompileError(zerrors.CompileCompilerNotSpecified, s.Toplevel, nil)}
	}

	jobName := strings.TrimSuffix(filepath.Base(s.Toplevel), filepath.Ext(s.Toplevel))
	res := &Result{Toplevel: s.Toplevel}

	iter, err := s.runEngineToStable(ctx, strategy, jobName)
	res.Runs = append(res.Runs, iter.runs...)
	res.Iterations = iter.iterations
	res.Issues = append(res.Issues, iter.issues...)
	metrics.EngineIterations.WithLabelValues(s.Compiler.String()).Observe(float64(iter.iterations))

	if err != nil {
		res.Status = StatusFail
		res.Err = err
		metrics.EngineRuns.WithLabelValues(s.Compiler.String(), "fail").Inc()
		return res
	}

	pdfPath := filepath.Join(s.WorkDir, jobName+".pdf")

	if strategy.HasPostprocess {
		dvipsRun, psRun, perr := s.runPostprocess(ctx, jobName)
		if dvipsRun != nil {
			res.Runs = append(res.Runs, *dvipsRun)
		}
		if psRun != nil {
			res.Runs = append(res.Runs, *psRun)
		}
		if perr != nil {
			res.Status = StatusFail
			res.Err = perr
			metrics.EngineRuns.WithLabelValues(s.Compiler.String(), "fail").Inc()
			return res
		}
	}

	if _, statErr := os.Stat(pdfPath); statErr != nil {
		res.Status = StatusFail
		res.Err = zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, statErr)
		metrics.EngineRuns.WithLabelValues(s.Compiler.String(), "fail").Inc()
		return res
	}

	res.Status = StatusSuccess
	res.PDFPath = pdfPath
	metrics.EngineRuns.WithLabelValues(s.Compiler.String(), "success").Inc()
	return res
}

type iterationResult struct {
	runs       []model.RunRecord
	iterations int
	issues     []model.Issue
}

// runEngineToStable iterates the engine command until the aux/out hashes
// stop changing and the log carries no "Rerun" needle, or MAX_LATEX_RUNS is
// reached. At the final iteration, label instability is downgraded from
// fail to success with a warning, per §4.6.
func (s *Session) runEngineToStable(ctx context.Context, strategy pipeline.Strategy, jobName string) (iterationResult, error) {
	var (
		runs     []model.RunRecord
		issues   []model.Issue
		prevHash string
	)

	for i := 0; i < MaxLatexRuns; i++ {
		if s.timeLeft() <= 0 {
			return iterationResult{runs, i, issues}, zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, fmt.Errorf("time budget exhausted before iteration %d", i))
		}

		run, err := s.runEngineOnce(ctx, strategy, jobName, i)
		runs = append(runs, run)
		if err != nil {
			return iterationResult{runs, i + 1, issues}, err
		}

		if i == 0 && s.Bibliography != nil && !s.Bibliography.PreGenerated {
			bibRun, berr := s.runBibliography(ctx, jobName)
			if bibRun != nil {
				runs = append(runs, *bibRun)
			}
			if berr != nil {
				s.log.Warnf("toplevel %s: bibliography pass failed, continuing without it: %v", s.Toplevel, berr)
			}
			issues = append(issues, s.inspectBibliography(jobName)...)
		}

		logContent := run.Log
		needsRerun := strings.Contains(logContent, "Rerun to get cross-references right.")
		hash := hashStabilityFiles(s.WorkDir, jobName)

		stable := i > 0 && hash == prevHash && !needsRerun
		prevHash = hash

		if stable {
			return iterationResult{runs, i + 1, issues}, nil
		}
		if i == MaxLatexRuns-1 && needsRerun {
			s.log.Warnf("toplevel %s: label instability persisted through %d runs, accepting as success", s.Toplevel, MaxLatexRuns)
			return iterationResult{runs, i + 1, issues}, nil
		}
	}

	return iterationResult{runs, MaxLatexRuns, issues}, nil
}

// supportedBblVersions are the biblatex .bbl format versions this driver
// knows how to drive (the TEXMFAUXTREES compatibility tree detectBiblatexAuxTree
// wires in only covers 3.3; anything recognized but older or newer than the
// versions below is flagged rather than silently compiled against).
var supportedBblVersions = map[string]bool{"3.1": true, "3.2": true, "3.3": true}

var bblVersionRe = regexp.MustCompile(`(?i)biblatex.*version\s+([0-9]+\.[0-9]+)`)

// inspectBibliography checks the bibliography pass's output after it runs:
// a toplevel that declared a non-pregenerated bibliography but never got a
// .bbl written is flagged bbl_file_missing; a .bbl carrying a recognized but
// unsupported biblatex format-version comment is flagged bbl_version_mismatch.
func (s *Session) inspectBibliography(jobName string) []model.Issue {
	bblPath := filepath.Join(s.WorkDir, jobName+".bbl")
	data, err := os.ReadFile(bblPath)
	if err != nil {
		return []model.Issue{{Kind: model.IssueBblFileMissing, Filename: s.Toplevel, Message: "bibliography pass did not produce " + jobName + ".bbl"}}
	}

	if m := bblVersionRe.FindSubmatch(data); m != nil {
		version := string(m[1])
		if !supportedBblVersions[version] {
			return []model.Issue{{Kind: model.IssueBblVersionMismatch, Filename: s.Toplevel, Message: "unsupported biblatex .bbl format version " + version}}
		}
	}
	return nil
}

// hashStabilityFiles hashes <jobName>.aux and <jobName>.out together, in
// that fixed order, so a missing file doesn't change which bytes are fed
// to the digest for the files that do exist.
func hashStabilityFiles(dir, jobName string) string {
	h := sha256.New()
	for _, ext := range []string{".aux", ".out"} {
		data, err := os.ReadFile(filepath.Join(dir, jobName+ext))
		if err != nil {
			continue
		}
		h.Write(data)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (s *Session) runEngineOnce(ctx context.Context, strategy pipeline.Strategy, jobName string, iteration int) (model.RunRecord, error) {
	args := pipeline.EngineArgs(strategy.Engine, jobName)
	args = append(args, s.Toplevel)

	env, err := s.buildEnv(jobName)
	if err != nil {
		return model.RunRecord{}, err
	}

	run, rerr := s.execSubprocess(ctx, string(strategy.Engine), args, env, iteration, "engine")
	if rerr != nil {
		return run, rerr
	}

	logPath := filepath.Join(s.WorkDir, jobName+".log")
	if data, err := os.ReadFile(logPath); err == nil {
		run.Log = string(data)
	}

	if run.Log != "" {
		inspection := inspectLog(run.Log, true)
		run.MissingFiles = inspection.MissingFiles
		if inspection.PatternHits > 0 {
			s.log.Debugf("toplevel %s: log inspection recovered %d missing file(s) from %d pattern hit(s): %v",
				s.Toplevel, len(inspection.MissingFiles), inspection.PatternHits, inspection.MissingFiles)
		}
	}

	return run, nil
}

// runBibliography runs bibtex or biber once, after the first engine pass
// has produced <jobName>.aux, when the toplevel's bibliography is not
// already pre-generated.
func (s *Session) runBibliography(ctx context.Context, jobName string) (*model.RunRecord, error) {
	command := "bibtex"
	if s.RequiresBiber {
		command = "biber"
	}
	env, err := s.buildEnv(jobName)
	if err != nil {
		return nil, err
	}
	run, rerr := s.execSubprocess(ctx, command, []string{jobName}, env, 0, "bibliography")
	if rerr != nil {
		return &run, rerr
	}
	return &run, nil
}

// runPostprocess runs dvips (hyperdvi first, retrying without on failure)
// then ps2pdf.
func (s *Session) runPostprocess(ctx context.Context, jobName string) (*model.RunRecord, *model.RunRecord, error) {
	dvipsRun, err := s.runDvips(ctx, jobName, true)
	if err != nil {
		s.log.Warnf("toplevel %s: hyperdvi dvips failed (%v), retrying without -z", s.Toplevel, err)
		retryRun, retryErr := s.runDvips(ctx, jobName, false)
		dvipsRun = retryRun
		if retryErr != nil {
			return dvipsRun, nil, zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, retryErr)
		}
	}

	env, err := s.buildEnv(jobName)
	if err != nil {
		return dvipsRun, nil, err
	}
	psPath := filepath.Join(s.WorkDir, jobName+".ps")
	psRun, perr := s.execSubprocess(ctx, "ps2pdf", []string{psPath, jobName + ".pdf"}, env, 0, "ps2pdf")
	if perr != nil {
		return dvipsRun, &psRun, zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, perr)
	}
	return dvipsRun, &psRun, nil
}

func (s *Session) runDvips(ctx context.Context, jobName string, hyperdvi bool) (*model.RunRecord, error) {
	args := []string{"-R2"}
	if hyperdvi {
		args = append(args, "-z")
	}
	if s.UserFile.Orientation == zzrm.OrientationLandscape {
		args = append(args, "-t", "landscape")
	}
	if s.UserFile.KeepComments {
		args = append(args, "-K")
	}
	for _, fm := range s.Fontmaps {
		args = append(args, "-u", fm)
	}
	args = append(args, jobName+".dvi", "-o", jobName+".ps")

	env, err := s.buildEnv(jobName)
	if err != nil {
		return nil, err
	}
	run, rerr := s.execSubprocess(ctx, "dvips", args, env, 0, "dvips")
	if rerr != nil {
		return &run, rerr
	}
	return &run, nil
}

// buildEnv assembles the subprocess environment per §4.6's invocation
// contract, including the biblatex TEXMFAUXTREES detection.
func (s *Session) buildEnv(jobName string) ([]string, error) {
	userVenv := filepath.Join(s.WorkDir, ".venv", "bin")
	pathValue := userVenv + ":" + os.Getenv("PATH")

	env := map[string]string{
		"PATH":            pathValue,
		"HOME":            s.WorkDir,
		"WORKDIR":         s.WorkDir,
		"max_print_line":  "4096",
		"error_line":      "254",
		"half_error_line": "238",
		"SECRETS":         "?",
		"GOOGLE_APPLICATION_CREDENTIALS": "?",
	}

	if v := os.Getenv("SOURCE_DATE_EPOCH"); v != "" {
		env["SOURCE_DATE_EPOCH"] = v
	}
	if v := os.Getenv("FORCE_SOURCE_DATE"); v != "" {
		env["FORCE_SOURCE_DATE"] = v
	}

	if extraTree := detectBiblatexAuxTree(s.WorkDir, jobName); extraTree != "" {
		env["TEXMFAUXTREES"] = extraTree
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// detectBiblatexAuxTree reads the first three lines of <jobName>.bbl; a
// "3.3" biblatex format marker means an extra TEXMFAUXTREES entry must be
// prepended for the matching compatibility macros.
func detectBiblatexAuxTree(workDir, jobName string) string {
	data, err := os.ReadFile(filepath.Join(workDir, jobName+".bbl"))
	if err != nil {
		return ""
	}
	lines := strings.SplitN(string(data), "\n", 4)
	for i := 0; i < len(lines) && i < 3; i++ {
		if strings.Contains(lines[i], "3.3") {
			return filepath.Join(workDir, ".biblatex-3.3-compat")
		}
	}
	return ""
}

// timeLeft is the remaining wall-clock budget before DeadlineAt.
func (s *Session) timeLeft() time.Duration {
	return time.Until(s.DeadlineAt)
}

// execSubprocess runs one subprocess under the session's remaining time
// budget, capturing both streams, the return code, and timestamps. On
// failure, the step's partial primary artifact is removed: nothing for the
// bibliography step, <jobName>.ps for dvips, <jobName>.pdf for ps2pdf, and
// for an engine run <jobName>.pdf if present, else <jobName>.dvi.
func (s *Session) execSubprocess(ctx context.Context, command string, args, env []string, iteration int, step string) (model.RunRecord, error) {
	budget := s.timeLeft()
	if budget <= 0 {
		return model.RunRecord{}, zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, fmt.Errorf("no time budget remaining"))
	}

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Dir = s.WorkDir
	cmd.Env = env
	cmd.WaitDelay = killGrace

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	end := time.Now()

	rc := 0
	processCompletion := true
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		rc = exitErr.ExitCode()
	} else if runCtx.Err() != nil {
		processCompletion = false
		rc = -1
		s.log.Warnf("toplevel %s: %s (%s) exceeded its time budget, killed", s.Toplevel, command, step)
	} else if runErr != nil {
		return model.RunRecord{}, runErr
	}

	record := model.RunRecord{
		Args:              append([]string{command}, args...),
		Stdout:            stdout.String(),
		Stderr:            stderr.String(),
		ReturnCode:        rc,
		Env:               envToMap(env),
		StartTime:         start,
		EndTime:           end,
		ElapseTime:        end.Sub(start),
		ProcessCompletion: processCompletion,
		Iteration:         iteration,
		Step:              step,
	}

	if rc != 0 || !processCompletion {
		s.removePartialArtifact(step)
		return record, zerrors.NewCompileError(zerrors.CompileRunFail, s.Toplevel, fmt.Errorf("%s exited %d", command, rc))
	}

	return record, nil
}

func (s *Session) removePartialArtifact(step string) {
	jobName := strings.TrimSuffix(filepath.Base(s.Toplevel), filepath.Ext(s.Toplevel))
	var primary string
	switch step {
	case "bibliography":
		// Non-fatal pass; nothing produced by this step to clean up.
		return
	case "dvips":
		primary = jobName + ".ps"
	case "ps2pdf":
		primary = jobName + ".pdf"
	default:
		primary = jobName + ".dvi"
		if _, err := os.Stat(filepath.Join(s.WorkDir, jobName+".pdf")); err == nil {
			primary = jobName + ".pdf"
		}
	}
	path := filepath.Join(s.WorkDir, primary)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warnf("failed to remove partial artifact %s: %v", path, err)
	}
}

func envToMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		}
	}
	return m
}
