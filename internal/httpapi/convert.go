package httpapi

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gogotex/submission-compile/internal/archive"
	"github.com/gogotex/submission-compile/internal/assemble"
	"github.com/gogotex/submission-compile/internal/compiledriver"
	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/outcome"
	"github.com/gogotex/submission-compile/internal/patch"
	"github.com/gogotex/submission-compile/internal/platform/logger"
	"github.com/gogotex/submission-compile/internal/platform/metrics"
	"github.com/gogotex/submission-compile/internal/zzrm"
)

var texLikeExtensions = map[string]bool{".tex": true, ".sty": true, ".cls": true, ".clo": true}

// handleConvert implements POST /convert/ (§6): unpack the uploaded bundle,
// run preflight, merge it with any submitter manifest, compile every
// toplevel to a stable PDF, assemble and (optionally) watermark the result,
// and stream back the gzipped outcome archive.
func handleConvert(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		log := logger.Request(requestID)

		fh, err := c.FormFile("incoming")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "incoming" file`, "request_id": requestID})
			return
		}

		timeoutSeconds := queryInt(c, "timeout", int(d.Config.Compile.MaxTimeBudget/time.Second))
		watermarkText := c.Query("watermark_text")
		watermarkLink := c.Query("watermark_link")

		sandbox, err := os.MkdirTemp("", "convert-")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate sandbox", "request_id": requestID})
			return
		}
		defer os.RemoveAll(sandbox)

		if err := unpackUpload(fh, sandbox); err != nil {
			log.Warnf("archive error: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("archive error: %v", err), "request_id": requestID})
			return
		}

		deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
		ctx, cancel := context.WithDeadline(c.Request.Context(), deadline)
		defer cancel()

		manifest, zerr := zzrm.Load(sandbox)
		if zerr != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": zerr.Error(), "request_id": requestID})
			return
		}

		preflightStart := time.Now()
		pre, perr := d.Orchestrator.Run(ctx, sandbox)
		metrics.PreflightDuration.Observe(time.Since(preflightStart).Seconds())
		if perr != nil {
			log.Errorf("preflight failed: %v", perr)
		}

		directive := zzrm.Merge(manifest, pre)
		if !directive.ReadyForCompilation() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "no compilable toplevel after merging preflight and manifest",
				"request_id": requestID,
				"preflight":  pre,
			})
			return
		}

		if _, err := patch.ApplyAll(sandbox, texLikeExtensions); err != nil {
			log.Warnf("source patch pass failed: %v", err)
		}

		outDir := filepath.Join(sandbox, "__out__")
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate output dir", "request_id": requestID})
			return
		}

		converters, produced := runToplevels(ctx, directive, pre, sandbox, requestID, deadline)

		finalPDF, assembleErr := assembleFinal(ctx, d, directive, produced, outDir)
		if assembleErr != nil {
			log.Errorf("assembly failed: %v", assembleErr)
		}

		if finalPDF != "" {
			text := firstNonEmpty(watermarkText, d.Config.Watermark.DefaultText)
			if text != "" {
				spec := assemble.WatermarkSpec{Text: text, Link: firstNonEmpty(watermarkLink, d.Config.Watermark.DefaultLink)}
				if err := assemble.ApplyWatermark(ctx, d.Watermarker, d.PDFProbe, finalPDF, spec); err != nil {
					log.Warnf("watermarking skipped: %v", err)
				}
			}
		}

		status := outcome.Overall(converters)
		meta := outcome.Metadata{
			Tag:        requestID,
			RequestID:  requestID,
			InFiles:    directive.SourcesOrder,
			ZZRM:       directive,
			Converters: converters,
			Status:     status,
			CreatedAt:  time.Now(),
		}
		if finalPDF != "" {
			meta.PDFFile = filepath.Base(finalPDF)
		}

		if status == outcome.StatusFail {
			c.Status(http.StatusUnprocessableEntity)
		}
		c.Header("Content-Type", "application/gzip")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="outcome-%s.tar.gz"`, requestID))
		if err := outcome.Pack(c.Writer, meta, outDir); err != nil {
			log.Errorf("failed to pack outcome archive: %v", err)
		}

		if d.OutcomeStore != nil {
			now := time.Now()
			_ = d.OutcomeStore.Save(context.Background(), &outcome.PersistedOutcome{
				RequestID: requestID, Tag: requestID, Status: status, PDFFile: meta.PDFFile, CreatedAt: now, UpdatedAt: now,
			})
		}
	}
}

// runToplevels compiles every toplevel the merged directive names,
// returning per-toplevel outcome summaries and the absolute paths of the
// PDFs that actually succeeded, keyed by "<stem>.pdf". Bibliography
// requirements come from the preflight classifier's per-toplevel analysis,
// since the manifest itself carries no such field.
func runToplevels(ctx context.Context, directive *zzrm.ZeroZeroReadMe, pre *model.PreflightResponse, sandbox, requestID string, deadline time.Time) ([]outcome.ConverterRun, map[string]string) {
	var converters []outcome.ConverterRun
	produced := make(map[string]string)

	for _, name := range directive.Toplevels() {
		uf := directive.Sources[name]
		sess := compiledriver.NewSession(requestID, sandbox, name, directive.Process.Compiler, deadline)
		sess.UserFile = uf
		sess.Fontmaps = append(append([]string{}, directive.Process.Fontmaps...), uf.Fontmaps...)
		if tf := findToplevel(pre, name); tf != nil {
			sess.Bibliography = tf.Process.Bibliography
			if tf.Process.Bibliography != nil {
				sess.RequiresBiber = tf.Process.Bibliography.RequiresBiber
			}
		}

		res := sess.Run(ctx)
		run := outcome.ConverterRun{
			Toplevel:   name,
			Status:     string(res.Status),
			Iterations: res.Iterations,
			Runs:       res.Runs,
			Issues:     res.Issues,
		}
		if res.Err != nil {
			run.Error = res.Err.Error()
		}
		converters = append(converters, run)

		if res.Status == compiledriver.StatusSuccess {
			produced[stemOf(name)+".pdf"] = res.PDFPath
		}
	}
	return converters, produced
}

// assembleFinal combines every toplevel's produced PDF into one file at
// outDir/submission.pdf. When every toplevel in the directive succeeded,
// the ZZRM's declared assembling_files order governs via
// assemble.ReorderByAssemblingFiles (a missing name there is a
// configuration error worth surfacing); otherwise the still-successful
// subset is ordered by toplevel position, since a partial failure is not
// itself fatal per §7.
func assembleFinal(ctx context.Context, d *Deps, directive *zzrm.ZeroZeroReadMe, produced map[string]string, outDir string) (string, error) {
	if len(produced) == 0 {
		return "", nil
	}

	toplevels := directive.Toplevels()
	var ordered []string
	if len(produced) == len(toplevels) {
		inputs := make([]string, 0, len(produced))
		for _, p := range produced {
			inputs = append(inputs, p)
		}
		names, err := assemble.ReorderByAssemblingFiles(inputs, directive.AssemblingFiles())
		if err != nil {
			return "", err
		}
		ordered = names
	} else {
		for _, name := range toplevels {
			if p, ok := produced[stemOf(name)+".pdf"]; ok {
				ordered = append(ordered, p)
			}
		}
	}

	outputPath := filepath.Join(outDir, "submission.pdf")
	res, err := assemble.Assemble(ctx, d.Merger, ordered, outputPath)
	if err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

func findToplevel(pre *model.PreflightResponse, filename string) *model.ToplevelFile {
	if pre == nil {
		return nil
	}
	for i := range pre.DetectedToplevelFiles {
		if pre.DetectedToplevelFiles[i].Filename == filename {
			return &pre.DetectedToplevelFiles[i]
		}
	}
	return nil
}

func unpackUpload(fh *multipart.FileHeader, destDir string) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = archive.Extract(f, destDir)
	return err
}

func stemOf(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
