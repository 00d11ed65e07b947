// Package outcome packs a compilation request's results into the
// gzipped-tar archive the HTTP boundary returns, and optionally persists
// the outcome metadata to a durable store.
package outcome

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gogotex/submission-compile/internal/model"
	"github.com/gogotex/submission-compile/internal/zzrm"
)

// Status is the overall request outcome: success iff at least one toplevel
// produced a non-empty PDF (§7).
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// ConverterRun is one toplevel's compilation summary, embedded in the
// outcome metadata.
type ConverterRun struct {
	Toplevel   string            `json:"toplevel"`
	Status     string            `json:"status"`
	Iterations int               `json:"iterations"`
	Runs       []model.RunRecord `json:"runs"`
	Issues     []model.Issue     `json:"issues,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Metadata is the JSON document stored as outcome-<tag>.json inside the
// archive.
type Metadata struct {
	Tag         string         `json:"tag"`
	Version     string         `json:"version"`
	VersionInfo string         `json:"version_info,omitempty"`
	RequestID   string         `json:"request_id"`
	InFiles     []string       `json:"in_files"`
	OutFiles    []string       `json:"out_files"`
	ZZRM        *zzrm.ZeroZeroReadMe `json:"zzrm,omitempty"`
	Converters  []ConverterRun `json:"converters"`
	PDFFile     string         `json:"pdf_file,omitempty"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Pack writes the outcome archive (outcome-<tag>.json plus out/… artifacts)
// to w as a gzipped tar, per §6.
func Pack(w io.Writer, meta Metadata, outDir string) error {
	gz := gzip.NewWriter(w)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("outcome: marshal metadata: %w", err)
	}
	metaName := fmt.Sprintf("outcome-%s.json", meta.Tag)
	if err := writeTarEntry(tw, metaName, metaJSON); err != nil {
		return err
	}

	return filepath.Walk(outDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return writeTarEntry(tw, filepath.Join("out", rel), data)
	})
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("outcome: write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("outcome: write tar body for %s: %w", name, err)
	}
	return nil
}

// Overall derives the request-level Status: success iff at least one
// toplevel's converter run succeeded (§7: "success iff at least one
// toplevel produced a non-empty PDF").
func Overall(converters []ConverterRun) Status {
	for _, c := range converters {
		if c.Status == "success" {
			return StatusSuccess
		}
	}
	return StatusFail
}
