package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogotex/submission-compile/internal/outcome"
	"github.com/gogotex/submission-compile/internal/platform/logger"
	"github.com/gogotex/submission-compile/internal/scorecard"
)

// sourceExtensions lists the bundle extensions compile will submit. With
// --auto-detect unset, every file under dir matching one of these is
// submitted; with it set, files are additionally sniffed by magic bytes
// before being queued (protects against misnamed files in a scraped corpus).
var sourceExtensions = []string{".zip", ".tar.gz", ".tgz"}

func newCompileCmd() *cobra.Command {
	var service string
	var threads int
	var autoDetect bool
	var scorePath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "compile <dir>",
		Short: "Submit every source bundle in <dir> to a running submission-compile service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runCompile(cmd.Context(), args[0], service, threads, autoDetect, scorePath); err != nil {
				return err
			}
			if watch {
				return watchAndRecompile(cmd.Context(), args[0], service, threads, autoDetect, scorePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "http://localhost:8080", "base URL of the submission-compile service")
	cmd.Flags().IntVar(&threads, "threads", 16, "number of bundles to submit concurrently (§5: bounded worker pool, default 16-64)")
	cmd.Flags().BoolVar(&autoDetect, "auto-detect", false, "also sniff file contents and skip bundles whose bytes are not zip or gzip")
	cmd.Flags().StringVar(&scorePath, "score", "./scorecard.db", "scorecard database to record outcomes into")
	cmd.Flags().BoolVar(&watch, "watch", false, "after the initial pass, watch dir and resubmit on new or changed bundles")

	return cmd
}

// watchAndRecompile re-runs runCompile whenever a bundle under dir is
// created or written, debouncing bursts of events into a single pass.
func watchAndRecompile(ctx context.Context, dir, service string, threads int, autoDetect bool, scorePath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	color.Cyan("watching %s for changes (ctrl-c to stop)...", dir)

	var pending bool
	var timer *time.Timer
	fire := func() {
		if err := runCompile(ctx, dir, service, threads, autoDetect, scorePath); err != nil {
			logger.Warnf("recompile pass failed: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !hasSourceExtension(ev.Name) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			pending = true
			timer = time.AfterFunc(500*time.Millisecond, func() {
				if pending {
					pending = false
					fire()
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("file watcher error: %v", err)
		}
	}
}

func runCompile(ctx context.Context, dir, service string, threads int, autoDetect bool, scorePath string) error {
	bundles, err := discoverBundles(dir, autoDetect)
	if err != nil {
		return fmt.Errorf("discover bundles: %w", err)
	}
	if len(bundles) == 0 {
		color.Yellow("no source bundles found under %s", dir)
		return nil
	}

	db, err := scorecard.Open(scorePath)
	if err != nil {
		return fmt.Errorf("open scorecard: %w", err)
	}
	defer db.Close()

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	bar := progressbar.NewOptions(len(bundles),
		progressbar.OptionSetDescription("compiling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
	)

	client := &http.Client{Timeout: 10 * time.Minute}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	var failures atomic.Int64
	for _, bundle := range bundles {
		bundle := bundle
		group.Go(func() error {
			defer bar.Add(1)
			if err := submitOne(gctx, client, service, bundle, outDir, db); err != nil {
				failures.Add(1)
				logger.Warnf("compile %s: %v", bundle, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	fmt.Println()
	if n := failures.Load(); n > 0 {
		color.Red("%d/%d bundles failed to compile", n, len(bundles))
		return fmt.Errorf("%d bundles failed", n)
	}
	color.Green("all %d bundles compiled", len(bundles))
	return nil
}

// discoverBundles walks dir for files with one of sourceExtensions; files
// without such an extension are never included. With autoDetect, files
// whose extension matches but whose leading bytes don't look like a zip or
// gzip stream are skipped with a warning.
func discoverBundles(dir string, autoDetect bool) ([]string, error) {
	var bundles []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (d.Name() == "out" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasSourceExtension(path) {
			return nil
		}
		if autoDetect && !looksLikeArchive(path) {
			logger.Warnf("skipping %s: extension suggests an archive but contents don't match", path)
			return nil
		}
		bundles = append(bundles, path)
		return nil
	})
	return bundles, err
}

func hasSourceExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func looksLikeArchive(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	// zip: PK\x03\x04 ; gzip: \x1f\x8b
	return bytes.HasPrefix(magic, []byte{0x50, 0x4b, 0x03, 0x04}) || bytes.HasPrefix(magic, []byte{0x1f, 0x8b})
}

// submitOne posts bundle to {service}/convert/, unpacks the returned
// outcome archive under outDir/<stem>/, and records the result in db.
func submitOne(ctx context.Context, client *http.Client, service, bundle, outDir string, db *scorecard.DB) error {
	stem := strings.TrimSuffix(filepath.Base(bundle), filepath.Ext(bundle))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("incoming", filepath.Base(bundle))
	if err != nil {
		return err
	}
	f, err := os.Open(bundle)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	f.Close()
	if err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(service, "/")+"/convert/", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		_ = db.UpsertScore(ctx, scorecard.Score{Source: stem, Status: resp.StatusCode, Success: false, Outcome: string(msg)})
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, string(msg))
	}

	destDir := filepath.Join(outDir, stem)
	meta, err := unpackOutcome(resp.Body, destDir)
	if err != nil {
		return fmt.Errorf("unpack outcome: %w", err)
	}

	score := scorecard.Score{
		Source:  stem,
		Outcome: string(meta.Status),
		PDF:     meta.PDFFile,
		Status:  http.StatusOK,
		Success: meta.Status == outcome.StatusSuccess,
	}
	return db.UpsertScore(ctx, score)
}

// unpackOutcome extracts a gzipped-tar outcome archive (the format written
// by internal/outcome.Pack) into destDir and returns its parsed metadata.
func unpackOutcome(r io.Reader, destDir string) (*outcome.Metadata, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	var meta *outcome.Metadata
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(hdr.Name, "outcome-") && strings.HasSuffix(hdr.Name, ".json") {
			var m outcome.Metadata
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("parse %s: %w", hdr.Name, err)
			}
			meta = &m
		}
		dest, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, err
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("outcome archive had no outcome-*.json entry")
	}
	return meta, nil
}

// safeJoin mirrors internal/archive's zip-slip guard: an outcome archive's
// own entry names are service-controlled, but a malicious or buggy service
// response shouldn't be able to write outside destDir.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(name))
	target := filepath.Join(destDir, clean)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
		return "", fmt.Errorf("compile-submissions: entry %q escapes destination", name)
	}
	return target, nil
}
