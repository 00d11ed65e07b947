// Package archive extracts an uploaded submission bundle (tar, tar.gz, or
// zip) into a sandbox directory. This is a thin boundary around the
// standard library's own archive/tar, archive/zip, and compress/gzip --
// not an external collaborator, since Go's stdlib already does this
// directly and correctly, unlike PDF rendering or merging.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFiles bounds how many entries Extract will unpack, guarding against a
// decompression bomb disguised as a submission bundle.
const MaxFiles = 4096

// Extract unpacks src (sniffed as zip, gzip, or plain tar) into destDir,
// which must already exist. Entries that would escape destDir via ".." are
// rejected.
func Extract(src io.Reader, destDir string) ([]string, error) {
	header := make([]byte, 262)
	n, err := io.ReadFull(src, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("archive: read header: %w", err)
	}
	header = header[:n]
	rest := io.MultiReader(strings.NewReader(string(header)), src)

	switch {
	case isZip(header):
		return extractZip(rest, destDir)
	case isGzip(header):
		gz, err := gzip.NewReader(rest)
		if err != nil {
			return nil, fmt.Errorf("archive: gzip: %w", err)
		}
		defer gz.Close()
		return extractTar(gz, destDir)
	default:
		return extractTar(rest, destDir)
	}
}

func isZip(header []byte) bool {
	return len(header) >= 4 && header[0] == 'P' && header[1] == 'K' && header[2] == 3 && header[3] == 4
}

func isGzip(header []byte) bool {
	return len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b
}

func extractTar(r io.Reader, destDir string) ([]string, error) {
	tr := tar.NewReader(r)
	var files []string
	for i := 0; ; i++ {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: tar: %w", err)
		}
		if i >= MaxFiles {
			return nil, fmt.Errorf("archive: exceeds %d entries", MaxFiles)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return nil, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return nil, err
			}
			files = append(files, filepath.ToSlash(hdr.Name))
		}
	}
	return files, nil
}

func extractZip(r io.Reader, destDir string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read zip: %w", err)
	}
	zr, err := zip.NewReader(strings.NewReader(string(data)), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: zip: %w", err)
	}
	if len(zr.File) > MaxFiles {
		return nil, fmt.Errorf("archive: exceeds %d entries", MaxFiles)
	}

	var files []string
	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = writeFile(target, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.ToSlash(f.Name))
	}
	return files, nil
}

func safeJoin(destDir, name string) (string, error) {
	if rel := filepath.Clean(filepath.FromSlash(name)); rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive: entry %q escapes destination", name)
	}
	clean := filepath.Clean("/" + filepath.FromSlash(name))
	target := filepath.Join(destDir, clean)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
		return "", fmt.Errorf("archive: entry %q escapes destination", name)
	}
	return target, nil
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}
