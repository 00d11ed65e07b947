package preflight

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var boundingBoxRe = regexp.MustCompile(`(?i)^%%BoundingBox:\s*(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)`)

// imageSizeMPixels decodes relativePath (resolved against sandboxRoot) just
// far enough to learn its pixel dimensions, returning the size in
// megapixels. PNG/JPEG/GIF go through the standard decoders registered by
// the blank imports above; EPS/PS carry no raster header, so their size
// comes from a %%BoundingBox comment (in points, approximated as pixels)
// instead. PDF and any other format return ok=false.
func imageSizeMPixels(sandboxRoot, relativePath string) (float64, bool) {
	full := filepath.Join(sandboxRoot, relativePath)
	ext := strings.ToLower(filepath.Ext(relativePath))

	switch ext {
	case ".eps", ".ps":
		return boundingBoxMPixels(full)
	case ".pdf":
		return 0, false
	}

	f, err := os.Open(full)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, false
	}
	return float64(cfg.Width) * float64(cfg.Height) / 1_000_000, true
}

// boundingBoxMPixels scans the first 64 lines of an EPS/PS file for a
// %%BoundingBox comment, the only dimension hint those formats carry.
func boundingBoxMPixels(path string) (float64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < 64 && scanner.Scan(); i++ {
		m := boundingBoxRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		llx, _ := strconv.Atoi(m[1])
		lly, _ := strconv.Atoi(m[2])
		urx, _ := strconv.Atoi(m[3])
		ury, _ := strconv.Atoi(m[4])
		width := urx - llx
		height := ury - lly
		if width <= 0 || height <= 0 {
			return 0, false
		}
		return float64(width) * float64(height) / 1_000_000, true
	}
	return 0, false
}
