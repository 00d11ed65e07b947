package texclass

import (
	"path/filepath"
	"strings"

	"github.com/gogotex/submission-compile/internal/model"
)

// ImageSizeMPixels reports a resolved image file's size in megapixels, and
// whether it could be measured at all (false for formats the dimension
// reader doesn't understand, e.g. PDF, or for a file it failed to open).
type ImageSizeMPixels func(relativePath string) (megapixels float64, ok bool)

// imageSizeThresholdMPixels: 600dpi on a full A4 page is about
// 8.3in x 11.7in x 600dpi x 600dpi / (1024*1024), roughly 33.34 megapixels.
const imageSizeThresholdMPixels = 34.0

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".eps": true, ".ps": true,
	".bmp": true, ".gif": true, ".tif": true, ".tiff": true,
}

// checkOversizedImages flags every image resolved somewhere in tf's subgraph
// whose decoded size exceeds imageSizeThresholdMPixels. Formats imageSize
// can't measure (PDF, or a reader miss) are silently skipped rather than
// flagged.
func checkOversizedImages(tf *model.ToplevelFile, nodes map[string]*model.ParsedTeXFile, subgraph map[string]bool, imageSize ImageSizeMPixels) {
	if imageSize == nil {
		return
	}
	seen := make(map[string]bool)
	for name := range subgraph {
		node, ok := nodes[name]
		if !ok {
			continue
		}
		for _, path := range node.ResolvedOtherFiles {
			if seen[path] {
				continue
			}
			seen[path] = true
			if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
				continue
			}
			mp, ok := imageSize(path)
			if !ok || mp <= imageSizeThresholdMPixels {
				continue
			}
			tf.Issues = append(tf.Issues, model.Issue{
				Kind:     model.IssueOversizedImage,
				Filename: path,
				Message:  "image exceeds the oversized-image threshold",
			})
		}
	}
}
