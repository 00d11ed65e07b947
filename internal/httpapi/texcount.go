package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WordCountStats is the word/header/caption/math breakdown texcount reports.
type WordCountStats struct {
	Words       int `json:"words"`
	Headers     int `json:"headers"`
	Captions    int `json:"captions"`
	MathInline  int `json:"math_inline"`
	MathDisplay int `json:"math_display"`
}

// WordCountResponse is the /texcount reply.
type WordCountResponse struct {
	Total   WordCountStats `json:"total"`
	Summary string         `json:"summary"`
}

var (
	wordsInTextPattern    = regexp.MustCompile(`Words in text:\s*(\d+)`)
	wordsInHeadersPattern = regexp.MustCompile(`Words in headers:\s*(\d+)`)
	wordsOutsidePattern   = regexp.MustCompile(`Words outside text.*?:\s*(\d+)`)
	mathInlinePattern     = regexp.MustCompile(`Number of math inlines:\s*(\d+)`)
	mathDisplayPattern    = regexp.MustCompile(`Number of math displayed:\s*(\d+)`)
	sumWordsPattern       = regexp.MustCompile(`Sum count:\s*(\d+)`)
)

// handleTexcount implements the supplemented POST /texcount endpoint: runs
// texcount over the uploaded bundle's main toplevel, following \input and
// \include.
func handleTexcount(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		fh, err := c.FormFile("incoming")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "incoming" file`, "request_id": requestID})
			return
		}

		dir, err := os.MkdirTemp("", "texcount-")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate temp dir", "request_id": requestID})
			return
		}
		defer os.RemoveAll(dir)

		if err := unpackUpload(fh, dir); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("archive error: %v", err), "request_id": requestID})
			return
		}

		mainFile := c.Query("toplevel")
		if mainFile == "" {
			mainFile = findMainTexFile(dir)
		}
		if mainFile == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no .tex file found in bundle", "request_id": requestID})
			return
		}

		cmd := exec.CommandContext(c.Request.Context(), "texcount", "-inc", "-sum", "-utf8", mainFile)
		cmd.Dir = dir
		output, _ := cmd.CombinedOutput()

		total := parseTexcountOutput(string(output))
		c.JSON(http.StatusOK, WordCountResponse{
			Total: total,
			Summary: fmt.Sprintf("%d words, %d headers, %d captions, %d inline math, %d display math",
				total.Words, total.Headers, total.Captions, total.MathInline, total.MathDisplay),
		})
	}
}

func findMainTexFile(dir string) string {
	var first, withDocumentclass string
	_ = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".tex") {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if first == "" {
			first = rel
		}
		if withDocumentclass == "" {
			if data, rerr := os.ReadFile(path); rerr == nil && strings.Contains(string(data), `\documentclass`) {
				withDocumentclass = rel
			}
		}
		return nil
	})
	if withDocumentclass != "" {
		return withDocumentclass
	}
	return first
}

func parseTexcountOutput(output string) WordCountStats {
	var total WordCountStats
	if m := wordsInTextPattern.FindStringSubmatch(output); m != nil {
		total.Words, _ = strconv.Atoi(m[1])
	}
	if m := wordsInHeadersPattern.FindStringSubmatch(output); m != nil {
		total.Headers, _ = strconv.Atoi(m[1])
	}
	if m := wordsOutsidePattern.FindStringSubmatch(output); m != nil {
		total.Captions, _ = strconv.Atoi(m[1])
	}
	if m := mathInlinePattern.FindStringSubmatch(output); m != nil {
		total.MathInline, _ = strconv.Atoi(m[1])
	}
	if m := mathDisplayPattern.FindStringSubmatch(output); m != nil {
		total.MathDisplay, _ = strconv.Atoi(m[1])
	}
	if m := sumWordsPattern.FindStringSubmatch(output); m != nil {
		total.Words, _ = strconv.Atoi(m[1])
	}
	return total
}
