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

// LintWarning is one chktex diagnostic against an uploaded source file.
type LintWarning struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

// LintResponse is the /lint reply: every warning chktex raised across the
// bundle's .tex files.
type LintResponse struct {
	Warnings   []LintWarning `json:"warnings"`
	ErrorCount int           `json:"error_count"`
	WarnCount  int           `json:"warn_count"`
}

var chktexOutputPattern = regexp.MustCompile(`^([^:]+):(\d+):(\d+):(\w+):(\d+):(.+)$`)

// handleLint implements the supplemented POST /lint endpoint: unpacks the
// uploaded bundle and runs chktex over every .tex file in it.
func handleLint(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		fh, err := c.FormFile("incoming")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "incoming" file`, "request_id": requestID})
			return
		}

		dir, err := os.MkdirTemp("", "lint-")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate temp dir", "request_id": requestID})
			return
		}
		defer os.RemoveAll(dir)

		if err := unpackUpload(fh, dir); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("archive error: %v", err), "request_id": requestID})
			return
		}

		var texFiles []string
		_ = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return err
			}
			if strings.EqualFold(filepath.Ext(path), ".tex") {
				rel, _ := filepath.Rel(dir, path)
				texFiles = append(texFiles, rel)
			}
			return nil
		})
		if len(texFiles) == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no .tex files found in bundle", "request_id": requestID})
			return
		}

		var warnings []LintWarning
		for _, rel := range texFiles {
			cmd := exec.CommandContext(c.Request.Context(), "chktex", "-q", "-v0", "-f", "%f:%l:%c:%k:%n:%m\n", rel)
			cmd.Dir = dir
			output, _ := cmd.CombinedOutput()
			warnings = append(warnings, parseChktexOutput(string(output), rel)...)
		}

		resp := LintResponse{Warnings: warnings}
		for _, w := range warnings {
			if w.Severity == "error" {
				resp.ErrorCount++
			} else {
				resp.WarnCount++
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func parseChktexOutput(output, defaultFile string) []LintWarning {
	var warnings []LintWarning
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := chktexOutputPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum, _ := strconv.Atoi(m[2])
		colNum, _ := strconv.Atoi(m[3])
		severity := "warning"
		if strings.EqualFold(m[4], "error") {
			severity = "error"
		}
		code, _ := strconv.Atoi(m[5])
		file := m[1]
		if filepath.IsAbs(file) {
			file = defaultFile
		}
		warnings = append(warnings, LintWarning{
			File: file, Line: lineNum, Column: colNum,
			Severity: severity, Code: code, Message: strings.TrimSpace(m[6]),
		})
	}
	return warnings
}
