package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	pdfStagedName     = "doc.pdf"
	synctexStagedName = "doc.synctex.gz"
)

// SynctexLookupResponse is the /synctex/lookup reply: the PDF position a
// (file, line) pair maps to, per the uploaded outcome's .synctex.gz.
type SynctexLookupResponse struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

var (
	synctexPagePattern = regexp.MustCompile(`(?m)^Page:(\d+)`)
	synctexXPattern    = regexp.MustCompile(`(?m)^x:([\d.]+)`)
	synctexYPattern    = regexp.MustCompile(`(?m)^y:([\d.]+)`)
)

// handleSynctexLookup implements the supplemented POST /synctex/lookup
// endpoint: given an uploaded .synctex.gz (alongside the PDF it was
// produced for) and a (file, line) pair, shells out to the synctex CLI for
// the forward-sync lookup.
func handleSynctexLookup(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()

		pdfHeader, err := c.FormFile("pdf")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "pdf" file`, "request_id": requestID})
			return
		}
		synctexHeader, err := c.FormFile("synctex")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "synctex" file`, "request_id": requestID})
			return
		}
		file := c.PostForm("file")
		line, _ := strconv.Atoi(c.PostForm("line"))
		if file == "" || line <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file and line are required", "request_id": requestID})
			return
		}
		column, _ := strconv.Atoi(c.PostForm("column"))
		if column <= 0 {
			column = 1
		}

		dir, err := stageSynctexInputs(pdfHeader, synctexHeader)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "request_id": requestID})
			return
		}
		defer os.RemoveAll(dir)

		inputSpec := fmt.Sprintf("%d:%d:%s", line, column, file)
		cmd := exec.CommandContext(c.Request.Context(), "synctex", "view", "-i", inputSpec, "-o", pdfStagedName)
		cmd.Dir = dir
		output, _ := cmd.CombinedOutput()

		var resp SynctexLookupResponse
		if m := synctexPagePattern.FindStringSubmatch(string(output)); m != nil {
			resp.Page, _ = strconv.Atoi(m[1])
		}
		if m := synctexXPattern.FindStringSubmatch(string(output)); m != nil {
			resp.X, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := synctexYPattern.FindStringSubmatch(string(output)); m != nil {
			resp.Y, _ = strconv.ParseFloat(m[1], 64)
		}
		if resp.Page == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "synctex lookup produced no match", "request_id": requestID, "raw_output": string(output)})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func stageSynctexInputs(pdfHeader, synctexHeader *multipart.FileHeader) (string, error) {
	dir, err := os.MkdirTemp("", "synctex-")
	if err != nil {
		return "", err
	}
	if err := stageUpload(pdfHeader, filepath.Join(dir, pdfStagedName)); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := stageUpload(synctexHeader, filepath.Join(dir, synctexStagedName)); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func stageUpload(fh *multipart.FileHeader, dest string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}
