package httpapi

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gogotex/submission-compile/internal/assemble"
	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// handleStamp implements POST /stamp/ (§6): watermark a directly-uploaded
// PDF, with watermark_text required (unlike /convert/, there is no
// configured default to silently fall back to).
func handleStamp(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		log := logger.Request(requestID)

		text := c.Query("watermark_text")
		if text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "watermark_text is required", "request_id": requestID})
			return
		}
		link := c.Query("watermark_link")

		fh, err := c.FormFile("incoming")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `missing "incoming" file`, "request_id": requestID})
			return
		}

		tmp, err := os.CreateTemp("", "stamp-*.pdf")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate temp file", "request_id": requestID})
			return
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		src, err := fh.Open()
		if err != nil {
			tmp.Close()
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload", "request_id": requestID})
			return
		}
		_, copyErr := io.Copy(tmp, src)
		src.Close()
		tmp.Close()
		if copyErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to buffer upload", "request_id": requestID})
			return
		}

		spec := assemble.WatermarkSpec{Text: text, Link: link}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d.Config.Compile.MaxTimeBudget)
		defer cancel()
		if err := assemble.ApplyWatermark(ctx, d.Watermarker, d.PDFProbe, tmpPath, spec); err != nil {
			log.Warnf("stamp rejected: %v", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "request_id": requestID})
			return
		}

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", `attachment; filename="stamped.pdf"`)
		c.File(tmpPath)
	}
}
