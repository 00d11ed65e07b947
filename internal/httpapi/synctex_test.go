package httpapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleSynctexLookupMissingFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/synctex/lookup", handleSynctexLookup(d))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	assert.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/synctex/lookup", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSynctexLookupMissingFileLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/synctex/lookup", handleSynctexLookup(d))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	pdfPart, err := mw.CreateFormFile("pdf", "doc.pdf")
	assert.NoError(t, err)
	_, _ = pdfPart.Write([]byte("%PDF-1.4"))
	syncPart, err := mw.CreateFormFile("synctex", "doc.synctex.gz")
	assert.NoError(t, err)
	_, _ = syncPart.Write([]byte{0x1f, 0x8b})
	assert.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/synctex/lookup", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file and line are required")
}
