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

func multipartFileRequest(t *testing.T, path, field, filename string, content []byte, query string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path+query, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleStampMissingText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/stamp/", handleStamp(d))

	req := multipartFileRequest(t, "/stamp/", "incoming", "doc.pdf", []byte("%PDF-1.4\n..."), "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "watermark_text is required")
}

func TestHandleStampSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()
	wm := &fakeWatermarker{}
	d.Watermarker = wm
	d.PDFProbe = fakePDFProbe{isPDFA: false}

	r := gin.New()
	r.POST("/stamp/", handleStamp(d))

	req := multipartFileRequest(t, "/stamp/", "incoming", "doc.pdf", []byte("%PDF-1.4\n..."), "?watermark_text=DRAFT")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, wm.called)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestHandleStampRejectsPDFA(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()
	wm := &fakeWatermarker{}
	d.Watermarker = wm
	d.PDFProbe = fakePDFProbe{isPDFA: true}

	r := gin.New()
	r.POST("/stamp/", handleStamp(d))

	req := multipartFileRequest(t, "/stamp/", "incoming", "doc.pdf", []byte("%PDF-1.4\n..."), "?watermark_text=DRAFT")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, wm.called)
}
