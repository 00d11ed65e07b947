package httpapi

import (
	"archive/zip"
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/gogotex/submission-compile/internal/preflight"
	"github.com/gogotex/submission-compile/internal/texresolve"
)

func zipUpload(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	body := &bytes.Buffer{}
	zw := zip.NewWriter(body)
	for name, content := range files {
		w, err := zw.Create(name)
		assert.NoError(t, err)
		_, err = w.Write([]byte(content))
		assert.NoError(t, err)
	}
	assert.NoError(t, zw.Close())
	return body
}

func multipartZipRequest(t *testing.T, path, field string, zipBytes []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, "bundle.zip")
	assert.NoError(t, err)
	_, err = part.Write(zipBytes)
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleConvertMissingUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()
	d.Orchestrator = preflight.New(texresolve.NewScriptResolver(""))

	r := gin.New()
	r.POST("/convert/", handleConvert(d))

	req := httptest.NewRequest(http.MethodPost, "/convert/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConvertEmptyBundleNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()
	d.Orchestrator = preflight.New(texresolve.NewScriptResolver(""))

	r := gin.New()
	r.POST("/convert/", handleConvert(d))

	zipBody := zipUpload(t, map[string]string{"readme.txt": "not a tex submission"})
	req := multipartZipRequest(t, "/convert/", "incoming", zipBody.Bytes())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no compilable toplevel")
}

func TestStemOf(t *testing.T) {
	assert.Equal(t, "paper", stemOf("paper.tex"))
	assert.Equal(t, "paper", stemOf("sub/dir/paper.tex"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got int
	r.GET("/q", func(c *gin.Context) {
		got = queryInt(c, "timeout", 30)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/q?timeout=90", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 90, got)

	req = httptest.NewRequest(http.MethodGet, "/q?timeout=bogus", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 30, got)
}
