package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHandleTexcountNoTexFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/texcount", handleTexcount(d))

	zipBody := zipUpload(t, map[string]string{"readme.txt": "no tex here"})
	req := multipartZipRequest(t, "/texcount", "incoming", zipBody.Bytes())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestParseTexcountOutput(t *testing.T) {
	out := "Words in text: 120\nWords in headers: 8\nWords outside text (captions, etc.): 15\n" +
		"Number of math inlines: 3\nNumber of math displayed: 1\nSum count: 143\n"
	stats := parseTexcountOutput(out)
	assert.Equal(t, 143, stats.Words)
	assert.Equal(t, 8, stats.Headers)
	assert.Equal(t, 15, stats.Captions)
	assert.Equal(t, 3, stats.MathInline)
	assert.Equal(t, 1, stats.MathDisplay)
}

func TestFindMainTexFilePrefersDocumentclass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/chapter.tex", "\\section{intro}")
	writeFile(t, dir+"/main.tex", "\\documentclass{article}\\begin{document}\\end{document}")

	got := findMainTexFile(dir)
	assert.Equal(t, "main.tex", got)
}
