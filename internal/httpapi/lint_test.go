package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleLintMissingUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/lint", handleLint(d))

	req := httptest.NewRequest(http.MethodPost, "/lint", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLintNoTexFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := testDeps()

	r := gin.New()
	r.POST("/lint", handleLint(d))

	zipBody := zipUpload(t, map[string]string{"readme.txt": "no tex here"})
	req := multipartZipRequest(t, "/lint", "incoming", zipBody.Bytes())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestParseChktexOutput(t *testing.T) {
	out := "main.tex:12:3:Warning:24:Delete this space.\nmain.tex:5:1:Error:1:Command terminated with space.\n"
	warnings := parseChktexOutput(out, "main.tex")
	assert.Len(t, warnings, 2)
	assert.Equal(t, 12, warnings[0].Line)
	assert.Equal(t, "warning", warnings[0].Severity)
	assert.Equal(t, "error", warnings[1].Severity)
}
