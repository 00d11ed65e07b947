package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestRequireBearerAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ver := &jwtVerifier{secret: []byte("topsecret")}

	r := gin.New()
	r.Use(RequireBearer(ver))
	r.GET("/secure", func(c *gin.Context) {
		claims, _ := c.Get("claims")
		cm := claims.(map[string]interface{})
		c.JSON(http.StatusOK, gin.H{"sub": cm["sub"]})
	})

	token := signToken(t, "topsecret", "user-1")
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireBearerRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ver := &jwtVerifier{secret: []byte("topsecret")}

	r := gin.New()
	r.Use(RequireBearer(ver))
	r.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireBearerRejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ver := &jwtVerifier{secret: []byte("topsecret")}

	r := gin.New()
	r.Use(RequireBearer(ver))
	r.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := signToken(t, "wrongsecret", "user-1")
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
