package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogotex/submission-compile/internal/platform/auth"
	"github.com/gogotex/submission-compile/internal/platform/middleware"
)

var startTime = time.Now()

// corsMiddleware mirrors the hand-rolled CORS headers the teacher's main.go
// sets in front of every route, rather than pulling in gin-contrib/cors for
// a handful of headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// NewRouter builds the gin engine for the submission-compile service: the
// conversion/stamping core, health/readiness, metrics, and the thin
// submitter-debugging endpoints.
func NewRouter(d *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	r.GET("/", handleIndex)
	r.GET("/robots.txt", handleRobots)
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/texlive/info", handleTexliveInfo(d))
	r.GET("/health", handleHealth)
	r.GET("/ready", handleReady(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	convert := r.Group("/")
	stamp := r.Group("/")
	if d.Config.Auth.Enabled && d.Verifier != nil {
		convert.Use(auth.RequireBearer(d.Verifier))
		stamp.Use(auth.RequireBearer(d.Verifier))
	}
	if d.Config.RateLimit.Enabled {
		lim := rateLimiter(d)
		convert.Use(lim)
		stamp.Use(lim)
	}
	convert.POST("/convert/", handleConvert(d))
	stamp.POST("/stamp/", handleStamp(d))

	debug := r.Group("/")
	if d.Config.RateLimit.Enabled {
		debug.Use(rateLimiter(d))
	}
	debug.POST("/texcount", handleTexcount(d))
	debug.POST("/lint", handleLint(d))
	debug.POST("/synctex/lookup", handleSynctexLookup(d))

	return r
}

// rateLimiter picks the Redis-backed limiter when the service has a live
// Redis client and RATE_LIMIT_USE_REDIS is set, else the in-process one.
func rateLimiter(d *Deps) gin.HandlerFunc {
	if d.Config.RateLimit.UseRedis && d.Redis != nil {
		window := time.Duration(d.Config.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimit(d.Redis, d.Config.RateLimit.RPS, d.Config.RateLimit.Burst, window)
	}
	return middleware.RateLimit(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst)
}

func handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "healthy")
}

func handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(
		"<html><body><h1>submission-compile</h1><p>uptime: "+time.Since(startTime).String()+"</p></body></html>"))
}

func handleRobots(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

func handleTexliveInfo(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"texlive_root":    d.Config.Compile.TexliveRoot,
			"addon_tree_root": d.Config.Compile.AddonTreeRoot,
			"max_latex_runs":  d.Config.Compile.MaxLatexRuns,
		})
	}
}

// handleReady reports whether a resolver script path is configured, a
// storage backend is present, and (when a scorecard is configured) a probe
// lookup against it succeeds, independent of the unconditional /health
// check, per the teacher's readiness-probe pattern.
func handleReady(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := map[string]bool{
			"resolver": d.Config.Compile.ResolverScriptPath != "",
			"storage":  d.Storage != nil,
		}
		if d.Scorecard != nil {
			_, err := d.Scorecard.GetScore(c.Request.Context(), "__readiness_probe__")
			deps["scorecard"] = err == nil
		}

		ready := true
		for _, ok := range deps {
			if !ok {
				ready = false
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "dependencies": deps})
	}
}
