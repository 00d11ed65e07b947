// Package httpapi exposes the service's HTTP boundary: the conversion and
// stamping endpoints, health/readiness, metrics, and a handful of thin
// submitter-debugging endpoints layered on gin, grounded on the gogotex
// backend's router-and-handler split.
package httpapi

import (
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/submission-compile/internal/assemble"
	"github.com/gogotex/submission-compile/internal/outcome"
	"github.com/gogotex/submission-compile/internal/platform/auth"
	"github.com/gogotex/submission-compile/internal/platform/config"
	"github.com/gogotex/submission-compile/internal/platform/storage"
	"github.com/gogotex/submission-compile/internal/preflight"
	"github.com/gogotex/submission-compile/internal/scorecard"
)

// Deps bundles everything a handler needs beyond the parsed request: the
// collaborators a fake can stand in for in tests, and the configuration the
// teacher's handlers read directly off viper-backed structs.
type Deps struct {
	Config       *config.Config
	Orchestrator *preflight.Orchestrator
	Storage      storage.Store
	OutcomeStore outcome.Store
	Scorecard    *scorecard.DB // nil when no scorecard DB is configured for this process
	Merger       *assemble.Merger
	Watermarker  assemble.Watermarker
	PDFProbe     pdfIntentProber
	Verifier     auth.Verifier  // nil when AUTH_ENABLED is false
	Redis        *redis.Client  // nil unless REDIS_HOST is set; backs the distributed rate limiter
}

// pdfIntentProber matches assemble.pdfIntentProbe without importing an
// unexported interface across package boundaries.
type pdfIntentProber interface {
	IsPDFA(path string) (bool, error)
}
