// Package main is the HTTP entrypoint for the submission-compile service:
// it loads configuration, wires every collaborator the handlers in
// internal/httpapi depend on, and serves the gin router, the same shape the
// gogotex backend's own main.go follows (config -> early Redis connect ->
// router -> conditional auth/rate-limit middleware -> listen).
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/gogotex/submission-compile/internal/assemble"
	"github.com/gogotex/submission-compile/internal/httpapi"
	"github.com/gogotex/submission-compile/internal/outcome"
	"github.com/gogotex/submission-compile/internal/platform/auth"
	"github.com/gogotex/submission-compile/internal/platform/config"
	"github.com/gogotex/submission-compile/internal/platform/logger"
	"github.com/gogotex/submission-compile/internal/platform/storage"
	"github.com/gogotex/submission-compile/internal/preflight"
	"github.com/gogotex/submission-compile/internal/scorecard"
	"github.com/gogotex/submission-compile/internal/texresolve"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Infof("starting submission-compile server")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: storage=%s redis=%v scorecard=%s", cfg.Storage.Backend, cfg.Redis.Host != "", cfg.Scorecard.DBPath)

	ctx := context.Background()

	// Connect to Redis early so the rate limiter can use it when configured,
	// mirroring the teacher's "connect before building the router" ordering.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("failed to initialize storage backend %q: %v", cfg.Storage.Backend, err)
	}

	outcomeStore := outcome.NewStore(cfg.Outcome.MongoURI, cfg.Outcome.Database)
	if cfg.Outcome.MongoURI == "" {
		logger.Warnf("OUTCOME_MONGODB_URI not set, outcome metadata will not survive a restart")
	}

	var scorecardDB *scorecard.DB
	if cfg.Scorecard.DBPath != "" {
		db, err := scorecard.Open(cfg.Scorecard.DBPath)
		if err != nil {
			logger.Warnf("failed to open scorecard database at %s: %v", cfg.Scorecard.DBPath, err)
		} else {
			scorecardDB = db
			defer scorecardDB.Close()
		}
	}

	var verifier auth.Verifier
	if cfg.Auth.Enabled {
		v, err := auth.NewVerifier(ctx, cfg.Auth)
		if err != nil {
			logger.Warnf("failed to initialize auth verifier: %v", err)
		} else {
			verifier = v
		}
	}

	deps := &httpapi.Deps{
		Config:       cfg,
		Orchestrator: preflight.New(texresolve.NewScriptResolver(cfg.Compile.ResolverScriptPath)),
		Storage:      store,
		OutcomeStore: outcomeStore,
		Scorecard:    scorecardDB,
		Merger:       assemble.NewMerger(),
		Watermarker:  assemble.ExternalToolWatermarker{Command: "pdfcpu"},
		PDFProbe:     assemble.OutputIntentProbe{},
		Verifier:     verifier,
		Redis:        redisClient,
	}

	r := httpapi.NewRouter(deps)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
