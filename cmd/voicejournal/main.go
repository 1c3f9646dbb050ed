package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calmloop/voicejournal/internal/analyzer"
	"github.com/calmloop/voicejournal/internal/insight"
	"github.com/calmloop/voicejournal/internal/session"
	"github.com/calmloop/voicejournal/internal/ws"
)

var errMissingProsodyKey = errors.New("ANALYZER=remote requires PROSODY_API_KEY")

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	if err := os.MkdirAll(cfg.audioDir, 0o755); err != nil {
		slog.Error("create audio dir", "dir", cfg.audioDir, "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("open store", "backend", cfg.storeBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	anlz, err := buildAnalyzer(cfg)
	if err != nil {
		slog.Error("build analyzer", "kind", cfg.analyzerKind, "error", err)
		os.Exit(1)
	}

	var narrator insight.Narrator
	if os.Getenv("OPENAI_API_KEY") != "" {
		narrator = insight.NewAgentNarrator(cfg.narratorModel, cfg.narratorMaxTokens)
		slog.Info("narrator enabled", "model", cfg.narratorModel)
	}
	insights := insight.NewGenerator(narrator)

	svc := session.NewService(store, anlz, insights, cfg.audioDir)
	wsHandler := ws.NewHandler(svc, cfg.maxConcurrentLive)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{svc: svc, wsHandler: wsHandler})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("voicejournal starting", "addr", addr, "store", cfg.storeBackend, "analyzer", anlz.Name())

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("voicejournal stopped")
}

func openStore(cfg config) (session.Store, func(), error) {
	if cfg.storeBackend == "postgres" {
		pg, err := session.OpenPG(cfg.postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}
	return session.NewMemoryStore(), func() {}, nil
}

func buildAnalyzer(cfg config) (session.Analyzer, error) {
	if cfg.analyzerKind == "remote" {
		if cfg.prosodyAPIKey == "" {
			return nil, errMissingProsodyKey
		}
		provider := analyzer.NewProsodyClient(cfg.prosodyBaseURL, cfg.prosodyAPIKey, cfg.prosodyPool)
		return analyzer.NewRemoteAnalyzer(provider), nil
	}
	asr := analyzer.NewASRClient(cfg.asrURL, cfg.asrPoolSize)
	scorer := analyzer.NewTextScoreClient(cfg.textScoreURL, cfg.asrPoolSize)
	return analyzer.NewLocalAnalyzer(asr, scorer), nil
}
