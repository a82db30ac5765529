package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubenschmidt/emotion-gateway/internal/emotion"
	"github.com/hubenschmidt/emotion-gateway/internal/session"
	"github.com/hubenschmidt/emotion-gateway/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("open session store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.uploadDir, 0o755); err != nil {
		slog.Error("create upload dir", "error", err)
		os.Exit(1)
	}

	// Classifier backends
	backends := map[string]emotion.EmotionClassifier{
		"deepface": emotion.NewDeepFaceClient(cfg.deepfaceURL, cfg.classifyPoolSize),
	}
	if cfg.openaiAPIKey != "" {
		backends["openai"] = emotion.NewOpenAIVisionClient(cfg.openaiAPIKey, cfg.openaiBaseURL, cfg.openaiVisionModel)
		slog.Info("openai vision engine enabled", "model", cfg.openaiVisionModel)
	}
	router := emotion.NewClassifierRouter(backends, cfg.defaultEngine)

	agg := emotion.NewAggregator(router)
	mgr := session.NewManager(store, agg)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		mgr:       mgr,
		engines:   router.Engines(),
		uploadDir: cfg.uploadDir,
		wsHandler: ws.NewHandler(mgr, cfg.maxIngestConns),
	})

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

	slog.Info("gateway starting", "addr", addr, "engines", router.Engines(), "default_engine", cfg.defaultEngine)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}

// openStore picks the session store backend: PostgreSQL when SESSION_DB_URL
// is set, one JSON file per session otherwise.
func openStore(cfg config) (session.Store, error) {
	if cfg.sessionDBURL != "" {
		store, err := session.OpenPG(cfg.sessionDBURL)
		if err != nil {
			return nil, err
		}
		slog.Info("session store: postgresql")
		return store, nil
	}
	store, err := session.NewFileStore(cfg.storageDir)
	if err != nil {
		return nil, err
	}
	slog.Info("session store: files", "dir", cfg.storageDir)
	return store, nil
}
