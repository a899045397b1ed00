package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/polyeditor/polyeditor/backend-go/internal/asset"
	"github.com/polyeditor/polyeditor/backend-go/internal/auth"
	"github.com/polyeditor/polyeditor/backend-go/internal/collab"
	"github.com/polyeditor/polyeditor/backend-go/internal/config"
	"github.com/polyeditor/polyeditor/backend-go/internal/level"
	mw "github.com/polyeditor/polyeditor/backend-go/internal/middleware"
	"github.com/polyeditor/polyeditor/backend-go/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	converter := level.NewExecConverter(cfg.ConverterPath)
	checkCtx, checkCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := level.Check(checkCtx, converter); err != nil {
		// Levels that already have a json can still be opened.
		slog.Warn("level converter unavailable", "path", cfg.ConverterPath, "error", err)
	}
	checkCancel()
	levels := level.NewStore(cfg.LevelDir, converter)

	// Snapshots are optional
	var (
		snapshotReader level.SnapshotReader
		snapshotWriter collab.SnapshotWriter
	)
	if cfg.DatabaseURL != "" {
		pool, err := snapshot.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		snapshots := snapshot.NewStore(pool)
		if err := snapshots.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		snapshotReader, snapshotWriter = snapshots, snapshots
	} else {
		slog.Info("DATABASE_URL not set, snapshots disabled")
	}

	authService := auth.NewService(cfg.SessionSecret)
	authHandler := auth.NewHandler(authService)

	hub := collab.NewHub()
	go hub.Run()

	sessionHandler := collab.NewHandler(hub, levels, snapshotWriter, authService, cfg.EditorOptions(), mw.OriginHosts(cfg.Origins()))
	levelHandler := level.NewHandler(levels, snapshotReader)
	assetHandler := asset.NewHandler(hub)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// CORS preflight for every route; the CORS middleware answers it
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Levels on disk
	r.HandleFunc("/levels", levelHandler.List).Methods("GET")
	r.HandleFunc("/levels/{name}", levelHandler.Get).Methods("GET")
	r.HandleFunc("/levels/{name}/snapshots", levelHandler.Snapshots).Methods("GET")
	r.HandleFunc("/levels/{name}/snapshots/latest", levelHandler.LatestSnapshot).Methods("GET")

	// Sessions (opening one returns its token)
	r.HandleFunc("/sessions", sessionHandler.CreateSession).Methods("POST")
	r.HandleFunc("/sessions", sessionHandler.Sessions).Methods("GET")

	// Session routes, token required
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.SessionMiddleware)

	api.HandleFunc("/sessions/{sessionId}", sessionHandler.CloseSession).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/token", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/layout", sessionHandler.Layout).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/save", sessionHandler.Save).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}/shapes/{index}/mask", assetHandler.MaskInfo).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/shapes/{index}/mask.png", assetHandler.Mask).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{sessionId}", sessionHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first so websocket handlers return
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "levels", cfg.LevelDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
