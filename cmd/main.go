package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/logger/pkg/logger"
	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/cache"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/security"
	"github.com/cwrk-planet/presence-service/internal/service"
	httpx "github.com/cwrk-planet/presence-service/internal/transport/http"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- redis cache (опционально) ---
	var snapCache service.SnapshotCache
	if cfg.Redis.URL != "" {
		c, err := cache.New(ctx, cfg.Redis.URL, cfg.RedisTTL())
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer c.Close()
		snapCache = c
	}

	// --- auth ---
	pub, err := security.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("load public key: %v", err)
	}
	verifier := security.NewVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.AuthClockSkew())

	// --- repos ---
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)
	presenceRepo := postgres.NewPresenceRepository(db.Pool)
	responseRepo := postgres.NewResponseRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)

	// --- services ---
	presenceSvc := service.NewPresenceService(ledgerRepo, presenceRepo, snapCache)
	predictionSvc := service.NewPredictionService(presenceRepo, ledgerRepo, responseRepo)
	predictionSvc.SetDefaults(cfg.Prediction.DefaultSeconds, cfg.Prediction.StatusSampleMin, cfg.PredictionIdleAfter(), cfg.Prediction.IdleFactor)
	responseSvc := service.NewResponseService(responseRepo)

	// --- WS Hub, Dispatcher & Server ---
	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(hub, predictionSvc, userRepo)
	wsServer := ws.NewServer(hub, dispatcher, presenceSvc, verifier, cfg.WS.SendBuffer, cfg.WSPingInterval())

	// --- HTTP ---
	handler := httpx.NewHandler(presenceSvc, predictionSvc, responseSvc, dispatcher)
	router := httpx.NewRouter(handler, verifier, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
