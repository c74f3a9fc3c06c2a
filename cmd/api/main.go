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

	"github.com/joho/godotenv"

	"github.com/cruiselens/payments-backend/internal/api"
	"github.com/cruiselens/payments-backend/internal/api/handlers"
	"github.com/cruiselens/payments-backend/internal/auth"
	"github.com/cruiselens/payments-backend/internal/config"
	"github.com/cruiselens/payments-backend/internal/db"
	"github.com/cruiselens/payments-backend/internal/logger"
	"github.com/cruiselens/payments-backend/internal/metrics"
	"github.com/cruiselens/payments-backend/internal/payu"
	"github.com/cruiselens/payments-backend/internal/services"
	"github.com/cruiselens/payments-backend/internal/worker"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := db.OpenStore(ctx, cfg, cfg.Migrate)
	if err != nil {
		log.Error("store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	wp := worker.NewPool(4, 1024)
	defer wp.Stop()

	ids, err := services.NewTxnIDGenerator(cfg.NodeID)
	if err != nil {
		log.Error("txn ids", "err", err)
		os.Exit(1)
	}
	creds := payu.Credentials{Key: cfg.PayU.Key, Salt: cfg.PayU.Salt}
	audit := services.NewAuditor(repos.AuditLogs, wp, cfg.StoreTimeout)
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	appSvc := services.NewApplicationService(repos.Applications, repos.AuditLogs, cfg.StoreTimeout)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg: cfg,
		Payments: &handlers.PaymentsHandler{
			Initiation:     services.NewInitiationService(repos.Applications, payu.NewSigner(creds), ids, audit, cfg),
			Reconciliation: services.NewReconciliationService(repos.Applications, payu.NewVerifier(creds), audit, cfg.StoreTimeout),
			Applications:   appSvc,
			FrontendURL:    cfg.FrontendURL,
		},
		Admin: &handlers.AdminHandler{
			Admin:        services.NewAdminService(tm, cfg.AdminEmail, cfg.AdminPasswordHash),
			Applications: appSvc,
		},
		Tokens: tm,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.StoreDriver, "gateway", cfg.PayU.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
