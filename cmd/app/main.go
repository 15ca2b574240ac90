package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-api-console/internal/config"
	"saas-api-console/internal/domain/ports/adapter"
	payAdapters "saas-api-console/internal/infra/adapters/payment"
	pg "saas-api-console/internal/infra/db/postgres"
	"saas-api-console/internal/infra/logging"
	"saas-api-console/internal/infra/metrics"
	red "saas-api-console/internal/infra/redis"
	"saas-api-console/internal/infra/sched"
	"saas-api-console/internal/infra/web"
	"saas-api-console/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	pg.StartPoolStatsReporter(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	apiKeyRepo := pg.NewAPIKeyRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	ticketRepo := pg.NewTicketRepo(pool)
	auditRepo := pg.NewAuditLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Payment.Paystack.SecretKey == "" {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		gateway, err = payAdapters.NewPaystackGateway(cfg.Payment.Paystack.SecretKey, cfg.Payment.Paystack.BaseURL, cfg.Payment.Paystack.CallbackURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("paystack gateway init failed")
		}
	}

	// ---- Use cases ----
	audit := usecase.NewAuditRecorder(auditRepo, logger)
	flow := metrics.NewFlowRecorder()
	apiKeyUC := usecase.NewAPIKeyUseCase(apiKeyRepo, planRepo, audit, flow, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, planRepo, gateway, apiKeyUC, audit, flow, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	ticketUC := usecase.NewTicketUseCase(ticketRepo, txManager, audit, logger)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	srv := web.NewServer(paymentUC, apiKeyUC, planUC, ticketUC, audit, auth, rateLimiter, cfg.RateLimit.VerifyPerMinute, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Reconciler ----
	reconciler := sched.NewPaymentReconciler(paymentUC, paymentRepo, locker, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
