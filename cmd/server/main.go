package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kupferco/lv-notas/internal/config"
	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/repository"
	"github.com/kupferco/lv-notas/internal/router"
	"github.com/kupferco/lv-notas/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NFS-e provider: real client, or the in-memory mock for development and
	// therapists still completing their municipal registration.
	var provider infra.InvoiceProvider = infra.NewNFSeClient(cfg.NFSeProviderURL, cfg.NFSeAPIKey)
	if cfg.NFSeMockMode {
		log.Warn().Msg("NFS-e mock mode enabled — invoices are simulated")
		provider = infra.NewMockInvoiceProvider()
	}
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// Worker pool for async tasks (notifications, receipts). Handlers are
	// wired here (composition root) so the pool sees all infrastructure deps.
	mailer := infra.NewMailer(cfg)
	therapistRepo := repository.NewTherapistRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	periodRepo := repository.NewBillingPeriodRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	workerHandlers := &worker.WorkerHandlers{
		Notification: worker.NewNotificationWorker(mailer, periodRepo, therapistRepo),
		Receipt:      worker.NewReceiptWorker(mailer, paymentRepo, periodRepo, patientRepo, therapistRepo, cfg.PDFStoragePath),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	// Background poller resolving invoices the municipality left "processing"
	worker.StartInvoiceStatusCron(ctx, worker.StatusCronConfig{
		InvoiceRepo: invoiceRepo,
		Provider:    provider,
		CB:          cb,
		RDB:         rdb,
	})

	r := router.New(cfg, db, rdb, provider, cb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("LV Notas billing engine listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
