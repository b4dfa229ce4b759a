package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/creditojus/creditojus/internal/api/http"
	appOffer "github.com/creditojus/creditojus/internal/application/offer"
	appTransaction "github.com/creditojus/creditojus/internal/application/transaction"
	"github.com/creditojus/creditojus/internal/config"
	"github.com/creditojus/creditojus/internal/domain/event"
	"github.com/creditojus/creditojus/internal/infrastructure/authclient"
	"github.com/creditojus/creditojus/internal/infrastructure/broker"
	"github.com/creditojus/creditojus/internal/infrastructure/filestore"
	"github.com/creditojus/creditojus/internal/infrastructure/postgres"
	"github.com/creditojus/creditojus/internal/infrastructure/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	if cfg.TracingEnabled {
		tp, err := tracing.Init(cfg.ServiceName, cfg.JaegerEndpoint)
		if err != nil {
			logger.Fatal().Err(err).Msg("tracing init failed")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				logger.Warn().Err(err).Msg("tracing shutdown failed")
			}
		}()
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connection failed")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	st := postgres.NewStore(pool)

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		publisher = broker.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer publisher.Close()

	files, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload dir init failed")
	}

	verifier := authclient.New(cfg.AuthVerifyURL, cfg.AuthTimeout)

	offerSvc := appOffer.NewService(st, publisher, logger)
	transactionSvc := appTransaction.NewService(st, publisher, logger)

	apiServer := httpapi.NewServer(offerSvc, transactionSvc, verifier, files, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
