package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/cache"
	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/events"
	"stockroom/internal/handler"
	"stockroom/internal/repository"
	"stockroom/internal/router"
	"stockroom/internal/seed"
	"stockroom/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting stockroom API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	txOpts := repository.TxOptions{
		LockTimeout:      cfg.Tx.LockTimeout,
		StatementTimeout: cfg.Tx.StatementTimeout,
	}
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, txOpts, logger)

	orderCache := cache.NewNopOrderCache()
	if cfg.Redis.Enabled {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, order reads will hit the database")
		}
		orderCache = cache.NewRedisOrderCache(client, cfg.Redis.OrderTTL, logger)
	}

	publisher := events.NewNopPublisher()
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize, logger)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("order events enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, orderCache, publisher, cfg.Tx.Timeout, logger)

	if cfg.Seed.Enabled {
		if err := seedCatalog(ctx, cfg, productService, logger); err != nil {
			return fmt.Errorf("failed to seed catalogue: %w", err)
		}
	}

	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	mux := router.New(productHandler, orderHandler, cfg.Server.RequestTimeout, logger)

	// Write timeout must exceed both the tx deadline and the request timeout.
	writeTimeout := cfg.Tx.Timeout + 5*time.Second
	if cfg.Server.RequestTimeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.Server.RequestTimeout + 5*time.Second
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// seedCatalog imports the configured product feeds, from S3 when enabled
// with the local file system as fallback.
func seedCatalog(ctx context.Context, cfg *config.Config, products seed.Creator, logger zerolog.Logger) error {
	fileLoader := seed.NewFileLoader(logger)

	var s3Loader seed.Loader
	if cfg.S3.Enabled {
		loader, err := seed.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for product feeds (S3 disabled)")
	}

	loader := seed.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	_, err := seed.NewImporter(loader, products, logger).Import(ctx, cfg.Seed.Files)
	return err
}
