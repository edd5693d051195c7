package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tablescout/reviewworker/config"
	"tablescout/reviewworker/internal/scraper"
	"tablescout/reviewworker/logger"
	"tablescout/reviewworker/services/cache"
	"tablescout/reviewworker/services/metrics"
	"tablescout/reviewworker/services/publisher"
	"tablescout/reviewworker/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if len(cfg.LocationURLs) == 0 {
		log.Fatal().Msg("LOCATION_URLS is empty, nothing to scrape")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("scrape_delay", cfg.ScrapeDelay).
		Int("max_reviews", cfg.MaxReviews).
		Int("locations", len(cfg.LocationURLs)).
		Msg("Starting review worker")

	metrics.Serve(cfg.MetricsAddr)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// One fetcher per run: the connection pool and the inter-request delay
	// are shared across every concurrent scrape.
	fetcher := scraper.NewHTTPFetcher(scraper.HTTPFetcherConfig{
		Delay:   cfg.ScrapeDelay,
		Timeout: cfg.FetchTimeout,
	})

	selectors := scraper.DefaultSelectors()
	parser := scraper.NewOverviewParser(fetcher, scraper.OverviewParserConfig{
		Selectors:  selectors,
		MaxReviews: cfg.MaxReviews,
		Dedupe:     cfg.DedupeReviews,
	})

	var fallback scraper.ReviewProvider
	if cfg.RapidAPIKey != "" {
		provider, err := scraper.NewRapidProvider(cfg.RapidAPIHost, cfg.RapidAPIKey, cfg.FetchTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create secondary provider")
		}
		fallback = provider
	} else {
		log.Warn().Msg("RAPID_API_KEY not set, review shortfall fallback disabled")
	}

	orchestrator := scraper.NewOrchestrator(fetcher, parser, fallback, scraper.OrchestratorConfig{
		Selectors:  selectors,
		MaxRetries: cfg.MaxRetries,
		Delay:      cfg.ScrapeDelay,
		MaxReviews: cfg.MaxReviews,
	})

	pub, err := newPublisher(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create publisher")
	}
	defer pub.Close()

	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	w := worker.NewWorker(orchestrator, pub, cacheService, worker.Config{
		URLs:        cfg.LocationURLs,
		Concurrency: cfg.WorkerConcurrency,
		Interval:    cfg.ScrapeInterval,
		BlockWindow: cfg.BlockWindow,
	})

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting scrape worker")
		workerDone <- w.Start(ctx)
	}()

	// Wait for shutdown signal or worker completion
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}

// newPublisher selects the sink from configuration
func newPublisher(ctx context.Context, cfg *config.Config) (publisher.Publisher, error) {
	if cfg.Sink == "redis" {
		return publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		), nil
	}
	return publisher.NewFilePublisher(cfg.OutputDir)
}
