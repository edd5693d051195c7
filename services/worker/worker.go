package worker

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"tablescout/reviewworker/internal/scraper"
	"tablescout/reviewworker/logger"
	"tablescout/reviewworker/pkg/errors"
	"tablescout/reviewworker/services/cache"
	"tablescout/reviewworker/services/publisher"
)

// Worker is the batch driver: it fans a bounded pool of concurrent location
// scrapes out over the configured URL list and hands each finished record to
// the publisher. Individual scrapes stay strictly sequential internally;
// only whole locations run in parallel.
type Worker struct {
	scraper     scraper.Scraper
	publisher   publisher.Publisher
	cache       cache.CacheService
	urls        []string
	concurrency int
	interval    time.Duration
	blockWindow time.Duration
	log         *logger.Logger
}

// Config configures the worker
type Config struct {
	URLs        []string
	Concurrency int
	// Interval between batch runs; 0 means run once and return
	Interval    time.Duration
	BlockWindow time.Duration
}

// NewWorker creates a new worker
func NewWorker(s scraper.Scraper, pub publisher.Publisher, cacheSvc cache.CacheService, cfg Config) *Worker {
	return &Worker{
		scraper:     s,
		publisher:   pub,
		cache:       cacheSvc,
		urls:        cfg.URLs,
		concurrency: cfg.Concurrency,
		interval:    cfg.Interval,
		blockWindow: cfg.BlockWindow,
		log:         logger.ForWorker(),
	}
}

// Start runs batches until the context ends. With a zero interval one batch
// runs and Start returns.
func (w *Worker) Start(ctx context.Context) error {
	for {
		start := time.Now()
		w.runBatch(ctx)
		w.log.Info().Dur("elapsed", time.Since(start)).Msg("batch finished")

		if err := w.publisher.Trim(); err != nil {
			w.log.Error().Err(err).Msg("failed to trim sink backlog")
		}

		if w.interval == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// runBatch scrapes every configured URL with bounded concurrency. Failures
// are per-URL: one failed location never stops the batch, but a block signal
// marks the host so its remaining URLs are skipped for the block window.
func (w *Worker) runBatch(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, locationURL := range w.urls {
		locationURL := locationURL
		g.Go(func() error {
			w.scrapeAndPublish(ctx, locationURL)
			return nil
		})
	}
	g.Wait()
}

// scrapeAndPublish runs one location end to end
func (w *Worker) scrapeAndPublish(ctx context.Context, locationURL string) {
	host := hostOf(locationURL)
	if w.hostBlocked(host) {
		w.log.Warn().Str("url", locationURL).Str("host", host).Msg("host is marked blocked, skipping")
		return
	}

	record, err := w.scraper.ScrapeLocation(ctx, locationURL)
	if err != nil {
		if errors.IsBlocked(err) && w.cache != nil && host != "" {
			if cacheErr := w.cache.Set(cache.BlockKey(host), []byte(locationURL), w.blockWindow); cacheErr != nil {
				w.log.Error().Err(cacheErr).Str("host", host).Msg("failed to set block marker")
			}
		}
		w.log.Error().Err(err).Str("url", locationURL).Msg("scrape failed")
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		w.log.Error().Err(err).Str("url", locationURL).Msg("failed to marshal record")
		return
	}

	key := record.LocationID
	if key == "" {
		key = locationURL
	}
	if err := w.publisher.Publish(key, data); err != nil {
		w.log.Error().Err(err).Str("url", locationURL).Msg("failed to publish record")
		return
	}

	w.log.Info().
		Str("url", locationURL).
		Str("location_id", record.LocationID).
		Int("reviews", record.ReviewCountScraped).
		Msg("published location record")
}

// hostBlocked reports whether a block marker exists for host
func (w *Worker) hostBlocked(host string) bool {
	if w.cache == nil || host == "" {
		return false
	}
	_, err := w.cache.Get(cache.BlockKey(host))
	return err == nil
}

// hostOf returns the host part of a URL, "" when it cannot be parsed
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
