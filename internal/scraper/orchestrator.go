package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tablescout/reviewworker/logger"
	"tablescout/reviewworker/pkg/errors"
	"tablescout/reviewworker/services/metrics"
)

// State is one step of the scrape lifecycle
type State int

const (
	// StateFetching is issuing the overview GET
	StateFetching State = iota
	// StateValidating is checking the fetched document for the overview markers
	StateValidating
	// StateParsing is extracting the record from a validated document
	StateParsing
	// StateRetryWait is the mandatory delay before the next attempt
	StateRetryWait
	// StateSucceeded is terminal success
	StateSucceeded
	// StateFailed is terminal failure after the retry budget ran out
	StateFailed
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateValidating:
		return "validating"
	case StateParsing:
		return "parsing"
	case StateRetryWait:
		return "retry_wait"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// fetchOutcome classifies what one fetch attempt produced
type fetchOutcome int

const (
	// outcomeDocument means a document came back and can be validated
	outcomeDocument fetchOutcome = iota
	// outcomeTransient means a retryable transport failure
	outcomeTransient
	// outcomeBlocked means the site sent a block signal
	outcomeBlocked
	// outcomeNone is used for states that don't consume a fetch outcome
	outcomeNone
)

// transition is the pure state-transition function of the scrape loop,
// decoupled from all I/O. markersPresent only matters in StateValidating;
// attempt and budget only matter in StateRetryWait.
func transition(state State, outcome fetchOutcome, markersPresent bool, attempt, budget int) State {
	switch state {
	case StateFetching:
		switch outcome {
		case outcomeBlocked:
			return StateFailed
		case outcomeTransient:
			return StateRetryWait
		default:
			return StateValidating
		}
	case StateValidating:
		if markersPresent {
			return StateParsing
		}
		// Soft miss: the site served an interstitial or incomplete page
		return StateRetryWait
	case StateRetryWait:
		if attempt >= budget {
			return StateFailed
		}
		return StateFetching
	case StateParsing:
		return StateSucceeded
	default:
		return state
	}
}

// Orchestrator drives the bounded-retry fetch loop for one location and
// reconciles the scraped review count against the reported one.
type Orchestrator struct {
	fetcher    Fetcher
	parser     *OverviewParser
	fallback   ReviewProvider
	selectors  Selectors
	maxRetries int
	delay      time.Duration
	maxReviews int
	sleep      func(ctx context.Context, d time.Duration) error
}

// OrchestratorConfig configures the orchestrator
type OrchestratorConfig struct {
	Selectors  Selectors
	MaxRetries int
	Delay      time.Duration
	MaxReviews int
}

// NewOrchestrator creates an orchestrator. fallback may be nil, in which
// case reconciliation shortfalls leave the empty review list in place.
func NewOrchestrator(fetcher Fetcher, parser *OverviewParser, fallback ReviewProvider, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		parser:     parser,
		fallback:   fallback,
		selectors:  cfg.Selectors,
		maxRetries: cfg.MaxRetries,
		delay:      cfg.Delay,
		maxReviews: cfg.MaxReviews,
		sleep:      sleepContext,
	}
}

// ScrapeLocation fetches the overview page under the bounded retry budget,
// parses it, and returns the best-effort record. It fails terminally only
// on a block signal or once the budget is exhausted; it never returns a
// partially-built record alongside an error, and never a nil record without
// one.
func (o *Orchestrator) ScrapeLocation(ctx context.Context, url string) (*LocationRecord, error) {
	log := logger.ForScraper(url)
	start := time.Now()
	defer func() {
		metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	}()

	state := StateFetching
	attempt := 0
	var doc *goquery.Document
	var record *LocationRecord

	for {
		switch state {
		case StateFetching:
			attempt++
			log.Info().Int("attempt", attempt).Int("budget", o.maxRetries).Msg("fetching overview page")

			var err error
			doc, err = o.fetcher.Fetch(ctx, url, true)
			switch {
			case err == nil:
				metrics.FetchAttempts.WithLabelValues("ok").Inc()
				state = transition(state, outcomeDocument, false, attempt, o.maxRetries)
			case errors.IsBlocked(err):
				metrics.FetchAttempts.WithLabelValues("blocked").Inc()
				log.Error().Err(err).Msg("block signal received, giving up")
				return nil, err
			default:
				if ctx.Err() != nil {
					return nil, errors.NewNetwork(url, "scrape canceled", ctx.Err())
				}
				metrics.FetchAttempts.WithLabelValues("transient").Inc()
				log.Warn().Err(err).Msg("fetch attempt failed")
				state = transition(state, outcomeTransient, false, attempt, o.maxRetries)
			}

		case StateValidating:
			present := o.hasOverviewMarkers(doc)
			if !present {
				metrics.FetchAttempts.WithLabelValues("soft_miss").Inc()
				log.Info().Msg("overview markers absent, retrying")
			}
			state = transition(state, outcomeNone, present, attempt, o.maxRetries)

		case StateRetryWait:
			if err := o.sleep(ctx, o.delay); err != nil {
				return nil, errors.NewNetwork(url, "retry wait interrupted", err)
			}
			state = transition(state, outcomeNone, false, attempt, o.maxRetries)

		case StateParsing:
			parsed, err := o.parser.ParseOverview(ctx, url, doc)
			if err != nil {
				// only a block signal escapes the parser
				return nil, err
			}
			record = parsed
			state = transition(state, outcomeNone, false, attempt, o.maxRetries)

		case StateSucceeded:
			o.reconcile(ctx, log, record)
			log.Info().
				Int("review_count", record.ReviewCount).
				Int("review_count_scraped", record.ReviewCountScraped).
				Msg("scrape succeeded")
			return record, nil

		case StateFailed:
			return nil, errors.NewExhausted(url, attempt)
		}
	}
}

// hasOverviewMarkers reports whether the document carries both the reviews
// overview section and the venue detail block. A page missing either is an
// interstitial and gets retried as a soft miss.
func (o *Orchestrator) hasOverviewMarkers(doc *goquery.Document) bool {
	return doc.Find(o.selectors.OverviewMarker).Length() > 0 &&
		doc.Find(o.selectors.DetailInfo).Length() > 0
}

// reconcile patches the record through the secondary provider when page
// extraction found no reviews despite the site reporting some. The trigger
// threshold is exactly scraped == 0 && reported > 0. A failing fallback is
// absorbed: the record keeps its empty review list.
func (o *Orchestrator) reconcile(ctx context.Context, log *logger.Logger, record *LocationRecord) {
	if record.ReviewCountScraped != 0 || record.ReviewCount <= 0 || o.fallback == nil {
		return
	}

	log.Warn().
		Int("review_count", record.ReviewCount).
		Msg("no reviews scraped despite reported count, invoking secondary provider")

	reviews, err := o.fallback.FetchReviews(ctx, record.URL)
	if err != nil {
		metrics.FallbackInvocations.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("secondary provider failed, keeping empty review list")
		return
	}
	metrics.FallbackInvocations.WithLabelValues("ok").Inc()

	if o.maxReviews > 0 && len(reviews) > o.maxReviews {
		reviews = reviews[:o.maxReviews]
	}
	record.Reviews = reviews
	record.ReviewCountScraped = len(reviews)
}

// sleepContext sleeps for d unless ctx ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
