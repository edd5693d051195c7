package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablescout/reviewworker/pkg/errors"
)

func newTestOrchestrator(fetcher Fetcher, fallback ReviewProvider, maxRetries int) *Orchestrator {
	parser := NewOverviewParser(fetcher, OverviewParserConfig{
		Selectors:  DefaultSelectors(),
		MaxReviews: 300,
	})
	o := NewOrchestrator(fetcher, parser, fallback, OrchestratorConfig{
		Selectors:  DefaultSelectors(),
		MaxRetries: maxRetries,
		Delay:      time.Millisecond,
		MaxReviews: 300,
	})
	// tests never wait out the real delay
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name           string
		state          State
		outcome        fetchOutcome
		markersPresent bool
		attempt        int
		budget         int
		want           State
	}{
		{"fetch ok", StateFetching, outcomeDocument, false, 1, 100, StateValidating},
		{"fetch transient", StateFetching, outcomeTransient, false, 1, 100, StateRetryWait},
		{"fetch blocked", StateFetching, outcomeBlocked, false, 1, 100, StateFailed},
		{"markers present", StateValidating, outcomeNone, true, 1, 100, StateParsing},
		{"markers absent", StateValidating, outcomeNone, false, 1, 100, StateRetryWait},
		{"retry within budget", StateRetryWait, outcomeNone, false, 50, 100, StateFetching},
		{"retry budget exhausted", StateRetryWait, outcomeNone, false, 100, 100, StateFailed},
		{"parse done", StateParsing, outcomeNone, false, 1, 100, StateSucceeded},
		{"succeeded is terminal", StateSucceeded, outcomeNone, false, 1, 100, StateSucceeded},
		{"failed is terminal", StateFailed, outcomeNone, false, 1, 100, StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transition(tt.state, tt.outcome, tt.markersPresent, tt.attempt, tt.budget)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScrapeLocationSuccess(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(17)
	fetcher.pages[testLocationURL+"#REVIEWS"] = reviewPageHTML(15, 0)
	fetcher.pages[pageAt(15)] = reviewPageHTML(2, 15)

	o := newTestOrchestrator(fetcher, nil, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, 17, record.ReviewCount)
	assert.Equal(t, 17, record.ReviewCountScraped)
	assert.Len(t, record.Reviews, 17)
	// 1 overview fetch + 2 review pages
	assert.Equal(t, 3, fetcher.callCount())
}

func TestScrapeLocationSoftMissRetries(t *testing.T) {
	// A page lacking both overview markers is retried without ever being
	// parsed, until the budget runs out.
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = interstitialHTML

	o := newTestOrchestrator(fetcher, nil, 5)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)

	assert.Nil(t, record)
	require.Error(t, err)
	assert.True(t, errors.IsExhausted(err))
	// every attempt fetched the overview URL, never a review page
	assert.Equal(t, 5, fetcher.callCount())
	for _, call := range fetcher.calls {
		assert.Equal(t, testLocationURL, call)
	}
}

func TestScrapeLocationTransientThenSuccess(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.errs[testLocationURL] = errors.NewNetwork(testLocationURL, "connection reset", nil)
	fetcher.pages[testLocationURL] = overviewHTML(0)

	o := newTestOrchestrator(fetcher, nil, 100)

	// simulate recovery after two failing attempts by removing the error
	var attempts int
	o.sleep = func(ctx context.Context, d time.Duration) error {
		attempts++
		if attempts == 2 {
			fetcher.mu.Lock()
			delete(fetcher.errs, testLocationURL)
			fetcher.mu.Unlock()
		}
		return nil
	}

	record, err := o.ScrapeLocation(context.Background(), testLocationURL)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 3, fetcher.callCount())
}

func TestScrapeLocationBlockedIsTerminal(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.errs[testLocationURL] = errors.NewBlocked(testLocationURL, "got status 403")

	o := newTestOrchestrator(fetcher, nil, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)

	assert.Nil(t, record)
	require.Error(t, err)
	assert.True(t, errors.IsBlocked(err))
	assert.False(t, errors.IsExhausted(err))
	// a block signal consumes no further retries
	assert.Equal(t, 1, fetcher.callCount())
}

func TestScrapeLocationBlockedDuringPagination(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(47)
	fetcher.pages[testLocationURL+"#REVIEWS"] = reviewPageHTML(15, 0)
	fetcher.errs[pageAt(15)] = errors.NewBlocked(pageAt(15), "got status 403")

	o := newTestOrchestrator(fetcher, nil, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)

	assert.Nil(t, record)
	require.Error(t, err)
	assert.True(t, errors.IsBlocked(err))
}

func TestScrapeLocationFallbackTrigger(t *testing.T) {
	// The site reports 12 reviews but the review page serves no cards:
	// the secondary provider is invoked exactly once and its result
	// replaces the empty list.
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(12)
	fetcher.pages[testLocationURL+"#REVIEWS"] = "<html><body><p>no cards</p></body></html>"

	provided := []ReviewRecord{
		{Title: "From the provider", Text: "Still tasty.", Rating: 4.0, Date: "March 03, 2024", Type: "FAMILY"},
	}
	fallback := &mockProvider{reviews: provided}

	o := newTestOrchestrator(fetcher, fallback, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, provided, record.Reviews)
	assert.Equal(t, 1, record.ReviewCountScraped)
	assert.Equal(t, 12, record.ReviewCount)
}

func TestScrapeLocationFallbackNotTriggeredOnPartial(t *testing.T) {
	// A partial scrape (some reviews found) does not trigger the fallback.
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(47)
	fetcher.pages[testLocationURL+"#REVIEWS"] = reviewPageHTML(15, 0)
	fetcher.pages[pageAt(15)] = "<html><body></body></html>"

	fallback := &mockProvider{reviews: []ReviewRecord{{Title: "unused"}}}

	o := newTestOrchestrator(fetcher, fallback, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)
	require.NoError(t, err)

	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, 15, record.ReviewCountScraped)
}

func TestScrapeLocationFallbackFailureAbsorbed(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(12)
	fetcher.pages[testLocationURL+"#REVIEWS"] = "<html><body></body></html>"

	fallback := &mockProvider{err: errors.NewProvider(testLocationURL, "upstream down", nil)}

	o := newTestOrchestrator(fetcher, fallback, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)

	// the record is still returned, with its empty review list
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 1, fallback.calls)
	assert.Empty(t, record.Reviews)
	assert.Equal(t, 0, record.ReviewCountScraped)
}

func TestScrapeLocationInvariant(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.pages[testLocationURL] = overviewHTML(47)
	fetcher.pages[testLocationURL+"#REVIEWS"] = reviewPageHTML(15, 0)
	fetcher.pages[pageAt(15)] = reviewPageHTML(15, 15)
	fetcher.pages[pageAt(30)] = reviewPageHTML(15, 30)
	fetcher.pages[pageAt(45)] = reviewPageHTML(15, 45)

	o := newTestOrchestrator(fetcher, nil, 100)
	record, err := o.ScrapeLocation(context.Background(), testLocationURL)
	require.NoError(t, err)

	assert.Equal(t, len(record.Reviews), record.ReviewCountScraped)
	assert.LessOrEqual(t, record.ReviewCountScraped, record.ReviewCount)
	assert.GreaterOrEqual(t, record.ReviewCountScraped, 0)
}

func TestScrapeLocationCancellation(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.errs[testLocationURL] = errors.NewNetwork(testLocationURL, "connection reset", nil)

	ctx, cancel := context.WithCancel(context.Background())
	o := newTestOrchestrator(fetcher, nil, 100)
	o.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	record, err := o.ScrapeLocation(ctx, testLocationURL)
	assert.Nil(t, record)
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "retry_wait", StateRetryWait.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
