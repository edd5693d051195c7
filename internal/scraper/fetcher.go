package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"tablescout/reviewworker/pkg/errors"
)

var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	}

	baseAccept   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	baseLanguage = "en-US,en;q=0.9,vi;q=0.8"
	baseReferer  = "https://www.tripadvisor.com"
)

// HTTPFetcher fetches pages over a shared connection pool. One fetcher is
// opened per batch run and passed by reference to every scrape; the rate
// limiter guarantees that no two requests through it are ever closer than
// the configured scrape delay, whichever goroutine issues them.
type HTTPFetcher struct {
	client     *http.Client
	noRedirect *http.Client
	limiter    *rate.Limiter
	rnd        *mathrand.Rand
}

// HTTPFetcherConfig configures the fetcher
type HTTPFetcherConfig struct {
	Delay          time.Duration
	Timeout        time.Duration
	MaxConnections int
}

// NewHTTPFetcher creates a fetcher whose redirect-following and
// non-following clients share one transport, so the connection cap applies
// to the process as a whole.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 5
	}
	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxConnections,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		noRedirect: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		rnd:     mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch issues a GET for url, decodes the body as UTF-8 and returns the
// parsed document. A 403 response is surfaced as a block-signal error;
// every other non-2xx status and transport failure is a retryable network
// error. Pagination fetches pass followRedirects=false so that a redirected
// review page is treated as a miss instead of silently landing elsewhere.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, followRedirects bool) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.NewNetwork(url, "rate limiter wait interrupted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to create request", err)
	}

	req.Header.Set("User-Agent", userAgents[f.rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", baseAccept)
	req.Header.Set("Accept-Language", baseLanguage)
	req.Header.Set("Referer", baseReferer)

	client := f.client
	if !followRedirects {
		client = f.noRedirect
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewBlocked(url, "got status 403, not trying again")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewNetwork(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to read response body", err)
	}

	utf8Body, err := decodeUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.NewParsing(url, "failed to decode body as UTF-8", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, errors.NewParsing(url, "failed to parse HTML", err)
	}
	return doc, nil
}

// decodeUTF8 converts a response body to UTF-8 based on the Content-Type
// header and the body content itself.
func decodeUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(body), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, err
	}
	return &buf, nil
}
