package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"tablescout/reviewworker/pkg/errors"
)

// mockFetcher serves canned HTML per URL and records every fetch
type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, url string, followRedirects bool) (*goquery.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	html, ok := m.pages[url]
	if !ok {
		return nil, errors.NewNetwork(url, "no canned page for url", nil)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockProvider is a canned secondary review provider
type mockProvider struct {
	mu      sync.Mutex
	reviews []ReviewRecord
	err     error
	calls   int
}

func (m *mockProvider) FetchReviews(ctx context.Context, url string) ([]ReviewRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.reviews, nil
}

// reviewCardHTML builds one review card in the target site's markup
func reviewCardHTML(user, title, body, rating, date, tripType string) string {
	var b strings.Builder
	b.WriteString(`<div data-automation="reviewCard">`)
	if user != "" {
		fmt.Fprintf(&b, `<a target="_self" href="/Profile/%s">avatar</a>`, user)
	}
	if title != "" {
		fmt.Fprintf(&b, `<div data-test-target="review-title"><a href="#">%s</a></div>`, title)
	}
	if body != "" {
		fmt.Fprintf(&b, `<div data-test-target="review-body"><span>%s</span></div>`, body)
	}
	if rating != "" {
		fmt.Fprintf(&b, `<div class="OSBmi x"><svg><title>%s of 5 bubbles</title></svg></div>`, rating)
	}
	if date != "" {
		fmt.Fprintf(&b, `<div class="neAPm"><div class="biGQs _P pZUbB ncFvv osNWb">%s</div></div>`, date)
	}
	if tripType != "" {
		fmt.Fprintf(&b, `<div class="aVuQn"><span class="DlAxN">%s</span></div>`, tripType)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// reviewPageHTML wraps n generated review cards into a page
func reviewPageHTML(n int, offset int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < n; i++ {
		b.WriteString(reviewCardHTML(
			fmt.Sprintf("guest%d", offset+i),
			fmt.Sprintf("Review %d", offset+i),
			"Lovely meal.",
			"4.0",
			"Written March 3, 2024",
			"Family",
		))
	}
	b.WriteString("</body></html>")
	return b.String()
}

// overviewHTML builds a full overview document with both markers,
// embedding the given reported review count
func overviewHTML(reviewCount int) string {
	return fmt.Sprintf(`<html><body>
<div data-automation="reviewsOverviewSections"></div>
<div data-test-target="restaurant-detail-info">
	<div class="CsAqy t">$$-$$$, Asian, Vietnamese</div>
	<span data-automation="top-info-hours">11:00 AM - 10:00 PM</span>
</div>
<span data-automation="reviewCount">%d reviews</span>
<div data-automation="OVERVIEW_TAB_ELEMENT">
	<span class="biGQs _P fiohW uuBRH">4.5</span>
	<div class="biGQs _P pZUbB hmDzD"><b>#12</b> of 3,882 places</div>
</div>
<div data-automation="OVERVIEW_TAB_ELEMENT">
	<a href="https://maps.example.com/maps?daddr=12+Mac+Thi+Buoi@10.7757,106.7004">Map</a>
	<a aria-label="Call" href="tel:+84123456">+84 123 456</a>
</div>
</body></html>`, reviewCount)
}

// interstitialHTML is a page missing both overview markers
const interstitialHTML = `<html><body><div id="lithium-root">Loading...</div></body></html>`

const testLocationURL = "https://www.example-reviews.com/Restaurant_Review-g293925-d8614066-Reviews-Quan_Bui-Ho_Chi_Minh_City.html"
