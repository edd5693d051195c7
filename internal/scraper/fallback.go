package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tablescout/reviewworker/helpers"
	"tablescout/reviewworker/logger"
	"tablescout/reviewworker/pkg/errors"
)

const (
	rapidReviewsEndpoint = "/restaurant_reviews_v2"
	rapidDateLayout      = "2006-01-02"
	rapidDateFormat      = "January 02, 2006"
)

// RapidProvider is the paid-API fallback. It produces normalized review
// records straight from a venue's public URL, bypassing HTML parsing.
type RapidProvider struct {
	client *resty.Client
	log    *logger.Logger
}

// rapidPayload is the provider's response envelope. A missing or empty data
// field is a valid "no reviews" answer, not an error.
type rapidPayload struct {
	Data []rapidReview `json:"data"`
}

// rapidReview is one review in the provider's shape
type rapidReview struct {
	Title        string      `json:"title"`
	Text         string      `json:"text"`
	Rating       json.Number `json:"rating"`
	CreationDate string      `json:"creationDate"`
	TripInfo     struct {
		TripType string `json:"tripType"`
	} `json:"tripInfo"`
}

// NewRapidProvider creates the fallback adapter. The API key is mandatory:
// without it the fallback cannot work at all, so construction fails rather
// than every later call.
func NewRapidProvider(host, apiKey string, timeout time.Duration) (*RapidProvider, error) {
	if apiKey == "" {
		return nil, errors.NewConfiguration("rapid api key is not set", nil)
	}

	baseURL := host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("x-rapidapi-key", apiKey)
	client.SetHeader("x-rapidapi-host", strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"))
	client.SetTimeout(timeout)

	return &RapidProvider{
		client: client,
		log:    logger.ForProvider(),
	}, nil
}

// FetchReviews fetches the reviews for a venue's public URL and converts
// them into the scraper's record shape. An empty or absent data payload
// yields an empty slice.
func (p *RapidProvider) FetchReviews(ctx context.Context, url string) ([]ReviewRecord, error) {
	var payload rapidPayload

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("restaurant", url).
		SetResult(&payload).
		Get(rapidReviewsEndpoint)
	if err != nil {
		return nil, errors.NewProvider(url, "failed to fetch reviews", err)
	}
	if resp.IsError() {
		return nil, errors.NewProvider(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode()), nil)
	}

	p.log.Debug().Str("url", url).Int("count", len(payload.Data)).Msg("fetched provider reviews")
	return convertRapidReviews(payload.Data), nil
}

// convertRapidReviews maps the provider's field shape onto ReviewRecord.
// Field conversion is best-effort in the same way page extraction is: an
// unparseable rating or date degrades to its sentinel instead of dropping
// the review.
func convertRapidReviews(in []rapidReview) []ReviewRecord {
	out := make([]ReviewRecord, 0, len(in))
	for _, r := range in {
		rating := RatingSentinel
		if f, err := r.Rating.Float64(); err == nil {
			rating = f
		}

		date := ""
		if t, err := time.Parse(rapidDateLayout, r.CreationDate); err == nil {
			date = t.Format(rapidDateFormat)
		}

		out = append(out, ReviewRecord{
			Title:  helpers.NormalizeText(r.Title),
			Text:   helpers.NormalizeText(r.Text),
			Rating: rating,
			Date:   date,
			Type:   strings.ToUpper(helpers.NormalizeText(r.TripInfo.TripType)),
		})
	}
	return out
}
