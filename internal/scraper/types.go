package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

const (
	// PageSize is the number of reviews served per paginated request
	PageSize = 15

	// RatingSentinel stands in for a rating that could not be extracted
	RatingSentinel = -1.0

	// CoordinateSentinel stands in for coordinates that could not be extracted
	CoordinateSentinel = -1.0
)

// ReviewRecord is one guest review extracted from a review card
type ReviewRecord struct {
	User   string  `json:"user"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Rating float64 `json:"rating"`
	Date   string  `json:"review_date"`
	Type   string  `json:"review_type"`
}

// LocationRecord is the full scrape result for one venue. The schema is
// fixed-shape: fields that could not be extracted carry sentinels instead
// of being omitted, so downstream tabular sinks always see the same columns.
type LocationRecord struct {
	LocationID         string         `json:"location_id"`
	URL                string         `json:"url"`
	Tel                string         `json:"tel"`
	OpenHour           string         `json:"open_hour"`
	Address            string         `json:"address_from_url"`
	MapLink            string         `json:"google_maps_link"`
	Latitude           float64        `json:"lat"`
	Longitude          float64        `json:"long"`
	PriceRange         string         `json:"price_range"`
	Cuisine            []string       `json:"cuisine"`
	Ranking            int            `json:"ranking"`
	Rating             float64        `json:"rating"`
	ReviewCount        int            `json:"review_count"`
	ReviewCountScraped int            `json:"review_count_scraped"`
	Reviews            []ReviewRecord `json:"reviews"`
}

// Scraper is the public entry point consumed by the batch driver
type Scraper interface {
	ScrapeLocation(ctx context.Context, url string) (*LocationRecord, error)
}

// Fetcher retrieves a URL and returns the parsed, UTF-8 decoded document.
// Implementations must space out consecutive fetches by the scrape delay.
type Fetcher interface {
	Fetch(ctx context.Context, url string, followRedirects bool) (*goquery.Document, error)
}

// ReviewProvider is the secondary data provider consulted when page
// extraction under-delivers
type ReviewProvider interface {
	FetchReviews(ctx context.Context, url string) ([]ReviewRecord, error)
}

// Selectors holds the CSS selectors used to pull fields out of the markup.
// Sites shuffle generated class names regularly, so keeping these in one
// configurable block makes repairs cheap.
type Selectors struct {
	// Overview page markers: both must be present before parsing starts
	OverviewMarker string
	DetailInfo     string

	// Overview fields
	TagRow       string
	ReviewCount  string
	OverviewTab  string
	RatingValue  string
	RankingValue string
	HoursText    string
	CallLink     string

	// Review card fields
	ReviewCard   string
	ReviewUser   string
	ReviewTitle  string
	ReviewBody   string
	ReviewRating string
	ReviewDate   string
	ReviewType   string
}

// DefaultSelectors returns the selector set for the target site's current markup
func DefaultSelectors() Selectors {
	return Selectors{
		OverviewMarker: "div[data-automation='reviewsOverviewSections']",
		DetailInfo:     "div[data-test-target='restaurant-detail-info']",

		TagRow:       "div[class*='CsAqy']",
		ReviewCount:  "span[data-automation='reviewCount']",
		OverviewTab:  "div[data-automation='OVERVIEW_TAB_ELEMENT']",
		RatingValue:  "span[class*='biGQs _P fiohW uuBRH']",
		RankingValue: "div[class*='biGQs _P pZUbB hmDzD'] b",
		HoursText:    "span[data-automation='top-info-hours']",
		CallLink:     "a[aria-label='Call']",

		ReviewCard:   "div[data-automation='reviewCard']",
		ReviewUser:   "a[target*='_self']",
		ReviewTitle:  "div[data-test-target='review-title'] a",
		ReviewBody:   "div[data-test-target='review-body'] span",
		ReviewRating: "div[class*='OSBmi'] svg title",
		ReviewDate:   "div[class*='neAPm'] div[class*='biGQs _P pZUbB ncFvv osNWb']",
		ReviewType:   "div[class*='aVuQn'] span[class*='DlAxN']",
	}
}
