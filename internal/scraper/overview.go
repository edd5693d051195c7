package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tablescout/reviewworker/helpers"
	"tablescout/reviewworker/logger"
	"tablescout/reviewworker/pkg/errors"
	"tablescout/reviewworker/services/metrics"
)

var (
	// priceRangePattern matches price tiers like "$$-$$$" inside the tag row
	priceRangePattern = regexp.MustCompile(`(\$+[-\s]*\$*)`)

	// locationIDPattern matches the venue identifier segment of a canonical URL
	locationIDPattern = regexp.MustCompile(`-(d\d+)-`)

	// reviewPageMarker is the URL segment the pagination offset is spliced into
	reviewPageMarker = "-Reviews-"
)

// OverviewParser extracts venue metadata from the overview document and
// drives the paginated review fetches.
type OverviewParser struct {
	fetcher    Fetcher
	reviews    *ReviewParser
	selectors  Selectors
	maxReviews int
	dedupe     bool
	log        *logger.Logger
}

// OverviewParserConfig configures the overview parser
type OverviewParserConfig struct {
	Selectors  Selectors
	MaxReviews int
	Dedupe     bool
}

// NewOverviewParser creates an overview parser. MaxReviews caps how many
// reviews one location scrape will ever page through and must stay divisible
// by the page size.
func NewOverviewParser(fetcher Fetcher, cfg OverviewParserConfig) *OverviewParser {
	return &OverviewParser{
		fetcher:    fetcher,
		reviews:    NewReviewParser(cfg.Selectors),
		selectors:  cfg.Selectors,
		maxReviews: cfg.MaxReviews,
		dedupe:     cfg.Dedupe,
		log:        logger.ForScraper(""),
	}
}

// ParseOverview extracts every scalar field from the overview document, then
// pages through the review list. Each field falls back to its own default on
// failure so the record shape stays fixed; only the review pagination touches
// the network.
func (p *OverviewParser) ParseOverview(ctx context.Context, url string, doc *goquery.Document) (*LocationRecord, error) {
	record := &LocationRecord{
		LocationID: extractLocationID(url),
		URL:        url,
		Latitude:   CoordinateSentinel,
		Longitude:  CoordinateSentinel,
		Rating:     RatingSentinel,
		Cuisine:    []string{},
		Reviews:    []ReviewRecord{},
	}

	infoDiv := doc.Find(p.selectors.DetailInfo).First()

	tagText := strings.TrimSpace(infoDiv.Find(p.selectors.TagRow).First().Text())
	record.Cuisine = parseCuisine(tagText)
	record.PriceRange = parsePriceRange(tagText)

	record.ReviewCount = extractInt(doc.Selection, p.selectors.ReviewCount, 0)
	record.OpenHour = extractText(infoDiv, p.selectors.HoursText, "")

	// The first overview tab carries the rating summary, the last one the
	// location block with the map link and phone number.
	tabs := doc.Find(p.selectors.OverviewTab)
	if tabs.Length() > 0 {
		ratingTab := tabs.First()
		locationTab := tabs.Last()

		record.Rating = extractFloat(ratingTab, p.selectors.RatingValue, RatingSentinel)
		record.Ranking = extractInt(ratingTab, p.selectors.RankingValue, 0)

		record.MapLink = extractAttr(locationTab, "a", "href", "")
		record.Address = parseAddress(record.MapLink)
		record.Latitude, record.Longitude = parseCoordinates(record.MapLink)
		record.Tel = extractText(locationTab, p.selectors.CallLink, "")
	}

	reviews, err := p.fetchReviews(ctx, url, record.ReviewCount)
	if err != nil {
		return nil, err
	}
	record.Reviews = reviews
	record.ReviewCountScraped = len(reviews)

	return record, nil
}

// fetchReviews pages through the review list until the required count is
// reached or a page comes back without review cards. Pages are fetched
// strictly sequentially: the fetcher's delay must sit between every pair of
// consecutive requests, so parallelizing here would defeat it. A blocked
// fetch propagates; any other fetch failure ends pagination with whatever
// was collected so far.
func (p *OverviewParser) fetchReviews(ctx context.Context, url string, reported int) ([]ReviewRecord, error) {
	reviews := []ReviewRecord{}
	if reported <= 0 {
		p.log.Debug().Str("url", url).Msg("no reviews to parse, skipping")
		return reviews, nil
	}

	required := reported
	if required > p.maxReviews {
		required = p.maxReviews
	}

	for start := 0; start < required; start += PageSize {
		pageURL := reviewPageURL(url, start)
		p.log.Debug().Str("page_url", pageURL).Msg("parsing review page")

		doc, err := p.fetcher.Fetch(ctx, pageURL, false)
		if err != nil {
			if errors.IsBlocked(err) {
				return nil, err
			}
			p.log.Warn().Err(err).Str("page_url", pageURL).Msg("review page fetch failed, stopping pagination")
			break
		}
		metrics.ReviewPagesFetched.Inc()

		page := p.reviews.ParseReviewsPage(doc)
		if len(page) == 0 {
			p.log.Warn().Str("page_url", pageURL).Msg("no review cards found, stopping pagination")
			break
		}

		reviews = append(reviews, page...)
		if len(reviews) >= required {
			break
		}
	}

	if p.dedupe {
		reviews = DedupeReviews(reviews)
	}

	// A page can serve more cards than the reported total claims; trim so
	// the scraped count never exceeds min(reported, maxReviews).
	if len(reviews) > required {
		reviews = reviews[:required]
	}

	return reviews, nil
}

// reviewPageURL builds the URL of a paginated review page by splicing the
// offset marker into the canonical URL. Offset 0 is the canonical page
// itself, addressed at its reviews anchor.
func reviewPageURL(url string, start int) string {
	if !strings.HasSuffix(url, "#REVIEWS") {
		url += "#REVIEWS"
	}
	if start == 0 {
		return url
	}
	return strings.Replace(url, reviewPageMarker, fmt.Sprintf("-Reviews-or%d-", start), 1)
}

// extractLocationID pulls the venue identifier out of a canonical URL,
// "" when the URL carries none.
func extractLocationID(url string) string {
	match := locationIDPattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1]
}

// parseCuisine extracts the cuisine tags from the tag row text. The row
// reads like "$$-$$$, Asian, Vietnamese"; everything after the price block's
// last "$" and the first comma is a tag.
func parseCuisine(tagText string) []string {
	if tagText == "" {
		return []string{}
	}
	afterPrice := helpers.LastSplitPart(tagText, "$")
	parts := strings.Split(afterPrice, ", ")
	if len(parts) <= 1 {
		return []string{}
	}
	cuisine := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part = strings.TrimSpace(part); part != "" {
			cuisine = append(cuisine, helpers.NormalizeText(part))
		}
	}
	return cuisine
}

// parsePriceRange extracts the price tier ("$", "$$-$$$", ...) from the tag
// row text, "" when none is present.
func parsePriceRange(tagText string) string {
	match := priceRangePattern.FindString(tagText)
	return strings.TrimSpace(match)
}

// parseAddress derives the address string embedded in a map link's query
// ("...?q=Some+Address@10.77,106.69"), "" when the link has none.
func parseAddress(mapLink string) string {
	if mapLink == "" {
		return ""
	}
	beforeCoords := strings.Split(mapLink, "@")[0]
	return helpers.NormalizeText(helpers.LastSplitPart(beforeCoords, "="))
}

// parseCoordinates parses the "@lat,long" segment of a map link. Both values
// degrade to the coordinate sentinel when the segment is absent or
// malformed; a partial pair is rejected as a whole so the two fields stay
// consistent.
func parseCoordinates(mapLink string) (float64, float64) {
	parts := strings.Split(mapLink, "@")
	if len(parts) < 2 {
		return CoordinateSentinel, CoordinateSentinel
	}
	coords := strings.Split(parts[1], ",")
	if len(coords) < 2 {
		return CoordinateSentinel, CoordinateSentinel
	}
	lat, latErr := helpers.NormalizeFloat(coords[0])
	long, longErr := helpers.NormalizeFloat(coords[1])
	if latErr != nil || longErr != nil {
		return CoordinateSentinel, CoordinateSentinel
	}
	return lat, long
}
