package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tablescout/reviewworker/helpers"
)

// readMoreSuffix is boilerplate the site appends to truncated review bodies
const readMoreSuffix = "Read more"

// ReviewParser extracts review records from one fetched page
type ReviewParser struct {
	selectors Selectors
}

// NewReviewParser creates a review parser with the given selectors
func NewReviewParser(selectors Selectors) *ReviewParser {
	return &ReviewParser{selectors: selectors}
}

// ParseReviewsPage extracts every review card from the document, in document
// order. Field extraction is isolated per field: a missing or malformed
// element degrades that field to its sentinel ("" for text, -1 for rating)
// and never aborts the sibling fields or the remaining cards. The parser is
// a pure function of the document; parsing the same document twice yields
// identical records.
func (p *ReviewParser) ParseReviewsPage(doc *goquery.Document) []ReviewRecord {
	var reviews []ReviewRecord

	doc.Find(p.selectors.ReviewCard).Each(func(_ int, card *goquery.Selection) {
		reviews = append(reviews, p.parseCard(card))
	})

	return reviews
}

// parseCard extracts the six review fields from one review card
func (p *ReviewParser) parseCard(card *goquery.Selection) ReviewRecord {
	user := ""
	if href := extractAttr(card, p.selectors.ReviewUser, "href", ""); href != "" {
		user = helpers.NormalizeText(helpers.LastSplitPart(href, "/"))
	}

	title := extractText(card, p.selectors.ReviewTitle, "")

	text := extractJoinedText(card, p.selectors.ReviewBody, "")
	text = strings.TrimSpace(strings.ReplaceAll(text, readMoreSuffix, ""))

	rating := extractFloat(card, p.selectors.ReviewRating, RatingSentinel)

	date := parseReviewDate(extractText(card, p.selectors.ReviewDate, ""))

	reviewType := strings.ToUpper(extractText(card, p.selectors.ReviewType, ""))

	return ReviewRecord{
		User:   user,
		Title:  title,
		Text:   text,
		Rating: rating,
		Date:   date,
		Type:   reviewType,
	}
}

// parseReviewDate strips the leading label and trailing word from the raw
// date element text ("Written March 3, 2024" style), keeping the loose
// human-readable middle. Too-short input degrades to "".
func parseReviewDate(raw string) string {
	tokens := strings.Fields(raw)
	if len(tokens) < 3 {
		return ""
	}
	return helpers.NormalizeText(strings.Join(tokens[1:len(tokens)-1], " "))
}

// DedupeReviews removes duplicate reviews by author+date+title, keeping the
// first occurrence. Overlapping paginated fetches can serve the same review
// twice; deduplication is opt-in and off by default.
func DedupeReviews(reviews []ReviewRecord) []ReviewRecord {
	seen := make(map[string]struct{}, len(reviews))
	out := make([]ReviewRecord, 0, len(reviews))
	for _, r := range reviews {
		key := r.User + "\x00" + r.Date + "\x00" + r.Title
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
