package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tablescout/reviewworker/helpers"
)

// Extraction helpers. Every call site is a best-effort lookup with an
// explicit default: a missing element or an unparseable value yields the
// default and never an error, so one broken field cannot fail a record.

// extractText returns the trimmed, NFKC-normalized text of the first
// element matching selector, or def when nothing matches or the text is empty.
func extractText(s *goquery.Selection, selector, def string) string {
	sel := s.Find(selector)
	if sel.Length() == 0 {
		return def
	}
	text := helpers.NormalizeText(strings.TrimSpace(sel.First().Text()))
	if text == "" {
		return def
	}
	return text
}

// extractJoinedText concatenates the trimmed text of every element matching
// selector with single spaces, in document order.
func extractJoinedText(s *goquery.Selection, selector, def string) string {
	sel := s.Find(selector)
	if sel.Length() == 0 {
		return def
	}
	var parts []string
	sel.Each(func(_ int, span *goquery.Selection) {
		if t := strings.TrimSpace(span.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return def
	}
	return helpers.NormalizeText(strings.Join(parts, " "))
}

// extractAttr returns the named attribute of the first element matching
// selector, or def when the element or attribute is absent.
func extractAttr(s *goquery.Selection, selector, attr, def string) string {
	sel := s.Find(selector)
	if sel.Length() == 0 {
		return def
	}
	value, exists := sel.First().Attr(attr)
	if !exists || strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

// extractFloat parses the first whitespace token of the matched element's
// text as a float ("4.5 of 5 bubbles" -> 4.5), or def on any failure.
func extractFloat(s *goquery.Selection, selector string, def float64) float64 {
	text := extractText(s, selector, "")
	if text == "" {
		return def
	}
	value, err := helpers.NormalizeFloat(helpers.FirstToken(text))
	if err != nil {
		return def
	}
	return value
}

// extractInt parses the first whitespace token of the matched element's
// text as an integer ("1,234 reviews" -> 1234), or def on any failure.
func extractInt(s *goquery.Selection, selector string, def int) int {
	text := extractText(s, selector, "")
	if text == "" {
		return def
	}
	value, err := helpers.NormalizeInt(helpers.FirstToken(text))
	if err != nil {
		return def
	}
	return value
}
