package helpers

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization to a scraped string.
// Empty input stays empty; this function never fails.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	return norm.NFKC.String(text)
}

// NormalizeInt parses an integer out of a scraped string, stripping
// thousands separators, rank markers and thousands-dot separators
// ("1,234" -> 1234, "#5" -> 5, "1.234" -> 1234). Callers must substitute
// their own default on error.
func NormalizeInt(text string) (int, error) {
	cleaned := strings.NewReplacer(",", "", "#", "", ".", "").Replace(strings.TrimSpace(text))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("normalize int %q: %w", text, err)
	}
	return n, nil
}

// NormalizeFloat parses a float out of a scraped string, stripping
// thousands separators and rank markers. Callers must substitute their
// own default on error.
func NormalizeFloat(text string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "#", "").Replace(strings.TrimSpace(text))
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("normalize float %q: %w", text, err)
	}
	return f, nil
}
