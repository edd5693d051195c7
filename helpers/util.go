package helpers

import (
	"errors"
	"strings"
)

// GetSplitPart splits target by separate and returns the part at index.
func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// LastSplitPart splits target by separate and returns the final part.
// Used for trailing URL segments such as profile slugs.
func LastSplitPart(target string, separate string) string {
	parts := strings.Split(target, separate)
	return parts[len(parts)-1]
}

// FirstToken returns the first whitespace-separated token of target,
// or "" when target is blank.
func FirstToken(target string) string {
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
