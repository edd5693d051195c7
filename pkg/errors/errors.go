package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport-level failures (timeouts, resets, 5xx)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeBlocked represents a block signal from the target site (403)
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeExhausted represents a scrape that ran out of retry budget
	ErrorTypeExhausted ErrorType = "exhausted"
	// ErrorTypeProvider represents secondary-provider errors
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a fetch that failed with this error may be retried
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeBlocked, ErrorTypeExhausted:
		return false
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, url, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(url, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, url, message, err)
}

// NewBlocked creates a new block-signal error
func NewBlocked(url, message string) *ScrapeError {
	return New(ErrorTypeBlocked, url, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(url, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, url, message, err)
}

// NewExhausted creates a new retry-exhaustion error
func NewExhausted(url string, attempts int) *ScrapeError {
	message := fmt.Sprintf("retry budget exhausted after %d attempts", attempts)
	return New(ErrorTypeExhausted, url, message, nil)
}

// NewProvider creates a new secondary-provider error
func NewProvider(url, message string, err error) *ScrapeError {
	return New(ErrorTypeProvider, url, message, err)
}

// NewCache creates a new cache error
func NewCache(url, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, url, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(url, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, url, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a ScrapeError of the given type
func IsType(err error, errType ErrorType) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsBlocked reports whether err is a block-signal error. Callers use this to
// stop scheduling further URLs for a host instead of hammering it.
func IsBlocked(err error) bool {
	return IsType(err, ErrorTypeBlocked)
}

// IsExhausted reports whether err is a retry-exhaustion error
func IsExhausted(err error) bool {
	return IsType(err, ErrorTypeExhausted)
}
