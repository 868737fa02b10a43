package crawler

import (
	"errors"
	"fmt"

	"github.com/SYNC-360/kravet-scraper/internal/frontier"
	"github.com/SYNC-360/kravet-scraper/internal/normalizer"
)

var (
	ErrUnauthenticated = errors.New("session is not authenticated")
	ErrNoBrands        = errors.New("no brands configured")
)

// Error kinds counted in CrawlStats.ErrorsByKind.
const (
	KindNavigation  = "navigation"
	KindRejected    = "rejected"
	KindPersistence = "persistence"
	KindPanic       = "panic"
)

// NavigationError is a queued URL that could not be loaded or read.
type NavigationError struct {
	URL  string
	Kind frontier.Kind
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// PanicError is a panic recovered while processing one URL.
type PanicError struct {
	URL   string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic while processing %s: %v", e.URL, e.Value)
}

func errorKind(err error) string {
	var rejection *normalizer.Rejection
	var panicErr *PanicError
	switch {
	case errors.As(err, &rejection):
		return KindRejected
	case errors.As(err, &panicErr):
		return KindPanic
	default:
		return KindNavigation
	}
}
