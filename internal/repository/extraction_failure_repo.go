package repository

import "context"

// ExtractionFailureRepository counts consecutive checks of a URL that did not
// yield a comparable price.
type ExtractionFailureRepository interface {
	// Increment bumps the counter for url and returns the new value.
	Increment(ctx context.Context, url string) (int64, error)
	// Reset clears the counter after a parseable check.
	Reset(ctx context.Context, url string) error
}
