package entity

// ExtractionSource tells which page source produced an ExtractedProduct.
type ExtractionSource string

const (
	SourceStatic   ExtractionSource = "static"
	SourceRendered ExtractionSource = "rendered"
)

// ExtractionOutcome classifies an ExtractedProduct.
type ExtractionOutcome string

const (
	OutcomeValid  ExtractionOutcome = "valid"
	OutcomeWeak   ExtractionOutcome = "weak"
	OutcomeFailed ExtractionOutcome = "failed"
)

// ExtractedProduct is the result of one extraction attempt. It is never
// persisted. PriceText is "unknown" when no strategy yielded a value.
type ExtractedProduct struct {
	URL       string
	Name      string
	PriceText string
	Source    ExtractionSource
	Outcome   ExtractionOutcome
	// FetchErr is set when the page source itself failed (network error,
	// non-2xx status, render timeout). The product still carries fallbacks.
	FetchErr error
}

// PriceComparison is the outcome of comparing a fresh price with the
// subscription's baseline.
type PriceComparison struct {
	ShouldNotify         bool
	PreviousPrice        *float64
	UpdatedLastSeenPrice float64
	Changed              bool
	// Notified is set once the notification sender accepted the notice.
	Notified    bool
	DeliveryRef string
}

// PriceDropNotice is what the notification sender needs to tell a
// subscriber about a drop.
type PriceDropNotice struct {
	SubscriptionID string
	Destination    string
	ProductName    string
	ProductURL     string
	OldPrice       float64
	NewPrice       float64
}
