package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/user/pricewatch-service/pkg/price"
)

// Subscription mirrors the `subscriptions` PostgreSQL table schema.
// One row exists per (SubscriberContact, ProductURL) pair.
type Subscription struct {
	ID                string
	SubscriberContact string
	ProductURL        string
	ProductName       string
	ClaimedPriceText  string
	LastSeenPrice     *float64 // nil until a price has been parsed
	LastCheckedAt     *time.Time
	LastNotifiedAt    *time.Time
	CreatedAt         time.Time
}

// NewSubscription builds a subscription with a fresh id, seeding
// LastSeenPrice from the claimed price when it parses.
func NewSubscription(contact, productURL, productName, claimedPriceText string, now time.Time) *Subscription {
	sub := &Subscription{
		ID:                uuid.NewString(),
		SubscriberContact: contact,
		ProductURL:        productURL,
		ProductName:       productName,
		ClaimedPriceText:  claimedPriceText,
		CreatedAt:         now.UTC(),
	}
	if p, ok := price.Normalize(claimedPriceText); ok {
		sub.LastSeenPrice = &p
	}
	return sub
}

// IsEligible reports whether the cooldown window has elapsed.
func (s *Subscription) IsEligible(now time.Time, minCheckInterval time.Duration) bool {
	return s.LastCheckedAt == nil || s.LastCheckedAt.Before(now.Add(-minCheckInterval))
}

// MarkChecked advances LastCheckedAt. The timestamp never moves backwards
// and never precedes CreatedAt.
func (s *Subscription) MarkChecked(now time.Time) {
	checked := now.UTC()
	if checked.Before(s.CreatedAt) {
		checked = s.CreatedAt
	}
	if s.LastCheckedAt != nil && checked.Before(*s.LastCheckedAt) {
		checked = *s.LastCheckedAt
	}
	s.LastCheckedAt = &checked
}

// Clone returns a deep copy so stores can hand out records without sharing
// pointer fields.
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.LastSeenPrice != nil {
		v := *s.LastSeenPrice
		c.LastSeenPrice = &v
	}
	if s.LastCheckedAt != nil {
		v := *s.LastCheckedAt
		c.LastCheckedAt = &v
	}
	if s.LastNotifiedAt != nil {
		v := *s.LastNotifiedAt
		c.LastNotifiedAt = &v
	}
	return &c
}
