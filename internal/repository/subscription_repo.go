package repository

import (
	"context"
	"iter"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
)

// SubscriptionRepository defines the interface for the durable subscription store.
type SubscriptionRepository interface {
	// Create inserts a new subscription. It returns ErrDuplicateSubscription
	// when the (contact, url) pair already exists.
	Create(ctx context.Context, sub *entity.Subscription) error
	// FindByID retrieves one subscription.
	FindByID(ctx context.Context, id string) (*entity.Subscription, error)
	// FindEligible streams subscriptions never checked or last checked before
	// now-minCheckInterval, in storage order. A non-nil error ends the stream.
	FindEligible(ctx context.Context, now time.Time, minCheckInterval time.Duration) iter.Seq2[*entity.Subscription, error]
	// Save writes back the mutable tracking fields of one subscription.
	Save(ctx context.Context, sub *entity.Subscription) error
	// Delete removes a subscription.
	Delete(ctx context.Context, id string) error
}
