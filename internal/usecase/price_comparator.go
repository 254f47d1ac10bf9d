package usecase

import (
	"context"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
	"github.com/user/pricewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

// DecidePriceChange applies the drop rule. A drop is strictly lower than the
// baseline. Any change, up or down, becomes the new baseline.
func DecidePriceChange(current float64, lastSeen *float64) entity.PriceComparison {
	cmp := entity.PriceComparison{UpdatedLastSeenPrice: current, Changed: true}
	if lastSeen == nil {
		return cmp
	}

	prev := *lastSeen
	cmp.PreviousPrice = &prev
	cmp.ShouldNotify = current < prev
	if current == prev {
		cmp.Changed = false
		cmp.UpdatedLastSeenPrice = prev
	}
	return cmp
}

// PriceComparator updates a subscription's price baseline and sends the
// drop notification when one is due.
type PriceComparator struct {
	notifier repository.NotificationRepository
	clock    func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewPriceComparator(notifier repository.NotificationRepository, logger *zap.Logger, m *metrics.Metrics) *PriceComparator {
	return &PriceComparator{
		notifier: notifier,
		clock:    time.Now,
		logger:   logger,
		metrics:  m,
	}
}

// Compare mutates sub in place: LastSeenPrice follows current, and
// LastNotifiedAt is stamped when the notifier accepts the notice. A failed
// send is logged and leaves the new baseline in place.
func (c *PriceComparator) Compare(ctx context.Context, current float64, sub *entity.Subscription) entity.PriceComparison {
	cmp := DecidePriceChange(current, sub.LastSeenPrice)
	if cmp.Changed {
		updated := cmp.UpdatedLastSeenPrice
		sub.LastSeenPrice = &updated
	}
	if !cmp.ShouldNotify {
		return cmp
	}

	notice := entity.PriceDropNotice{
		SubscriptionID: sub.ID,
		Destination:    sub.SubscriberContact,
		ProductName:    sub.ProductName,
		ProductURL:     sub.ProductURL,
		OldPrice:       *cmp.PreviousPrice,
		NewPrice:       current,
	}
	ref, err := c.notifier.Send(ctx, notice)
	if err != nil {
		c.metrics.IncNotification("failed")
		c.logger.Error("price drop notification failed",
			zap.String("subscription_id", sub.ID),
			zap.String("product_url", sub.ProductURL),
			zap.Float64("old_price", notice.OldPrice),
			zap.Float64("new_price", notice.NewPrice),
			zap.Error(err))
		return cmp
	}

	now := c.clock().UTC()
	sub.LastNotifiedAt = &now
	cmp.Notified = true
	cmp.DeliveryRef = ref
	c.metrics.IncNotification("sent")
	c.logger.Info("price drop notification sent",
		zap.String("subscription_id", sub.ID),
		zap.String("delivery_ref", ref),
		zap.Float64("old_price", notice.OldPrice),
		zap.Float64("new_price", notice.NewPrice))
	return cmp
}
