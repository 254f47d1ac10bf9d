package repository

import (
	"context"

	"github.com/user/pricewatch-service/internal/entity"
)

// NotificationRepository delivers price-drop notices to subscribers.
type NotificationRepository interface {
	// Send returns a provider-specific delivery reference on success.
	Send(ctx context.Context, notice entity.PriceDropNotice) (string, error)
}
