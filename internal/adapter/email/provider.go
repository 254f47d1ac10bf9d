// Package email delivers price-drop notices through a pluggable provider.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/user/pricewatch-service/internal/entity"
	"go.uber.org/zap"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send delivers one HTML email and returns the provider's message id.
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// Sender turns price-drop notices into emails.
type Sender struct {
	provider Provider
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

// NewSender creates a new email sender with the given provider.
func NewSender(provider Provider, logger *zap.Logger) *Sender {
	return &Sender{
		provider: provider,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

// Send implements repository.NotificationRepository.
func (s *Sender) Send(ctx context.Context, notice entity.PriceDropNotice) (string, error) {
	subject := formatSubject(notice)
	body := s.formatPriceDropBody(notice, time.Now().UTC())

	ref, err := s.provider.Send(ctx, notice.Destination, subject, body)
	if err != nil {
		return "", fmt.Errorf("send price drop email: %w", err)
	}

	s.logger.Info("price drop email sent",
		zap.String("subscription_id", notice.SubscriptionID),
		zap.String("delivery_ref", ref),
		zap.Float64("old_price", notice.OldPrice),
		zap.Float64("new_price", notice.NewPrice))
	return ref, nil
}
