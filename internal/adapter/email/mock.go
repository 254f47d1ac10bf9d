package email

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockProvider logs emails instead of sending them.
type MockProvider struct {
	logger *zap.Logger
}

// NewMockProvider creates a new mock email provider.
func NewMockProvider(logger *zap.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the email and returns a random reference.
func (m *MockProvider) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	ref := "mock-" + uuid.NewString()
	m.logger.Info("MOCK EMAIL",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(htmlBody)),
		zap.String("delivery_ref", ref))
	return ref, nil
}
