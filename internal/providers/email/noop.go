package email

import (
	"context"

	"github.com/stridehq/stride/internal/observability/logger"
	"go.uber.org/zap"
)

// NoOpProvider logs instead of sending. Used in development and tests and
// whenever SMTP is not configured.
type NoOpProvider struct{}

func NewNoOpProvider() *NoOpProvider { return &NoOpProvider{} }

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	logger.FromContext(ctx).Info("email suppressed (no provider configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
