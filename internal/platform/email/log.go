package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/jewelry-storefront/api/internal/platform/requestctx"
)

// LogSender writes messages to the log instead of delivering them. Used in
// local development.
type LogSender struct {
	fallback *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{fallback: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	logger := requestctx.Logger(ctx)
	if logger == requestctx.Logger(nil) {
		logger = s.fallback
	}
	logger.Info("email not delivered (log mode)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.Template),
		zap.String("text", msg.Text),
	)
	return nil
}
