package jobs

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// ErrPermanent marks a message that must not be redelivered.
var ErrPermanent = errors.New("jobs: permanent failure")

// Handler processes one message payload.
type Handler func(ctx context.Context, data []byte, attrs map[string]string) error

// Worker drains a subscription with a Handler.
type Worker struct {
	sub     *pubsub.Subscription
	handler Handler
	logger  *zap.Logger
	timeout time.Duration
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger used for failures.
func WithWorkerLogger(logger *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithHandlerTimeout bounds the time spent on a single message.
func WithHandlerTimeout(timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

// NewWorker builds a worker for sub.
func NewWorker(sub *pubsub.Subscription, handler Handler, opts ...WorkerOption) (*Worker, error) {
	if sub == nil {
		return nil, errors.New("pubsub worker: subscription is required")
	}
	if handler == nil {
		return nil, errors.New("pubsub worker: handler is required")
	}
	w := &Worker{sub: sub, handler: handler, logger: zap.NewNop(), timeout: 30 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Successful and permanently failed
// messages are acked; anything else is nacked for redelivery.
func (w *Worker) Run(ctx context.Context) error {
	err := w.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		hctx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()

		err := w.handler(hctx, msg.Data, msg.Attributes)
		switch {
		case err == nil:
			msg.Ack()
		case errors.Is(err, ErrPermanent):
			w.logger.Error("pubsub message dropped", zap.String("subscription", w.sub.ID()), zap.String("message_id", msg.ID), zap.Error(err))
			msg.Ack()
		default:
			w.logger.Warn("pubsub message failed", zap.String("subscription", w.sub.ID()), zap.String("message_id", msg.ID), zap.Error(err))
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
