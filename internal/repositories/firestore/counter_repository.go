package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	MaxValue     *int64    `firestore:"maxValue,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository hands out sequence numbers, e.g. the yearly order number
// series, using Firestore transactions.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.Collection[counterDocument]
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewCollection[counterDocument](provider, countersCollection),
	}, nil
}

// Next atomically increments counterID and returns the new value. A missing
// counter starts at step. step <= 0 reuses the stored step.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	ref, err := r.counters.Doc(ctx, id)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var nextValue int64
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.OK:
		case codes.NotFound:
			increment := max(step, 1)
			nextValue = increment
			return tx.Create(ref, counterDocument{CurrentValue: increment, Step: increment, UpdatedAt: now})
		default:
			return err
		}

		doc, err := r.counters.Decode(snapshot)
		if err != nil {
			return err
		}
		increment := step
		if increment <= 0 {
			increment = max(doc.Data.Step, 1)
		}
		newValue := doc.Data.CurrentValue + increment
		if doc.Data.MaxValue != nil && newValue > *doc.Data.MaxValue {
			return repositories.NewCounterError(repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *doc.Data.MaxValue), nil)
		}
		nextValue = newValue
		return tx.Update(ref, []firestore.Update{
			{Path: "currentValue", Value: newValue},
			{Path: "step", Value: increment},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			return 0, counterErr
		}
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return nextValue, nil
}
