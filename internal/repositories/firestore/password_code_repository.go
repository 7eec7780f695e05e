package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
)

const passwordCodeCollection = "password_change_codes"

type passwordCodeDocument struct {
	CodeHash  string    `firestore:"codeHash"`
	ExpiresAt time.Time `firestore:"expiresAt"`
	Attempts  int       `firestore:"attempts"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// PasswordCodeRepository stores the pending code per user, keyed by user ID.
type PasswordCodeRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[passwordCodeDocument]
}

func NewPasswordCodeRepository(provider *pfirestore.Provider) (*PasswordCodeRepository, error) {
	if provider == nil {
		return nil, errors.New("password code repository requires firestore provider")
	}
	return &PasswordCodeRepository{
		provider: provider,
		base:     pfirestore.NewCollection[passwordCodeDocument](provider, passwordCodeCollection),
	}, nil
}

// Save replaces any previous code for the user.
func (r *PasswordCodeRepository) Save(ctx context.Context, code domain.PasswordChangeCode) error {
	_, err := r.base.Set(ctx, code.UserID, passwordCodeDocument{
		CodeHash:  code.CodeHash,
		ExpiresAt: code.ExpiresAt.UTC(),
		Attempts:  code.Attempts,
		CreatedAt: code.CreatedAt.UTC(),
	})
	return err
}

func (r *PasswordCodeRepository) Find(ctx context.Context, userID string) (domain.PasswordChangeCode, error) {
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.PasswordChangeCode{}, err
	}
	return domain.PasswordChangeCode{
		UserID:    doc.ID,
		CodeHash:  doc.Data.CodeHash,
		ExpiresAt: doc.Data.ExpiresAt,
		Attempts:  doc.Data.Attempts,
		CreatedAt: doc.Data.CreatedAt,
	}, nil
}

// IncrementAttempts bumps the failure counter atomically and returns the new value.
func (r *PasswordCodeRepository) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	ref, err := r.base.Doc(ctx, userID)
	if err != nil {
		return 0, err
	}
	var attempts int
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := r.base.Decode(snap)
		if err != nil {
			return err
		}
		attempts = doc.Data.Attempts + 1
		return tx.Update(ref, []firestore.Update{{Path: "attempts", Value: attempts}})
	})
	if err != nil {
		return 0, pfirestore.WrapError("password_change_codes.increment", err)
	}
	return attempts, nil
}

func (r *PasswordCodeRepository) Delete(ctx context.Context, userID string) error {
	return r.base.Delete(ctx, userID)
}
