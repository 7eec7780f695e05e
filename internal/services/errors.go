package services

import (
	"context"
	"errors"

	"github.com/jewelry-storefront/api/internal/repositories"
)

func repoErrorKind(err error) (notFound, conflict, unavailable bool) {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound(), repoErr.IsConflict(), repoErr.IsUnavailable()
	}
	return false, false, false
}

func isRepoNotFound(err error) bool {
	notFound, _, _ := repoErrorKind(err)
	return notFound
}

func isRepoConflict(err error) bool {
	_, conflict, _ := repoErrorKind(err)
	return conflict
}

// translateRepoError maps repository failures onto a service's sentinels.
// Anything unclassified is reported as unavailable.
func translateRepoError(err, notFound, conflict, unavailable error) error {
	if err == nil {
		return nil
	}
	isNotFound, isConflict, _ := repoErrorKind(err)
	switch {
	case isNotFound && notFound != nil:
		return notFound
	case isConflict && conflict != nil:
		return conflict
	}
	return errors.Join(unavailable, err)
}

func noopLogger() func(ctx context.Context, event string, fields map[string]any) {
	return func(context.Context, string, map[string]any) {}
}
