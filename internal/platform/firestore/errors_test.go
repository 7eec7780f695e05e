package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	cases := map[string]struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		"not found":    {code: codes.NotFound, notFound: true},
		"exists":       {code: codes.AlreadyExists, conflict: true},
		"precondition": {code: codes.FailedPrecondition, conflict: true},
		"aborted":      {code: codes.Aborted, conflict: true},
		"unavailable":  {code: codes.Unavailable, unavailable: true},
		"exhausted":    {code: codes.ResourceExhausted, unavailable: true},
		"invalid":      {code: codes.InvalidArgument},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := WrapError("orders.get", status.Error(tc.code, "boom"))
			var repoErr *Error
			if !errors.As(err, &repoErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
				t.Fatalf("unexpected classification for %s: %+v", tc.code, repoErr)
			}
		})
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	if err := WrapError("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNotFoundAndConflictHelpers(t *testing.T) {
	if !isNotFound(NotFound("users.byEmail", "no user")) {
		t.Fatal("expected not found")
	}
	var repoErr *Error
	if !errors.As(Conflict("users.create", "email taken"), &repoErr) || !repoErr.IsConflict() {
		t.Fatal("expected conflict")
	}
}
