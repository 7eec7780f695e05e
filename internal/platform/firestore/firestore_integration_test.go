//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pconfig "github.com/jewelry-storefront/api/internal/platform/config"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
)

type sampleProduct struct {
	Name  string `firestore:"name"`
	Stock int    `firestore:"stockCount"`
}

// Run with `gcloud emulators firestore start` and FIRESTORE_EMULATOR_HOST set.
func newEmulatorProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "jewelry-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestCollectionRoundTrip(t *testing.T) {
	provider := newEmulatorProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	coll := pfirestore.NewCollection[sampleProduct](provider, "it_products")
	id := "p-" + time.Now().Format("150405.000000")

	if _, err := coll.Create(ctx, id, sampleProduct{Name: "Inci Kolye", Stock: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := coll.Create(ctx, id, sampleProduct{Name: "dup"}); err == nil {
		t.Fatal("expected conflict on duplicate create")
	} else {
		var repoErr *pfirestore.Error
		if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
			t.Fatalf("expected conflict, got %v", err)
		}
	}

	doc, err := coll.Get(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data.Name != "Inci Kolye" || doc.UpdateTime.IsZero() {
		t.Fatalf("unexpected document %#v", doc)
	}

	if _, err := coll.Update(ctx, id, []firestore.Update{{Path: "stockCount", Value: 5}}, firestore.LastUpdateTime(doc.UpdateTime)); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := coll.Update(ctx, id, []firestore.Update{{Path: "stockCount", Value: 6}}, firestore.LastUpdateTime(doc.UpdateTime)); err == nil {
		t.Fatal("expected stale precondition to fail")
	}

	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := coll.Doc(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := coll.Decode(snap)
		if err != nil {
			return err
		}
		current.Data.Stock--
		return tx.Set(ref, current.Data)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	doc, err = coll.Get(ctx, id)
	if err != nil || doc.Data.Stock != 4 {
		t.Fatalf("expected stock 4, got %#v (%v)", doc.Data, err)
	}

	if err := coll.Delete(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := coll.Get(ctx, id); err == nil {
		t.Fatal("expected not found after delete")
	}
	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
