package services

import (
	"context"
	"errors"
	"testing"
)

func TestCountryService(t *testing.T) {
	svc, err := NewCountryService()
	if err != nil {
		t.Fatalf("new country service: %v", err)
	}
	ctx := context.Background()

	countries, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(countries) == 0 || countries[0].Code != "TR" || countries[0].Cities != nil {
		t.Fatalf("expected Turkey first without cities, got %+v", countries[0])
	}

	tr, err := svc.Get(ctx, " tr ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(tr.Cities) != 81 || tr.DialCode != "+90" {
		t.Fatalf("expected 81 provinces, got %d", len(tr.Cities))
	}

	cities, err := svc.Cities(ctx, "TR")
	if err != nil {
		t.Fatalf("cities: %v", err)
	}
	// Turkish collation puts Ç after C and İ after I.
	if cities[0] != "Adana" {
		t.Fatalf("unexpected first city %q", cities[0])
	}
	if !(indexOf(cities, "Bursa") < indexOf(cities, "Çanakkale") && indexOf(cities, "Çorum") < indexOf(cities, "Denizli")) {
		t.Fatalf("expected Ç between C and D: %v", cities)
	}
	if indexOf(cities, "Iğdır") > indexOf(cities, "İstanbul") {
		t.Fatalf("expected dotless I before dotted İ: %v", cities)
	}
	again, _ := svc.Get(ctx, "TR")
	if again.Cities[0] != "Adana" || again.Cities[33] != "İstanbul" {
		t.Fatalf("sorting must not mutate the dataset, got %q", again.Cities[33])
	}

	if _, err := svc.Get(ctx, "XX"); !errors.Is(err, ErrCountryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Cities(ctx, "TUR"); !errors.Is(err, ErrCountryInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNewCountryServiceRejectsDuplicates(t *testing.T) {
	_, err := newCountryService([]byte("- code: TR\n  name: A\n- code: tr\n  name: B\n"))
	if err == nil {
		t.Fatalf("expected duplicate code error")
	}
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}
