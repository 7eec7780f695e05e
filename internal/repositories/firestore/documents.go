package firestore

import (
	"strings"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
)

type addressDocument struct {
	FullName   string `firestore:"fullName"`
	Phone      string `firestore:"phone"`
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	District   string `firestore:"district,omitempty"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

func fromDomainAddress(addr *domain.ShippingAddress) *addressDocument {
	if addr == nil {
		return nil
	}
	return &addressDocument{
		FullName:   strings.TrimSpace(addr.FullName),
		Phone:      strings.TrimSpace(addr.Phone),
		Address:    strings.TrimSpace(addr.Address),
		City:       strings.TrimSpace(addr.City),
		District:   strings.TrimSpace(addr.District),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}
}

func (d *addressDocument) toDomain() *domain.ShippingAddress {
	if d == nil {
		return nil
	}
	return &domain.ShippingAddress{
		FullName:   d.FullName,
		Phone:      d.Phone,
		Address:    d.Address,
		City:       d.City,
		District:   d.District,
		PostalCode: d.PostalCode,
		Country:    d.Country,
	}
}

type lineItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	Price     int64  `firestore:"price"`
	Qty       int    `firestore:"qty"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func statusStrings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
