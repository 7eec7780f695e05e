package domain

import "time"

// Pagination defines cursor-based paging inputs for Firestore list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// Page is a page of results with an optional continuation token.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// SortOrder indicates ascending or descending ordering.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// DefaultCurrency is the ISO 4217 code every price is stored in.
const DefaultCurrency = "TRY"

// ShippingAddress is where an order is delivered. Country is ISO-3166 alpha-2.
type ShippingAddress struct {
	FullName   string
	Phone      string
	Address    string
	City       string
	District   string
	PostalCode string
	Country    string
}

// OneLine renders the address for notifications.
func (a ShippingAddress) OneLine() string {
	out := a.FullName
	for _, part := range []string{a.Address, a.District, a.City, a.PostalCode, a.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// User is a storefront customer or admin. PasswordHash never leaves the
// service layer.
type User struct {
	ID            string
	Name          string
	Surname       string
	Email         string
	Phone         string
	Gender        string
	BirthDate     string
	Address       string
	IsAdmin       bool
	PasswordHash  string
	GoogleSubject string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins name and surname.
func (u User) FullName() string {
	switch {
	case u.Surname == "":
		return u.Name
	case u.Name == "":
		return u.Surname
	default:
		return u.Name + " " + u.Surname
	}
}

// PasswordChangeCode is the hashed one-time code for a pending password change.
type PasswordChangeCode struct {
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

// Country is a shipping destination with its cities.
type Country struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	DialCode string   `yaml:"dialCode"`
	Cities   []string `yaml:"cities"`
}

// SystemHealthStatus captures the outcome of a dependency check.
type SystemHealthStatus string

const (
	HealthStatusOK       SystemHealthStatus = "ok"
	HealthStatusDegraded SystemHealthStatus = "degraded"
	HealthStatusError    SystemHealthStatus = "error"
)

// SystemHealthReport is returned by /readyz.
type SystemHealthReport struct {
	Status      SystemHealthStatus
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// SystemHealthCheck is one dependency's result.
type SystemHealthCheck struct {
	Status    SystemHealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}
