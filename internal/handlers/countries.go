package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/services"
)

const countryCacheControl = "public, max-age=86400"

// CountryHandlers serves the static shipping destination list.
type CountryHandlers struct {
	countries services.CountryService
}

func NewCountryHandlers(countries services.CountryService) *CountryHandlers {
	return &CountryHandlers{countries: countries}
}

func (h *CountryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listCountries)
	r.Get("/{code}", h.getCountry)
	r.Get("/{code}/cities", h.listCities)
}

type countryPayload struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	DialCode string   `json:"dialCode"`
	Cities   []string `json:"cities,omitempty"`
}

func (h *CountryHandlers) listCountries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.countries == nil {
		writeUnavailable(ctx, w, "country")
		return
	}
	countries, err := h.countries.List(ctx)
	if err != nil {
		writeCountryError(ctx, w, err)
		return
	}
	out := make([]countryPayload, 0, len(countries))
	for _, c := range countries {
		out = append(out, countryPayload{Code: c.Code, Name: c.Name, DialCode: c.DialCode})
	}
	w.Header().Set("Cache-Control", countryCacheControl)
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": out})
}

func (h *CountryHandlers) getCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.countries == nil {
		writeUnavailable(ctx, w, "country")
		return
	}
	c, err := h.countries.Get(ctx, chi.URLParam(r, "code"))
	if err != nil {
		writeCountryError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", countryCacheControl)
	writeJSONResponse(w, http.StatusOK, countryPayload{Code: c.Code, Name: c.Name, DialCode: c.DialCode, Cities: c.Cities})
}

func (h *CountryHandlers) listCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.countries == nil {
		writeUnavailable(ctx, w, "country")
		return
	}
	cities, err := h.countries.Cities(ctx, chi.URLParam(r, "code"))
	if err != nil {
		writeCountryError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", countryCacheControl)
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": nonNilStrings(cities)})
}

func writeCountryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCountryInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrCountryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("country_not_found", "country is not a shipping destination", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("country_error", "country lookup failed", http.StatusInternalServerError))
	}
}
