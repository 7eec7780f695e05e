package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed data/countries.yaml
var countriesYAML []byte

var (
	// ErrCountryNotFound indicates the code is not a shipping destination.
	ErrCountryNotFound = errors.New("country: not found")
	// ErrCountryInvalidInput indicates a malformed country code.
	ErrCountryInvalidInput = errors.New("country: invalid input")
)

type countryService struct {
	countries []Country
	byCode    map[string]Country
}

var _ CountryService = (*countryService)(nil)

// NewCountryService loads the embedded destination dataset.
func NewCountryService() (CountryService, error) {
	return newCountryService(countriesYAML)
}

func newCountryService(raw []byte) (*countryService, error) {
	var countries []Country
	if err := yaml.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("country service: decode dataset: %w", err)
	}
	byCode := make(map[string]Country, len(countries))
	for i, c := range countries {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if len(c.Code) != 2 {
			return nil, fmt.Errorf("country service: invalid code %q", c.Code)
		}
		if _, dup := byCode[c.Code]; dup {
			return nil, fmt.Errorf("country service: duplicate code %q", c.Code)
		}
		countries[i] = c
		byCode[c.Code] = c
	}
	return &countryService{countries: countries, byCode: byCode}, nil
}

// List returns destinations in dataset order without their city lists.
func (s *countryService) List(context.Context) ([]Country, error) {
	out := make([]Country, 0, len(s.countries))
	for _, c := range s.countries {
		c.Cities = nil
		out = append(out, c)
	}
	return out, nil
}

func (s *countryService) Get(_ context.Context, code string) (Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return Country{}, fmt.Errorf("%w: code must be two letters", ErrCountryInvalidInput)
	}
	c, ok := s.byCode[code]
	if !ok {
		return Country{}, ErrCountryNotFound
	}
	c.Cities = slices.Clone(c.Cities)
	return c, nil
}

// Cities returns the country's cities in Turkish alphabetical order.
func (s *countryService) Cities(ctx context.Context, code string) ([]string, error) {
	c, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	collate.New(language.Turkish).SortStrings(c.Cities)
	return c.Cities, nil
}
