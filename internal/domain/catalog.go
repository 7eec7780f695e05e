package domain

import "time"

// ProductCategory groups products in the shop navigation.
type ProductCategory string

const (
	CategoryNecklaces ProductCategory = "necklaces"
	CategoryEarrings  ProductCategory = "earrings"
	CategoryBracelets ProductCategory = "bracelets"
	CategoryRings     ProductCategory = "rings"
)

// Valid reports whether c is one of the known categories.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryNecklaces, CategoryEarrings, CategoryBracelets, CategoryRings:
		return true
	}
	return false
}

// Product is a catalog entry. Price is in minor units (kuruş).
type Product struct {
	ID              string
	Slug            string
	Name            string
	Description     string
	DescriptionHTML string
	Price           int64
	Currency        string
	Images          []string
	Thumbnails      []string
	Category        ProductCategory
	Color           string
	Material        string
	InStock         bool
	StockCount      int
	IsFeatured      bool
	IsNew           bool
	IsBestseller    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PrimaryImage returns the first image or "".
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductSort names the shop sort options.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
)

// ProductFilter is the shop filter state. Nil bounds are open.
type ProductFilter struct {
	Category    ProductCategory
	Search      string
	MinPrice    *int64
	MaxPrice    *int64
	InStockOnly bool
	Colors      []string
	Materials   []string
	Featured    bool
	New         bool
	Bestseller  bool
	Sort        ProductSort
}

// ProductFacets summarises the values shoppers can filter on.
type ProductFacets struct {
	Categories []ProductCategory
	Colors     []string
	Materials  []string
	MinPrice   int64
	MaxPrice   int64
}
