package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/yuin/goldmark"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/platform/storage"
	"github.com/jewelry-storefront/api/internal/platform/textutil"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const (
	maxProductNameLength        = 160
	maxProductDescriptionLength = 8000
	maxProductImages            = 12
)

var (
	// ErrCatalogInvalidInput indicates invalid filter or product input.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogUnavailable indicates the backing store failed.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
	// ErrCatalogImagesDisabled indicates no image store was configured.
	ErrCatalogImagesDisabled = errors.New("catalog: image uploads are not configured")
)

// CatalogServiceDeps bundles collaborators for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Images      storage.ImageStore
	Clock       func() time.Time
	IDGenerator func() string
	Currency    string
	Logger      func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	images   storage.ImageStore
	now      func() time.Time
	newID    func() string
	currency string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	logger   func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service. Images may be nil, which
// disables uploads.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	return &catalogService{
		products: deps.Products,
		images:   deps.Images,
		now:      func() time.Time { return clock().UTC() },
		newID:    newID,
		currency: currency,
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
		logger:   logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter, page pagination.Params) (ProductList, error) {
	if err := validateProductFilter(filter); err != nil {
		return ProductList{}, err
	}
	all, err := s.products.List(ctx)
	if err != nil {
		return ProductList{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	filtered := FilterProducts(all, filter)
	items, total := pagination.Slice(filtered, page)
	return ProductList{
		Items:    items,
		Total:    total,
		Page:     max(page.Page, 1),
		PageSize: page.PageSize,
	}, nil
}

func validateProductFilter(filter ProductFilter) error {
	if filter.Category != "" && !filter.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrCatalogInvalidInput, filter.Category)
	}
	if filter.MinPrice != nil && *filter.MinPrice < 0 {
		return fmt.Errorf("%w: minPrice must not be negative", ErrCatalogInvalidInput)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return fmt.Errorf("%w: minPrice exceeds maxPrice", ErrCatalogInvalidInput)
	}
	switch filter.Sort {
	case "", domain.SortNewest, domain.SortPriceAsc, domain.SortPriceDesc, domain.SortNameAsc:
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrCatalogInvalidInput, filter.Sort)
	}
	return nil
}

// FilterProducts runs the shop pipeline over products: category, text search,
// price range, stock, colors, materials, flags, then sort. The input slice is
// not modified.
func FilterProducts(products []Product, filter ProductFilter) []Product {
	colors := foldSet(filter.Colors)
	materials := foldSet(filter.Materials)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !textutil.ContainsFold(filter.Search, p.Name, p.Description) {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.InStockOnly && !p.InStock {
			continue
		}
		if len(colors) > 0 && !colors[textutil.Fold(p.Color)] {
			continue
		}
		if len(materials) > 0 && !materials[textutil.Fold(p.Material)] {
			continue
		}
		if (filter.Featured && !p.IsFeatured) || (filter.New && !p.IsNew) || (filter.Bestseller && !p.IsBestseller) {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out, filter.Sort)
	return out
}

func sortProducts(products []Product, sort domain.ProductSort) {
	switch sort {
	case domain.SortPriceAsc:
		slices.SortStableFunc(products, func(a, b Product) int { return compareInt64(a.Price, b.Price) })
	case domain.SortPriceDesc:
		slices.SortStableFunc(products, func(a, b Product) int { return compareInt64(b.Price, a.Price) })
	case domain.SortNameAsc:
		// Collators keep internal buffers, so each sort gets its own.
		collator := collate.New(language.Turkish, collate.IgnoreCase)
		slices.SortStableFunc(products, func(a, b Product) int {
			return collator.CompareString(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(products, func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func foldSet(values []string) map[string]bool {
	values = textutil.NormalizeStringSet(values)
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[textutil.Fold(v)] = true
	}
	return out
}

func (s *catalogService) Facets(ctx context.Context) (ProductFacets, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return ProductFacets{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	return BuildFacets(all), nil
}

// BuildFacets collects the distinct categories, colors and materials and the
// price bounds of products.
func BuildFacets(products []Product) ProductFacets {
	facets := ProductFacets{Categories: []domain.ProductCategory{}, Colors: []string{}, Materials: []string{}}
	if len(products) == 0 {
		return facets
	}
	colors := make([]string, 0, len(products))
	materials := make([]string, 0, len(products))
	facets.MinPrice, facets.MaxPrice = products[0].Price, products[0].Price
	for _, p := range products {
		if !slices.Contains(facets.Categories, p.Category) && p.Category != "" {
			facets.Categories = append(facets.Categories, p.Category)
		}
		colors = append(colors, p.Color)
		materials = append(materials, p.Material)
		facets.MinPrice = min(facets.MinPrice, p.Price)
		facets.MaxPrice = max(facets.MaxPrice, p.Price)
	}
	collator := collate.New(language.Turkish, collate.IgnoreCase)
	facets.Colors = textutil.NormalizeStringSet(colors)
	facets.Materials = textutil.NormalizeStringSet(materials)
	collator.SortStrings(facets.Colors)
	collator.SortStrings(facets.Materials)
	if facets.Colors == nil {
		facets.Colors = []string{}
	}
	if facets.Materials == nil {
		facets.Materials = []string{}
	}
	slices.Sort(facets.Categories)
	return facets
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return Product{}, translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	now := s.now()
	product := Product{
		ID:        s.newID(),
		Currency:  s.currency,
		Images:    []string{},
		CreatedAt: now,
	}
	if input.Name == nil || input.Price == nil || input.Category == nil {
		return Product{}, fmt.Errorf("%w: name, price and category are required", ErrCatalogInvalidInput)
	}
	if err := s.apply(&product, input); err != nil {
		return Product{}, err
	}
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product.created", map[string]any{"productId": product.ID, "slug": product.Slug})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, input ProductInput) (Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if err := s.apply(&product, input); err != nil {
		return Product{}, err
	}
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product.updated", map[string]any{"productId": product.ID})
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": product.ID})
	return nil
}

// UploadImage resizes an upload, stores the image and its thumbnail, and
// appends both URLs to the product.
func (s *catalogService) UploadImage(ctx context.Context, cmd ProductImageUpload) (Product, error) {
	if s.images == nil {
		return Product{}, ErrCatalogImagesDisabled
	}
	if len(cmd.Data) == 0 {
		return Product{}, fmt.Errorf("%w: image data is required", ErrCatalogInvalidInput)
	}
	product, err := s.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return Product{}, err
	}
	if len(product.Images) >= maxProductImages {
		return Product{}, fmt.Errorf("%w: at most %d images per product", ErrCatalogInvalidInput, maxProductImages)
	}

	prepared, err := storage.PrepareImage(cmd.Data)
	if err != nil {
		return Product{}, errors.Join(ErrCatalogInvalidInput, err)
	}
	imageID := s.newID()
	params := storage.PathParams{ProductID: product.ID, ImageID: imageID, Extension: ".jpg"}
	fullPath, err := storage.BuildObjectPath(storage.PurposeProductImage, params)
	if err != nil {
		return Product{}, errors.Join(ErrCatalogInvalidInput, err)
	}
	thumbPath, err := storage.BuildObjectPath(storage.PurposeProductThumbnail, params)
	if err != nil {
		return Product{}, errors.Join(ErrCatalogInvalidInput, err)
	}

	fullURL, err := s.images.Put(ctx, fullPath, prepared.ContentType, prepared.Full)
	if err != nil {
		return Product{}, errors.Join(ErrCatalogUnavailable, err)
	}
	thumbURL, err := s.images.Put(ctx, thumbPath, prepared.ContentType, prepared.Thumbnail)
	if err != nil {
		_ = s.images.Delete(ctx, fullPath)
		return Product{}, errors.Join(ErrCatalogUnavailable, err)
	}

	product.Images = append(product.Images, fullURL)
	product.Thumbnails = append(product.Thumbnails, thumbURL)
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product.image_uploaded", map[string]any{
		"productId": product.ID,
		"object":    fullPath,
		"width":     prepared.Width,
		"height":    prepared.Height,
	})
	return product, nil
}

func (s *catalogService) apply(product *Product, input ProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len([]rune(name)) > maxProductNameLength {
			return fmt.Errorf("%w: name must be 1-%d characters", ErrCatalogInvalidInput, maxProductNameLength)
		}
		product.Name = name
		product.Slug = textutil.Slugify(name)
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if len(desc) > maxProductDescriptionLength {
			return fmt.Errorf("%w: description too long", ErrCatalogInvalidInput)
		}
		html, err := s.renderDescription(desc)
		if err != nil {
			return errors.Join(ErrCatalogInvalidInput, err)
		}
		product.Description = desc
		product.DescriptionHTML = html
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return fmt.Errorf("%w: price must be positive", ErrCatalogInvalidInput)
		}
		product.Price = *input.Price
	}
	if input.Category != nil {
		if !input.Category.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrCatalogInvalidInput, *input.Category)
		}
		product.Category = *input.Category
	}
	if input.Color != nil {
		product.Color = strings.TrimSpace(*input.Color)
	}
	if input.Material != nil {
		product.Material = strings.TrimSpace(*input.Material)
	}
	if input.Images != nil {
		images := textutil.NormalizeStringSet(input.Images)
		if len(images) > maxProductImages {
			return fmt.Errorf("%w: at most %d images per product", ErrCatalogInvalidInput, maxProductImages)
		}
		if images == nil {
			images = []string{}
		}
		product.Images = images
	}
	if input.StockCount != nil {
		if *input.StockCount < 0 {
			return fmt.Errorf("%w: stockCount must not be negative", ErrCatalogInvalidInput)
		}
		product.StockCount = *input.StockCount
	}
	product.InStock = product.StockCount > 0
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.IsNew != nil {
		product.IsNew = *input.IsNew
	}
	if input.IsBestseller != nil {
		product.IsBestseller = *input.IsBestseller
	}
	return nil
}

func (s *catalogService) renderDescription(markdown string) (string, error) {
	if markdown == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return s.policy.Sanitize(buf.String()), nil
}
