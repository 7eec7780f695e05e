package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
)

const productCollection = "products"

type productDocument struct {
	Slug            string    `firestore:"slug"`
	Name            string    `firestore:"name"`
	Description     string    `firestore:"description"`
	DescriptionHTML string    `firestore:"descriptionHtml,omitempty"`
	Price           int64     `firestore:"price"`
	Currency        string    `firestore:"currency"`
	Images          []string  `firestore:"images"`
	Thumbnails      []string  `firestore:"thumbnails,omitempty"`
	Category        string    `firestore:"category"`
	Color           string    `firestore:"color,omitempty"`
	Material        string    `firestore:"material,omitempty"`
	InStock         bool      `firestore:"inStock"`
	StockCount      int       `firestore:"stockCount"`
	IsFeatured      bool      `firestore:"isFeatured"`
	IsNew           bool      `firestore:"isNew"`
	IsBestseller    bool      `firestore:"isBestseller"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

// ProductRepository stores the catalog in the products collection.
type ProductRepository struct {
	base *pfirestore.Collection[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{base: pfirestore.NewCollection[productDocument](provider, productCollection)}, nil
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	_, err := r.base.Create(ctx, product.ID, fromDomainProduct(product))
	return err
}

// Update replaces an existing product; a missing product is not-found.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	doc := fromDomainProduct(product)
	_, err := r.base.Update(ctx, product.ID, []firestore.Update{
		{Path: "slug", Value: doc.Slug},
		{Path: "name", Value: doc.Name},
		{Path: "description", Value: doc.Description},
		{Path: "descriptionHtml", Value: doc.DescriptionHTML},
		{Path: "price", Value: doc.Price},
		{Path: "currency", Value: doc.Currency},
		{Path: "images", Value: doc.Images},
		{Path: "thumbnails", Value: doc.Thumbnails},
		{Path: "category", Value: doc.Category},
		{Path: "color", Value: doc.Color},
		{Path: "material", Value: doc.Material},
		{Path: "inStock", Value: doc.InStock},
		{Path: "stockCount", Value: doc.StockCount},
		{Path: "isFeatured", Value: doc.IsFeatured},
		{Path: "isNew", Value: doc.IsNew},
		{Path: "isBestseller", Value: doc.IsBestseller},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	}, firestore.Exists)
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.base.Delete(ctx, productID, firestore.Exists)
}

func fromDomainProduct(p domain.Product) productDocument {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return productDocument{
		Slug:            p.Slug,
		Name:            strings.TrimSpace(p.Name),
		Description:     p.Description,
		DescriptionHTML: p.DescriptionHTML,
		Price:           p.Price,
		Currency:        currency,
		Images:          append([]string(nil), p.Images...),
		Thumbnails:      append([]string(nil), p.Thumbnails...),
		Category:        string(p.Category),
		Color:           strings.TrimSpace(p.Color),
		Material:        strings.TrimSpace(p.Material),
		InStock:         p.InStock,
		StockCount:      p.StockCount,
		IsFeatured:      p.IsFeatured,
		IsNew:           p.IsNew,
		IsBestseller:    p.IsBestseller,
		CreatedAt:       p.CreatedAt.UTC(),
		UpdatedAt:       p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:              id,
		Slug:            d.Slug,
		Name:            d.Name,
		Description:     d.Description,
		DescriptionHTML: d.DescriptionHTML,
		Price:           d.Price,
		Currency:        d.Currency,
		Images:          d.Images,
		Thumbnails:      d.Thumbnails,
		Category:        domain.ProductCategory(d.Category),
		Color:           d.Color,
		Material:        d.Material,
		InStock:         d.InStock,
		StockCount:      d.StockCount,
		IsFeatured:      d.IsFeatured,
		IsNew:           d.IsNew,
		IsBestseller:    d.IsBestseller,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
