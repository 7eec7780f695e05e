package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/services"
)

const (
	maxProductBodySize  = 64 * 1024
	maxProductImageSize = 10 << 20
	maxProductPageSize  = 100
)

// ProductHandlers serves the public catalog and admin product management.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	decoder *schema.Decoder
}

// NewProductHandlers constructs the /products handlers.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService) *ProductHandlers {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.SetAliasTag("query")
	return &ProductHandlers{authn: authn, catalog: catalog, decoder: decoder}
}

// Routes wires the /products endpoints. Reads are public; writes need an admin.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/facets", h.facets)
	r.Get("/{productId}", h.getProduct)

	r.Group(func(ar chi.Router) {
		if h.authn != nil {
			ar.Use(h.authn.RequireAdmin())
		}
		ar.Post("/", h.createProduct)
		ar.Put("/{productId}", h.updateProduct)
		ar.Delete("/{productId}", h.deleteProduct)
		ar.Post("/{productId}/images", h.uploadImage)
	})
}

type productQuery struct {
	Category   string   `query:"category"`
	Search     string   `query:"search"`
	Q          string   `query:"q"`
	MinPrice   *int64   `query:"minPrice"`
	MaxPrice   *int64   `query:"maxPrice"`
	InStock    bool     `query:"inStock"`
	Colors     []string `query:"colors"`
	Materials  []string `query:"materials"`
	Featured   bool     `query:"featured"`
	New        bool     `query:"new"`
	Bestseller bool     `query:"bestseller"`
	Sort       string   `query:"sort"`
}

func (q productQuery) filter() services.ProductFilter {
	return services.ProductFilter{
		Category:    domain.ProductCategory(strings.ToLower(strings.TrimSpace(q.Category))),
		Search:      strings.TrimSpace(firstNonEmpty(q.Search, q.Q)),
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		InStockOnly: q.InStock,
		Colors:      splitMulti(q.Colors),
		Materials:   splitMulti(q.Materials),
		Featured:    q.Featured,
		New:         q.New,
		Bestseller:  q.Bestseller,
		Sort:        domain.ProductSort(strings.ToLower(strings.TrimSpace(q.Sort))),
	}
}

type productListResponse struct {
	Items    []productPayload `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var query productQuery
	if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(fmt.Sprintf("invalid query: %v", err)))
		return
	}
	page, err := pagination.FromRequest(r, pagination.Options{MaxPageSize: maxProductPageSize, AllowUnbounded: true})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
		return
	}

	list, err := h.catalog.ListProducts(ctx, query.filter(), page)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	items := make([]productPayload, 0, len(list.Items))
	for _, p := range list.Items {
		items = append(items, buildProductPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Items:    items,
		Total:    list.Total,
		Page:     list.Page,
		PageSize: list.PageSize,
	})
}

type facetsResponse struct {
	Categories []string `json:"categories"`
	Colors     []string `json:"colors"`
	Materials  []string `json:"materials"`
	MinPrice   int64    `json:"minPrice"`
	MaxPrice   int64    `json:"maxPrice"`
}

func (h *ProductHandlers) facets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	facets, err := h.catalog.Facets(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	categories := make([]string, 0, len(facets.Categories))
	for _, c := range facets.Categories {
		categories = append(categories, string(c))
	}
	writeJSONResponse(w, http.StatusOK, facetsResponse{
		Categories: categories,
		Colors:     nonNilStrings(facets.Colors),
		Materials:  nonNilStrings(facets.Materials),
		MinPrice:   facets.MinPrice,
		MaxPrice:   facets.MaxPrice,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

type productRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *int64   `json:"price"`
	Category     *string  `json:"category"`
	Color        *string  `json:"color"`
	Material     *string  `json:"material"`
	Images       []string `json:"images"`
	StockCount   *int     `json:"stockCount"`
	IsFeatured   *bool    `json:"isFeatured"`
	IsNew        *bool    `json:"isNew"`
	IsBestseller *bool    `json:"isBestseller"`
}

func (req productRequest) input() services.ProductInput {
	input := services.ProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Color:        req.Color,
		Material:     req.Material,
		Images:       req.Images,
		StockCount:   req.StockCount,
		IsFeatured:   req.IsFeatured,
		IsNew:        req.IsNew,
		IsBestseller: req.IsBestseller,
	}
	if req.Category != nil {
		category := domain.ProductCategory(strings.ToLower(strings.TrimSpace(*req.Category)))
		input.Category = &category
	}
	return input
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeJSONBody(w, r, maxProductBodySize, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(ctx, req.input())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+product.ID)
	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeJSONBody(w, r, maxProductBodySize, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "productId"), req.input())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productId")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadImage accepts a multipart form with the file under "image".
func (h *ProductHandlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxProductImageSize+64*1024)
	if err := r.ParseMultipartForm(maxProductImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "image exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.BadRequest("multipart form with an image file is required"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("image file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("unable to read image"))
		return
	}

	product, err := h.catalog.UploadImage(ctx, services.ProductImageUpload{
		ProductID: chi.URLParam(r, "productId"),
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogImagesDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("image_storage_unavailable", "image uploads are not configured", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable("catalog"))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalog request failed", http.StatusInternalServerError))
	}
}

// splitMulti accepts both repeated params and comma separated values.
func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
