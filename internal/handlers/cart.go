package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the signed-in user's cart. Every mutation goes through
// the reducer and is persisted before the response is written.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs the /cart handlers.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/actions", h.dispatchAction)
	r.Put("/items/{productId}", h.putItem)
	r.Delete("/items/{productId}", h.removeItem)
	r.Put("/shipping-address", h.saveShippingAddress)
}

type cartActionRequest struct {
	Type      string           `json:"type"`
	Item      *cartItemRequest `json:"item"`
	ProductID string           `json:"productId"`
	Address   *addressPayload  `json:"address"`
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type cartQtyRequest struct {
	Qty int `json:"qty"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(ctx, identity.UID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, services.CartAction{Type: domain.CartActionClear})
}

func (h *CartHandlers) dispatchAction(w http.ResponseWriter, r *http.Request) {
	var req cartActionRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	action := services.CartAction{
		Type:      domain.CartActionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		ProductID: strings.TrimSpace(req.ProductID),
	}
	if req.Item != nil {
		action.Item = &services.CartItem{ProductID: strings.TrimSpace(req.Item.ProductID), Qty: req.Item.Qty}
	}
	if req.Address != nil {
		addr := req.Address.toDomain()
		action.Address = &addr
	}
	h.dispatch(w, r, action)
}

// putItem sets the quantity of one product, replacing any existing line.
func (h *CartHandlers) putItem(w http.ResponseWriter, r *http.Request) {
	var req cartQtyRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	h.dispatch(w, r, services.CartAction{
		Type: domain.CartActionAdd,
		Item: &services.CartItem{ProductID: chi.URLParam(r, "productId"), Qty: req.Qty},
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, services.CartAction{Type: domain.CartActionRemove, ProductID: chi.URLParam(r, "productId")})
}

func (h *CartHandlers) saveShippingAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	addr := req.toDomain()
	h.dispatch(w, r, services.CartAction{Type: domain.CartActionSaveShipping, Address: &addr})
}

func (h *CartHandlers) dispatch(w http.ResponseWriter, r *http.Request, action services.CartAction) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Dispatch(ctx, identity.UID, action)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func writeCart(w http.ResponseWriter, cart services.Cart) {
	writeNoStore(w)
	if !cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput), errors.Is(err, services.ErrInvalidAddress):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable("cart"))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart request failed", http.StatusInternalServerError))
	}
}
