package services

import (
	"context"
	"net/url"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartAction         = domain.CartAction
	ShippingAddress    = domain.ShippingAddress
	Product            = domain.Product
	ProductFilter      = domain.ProductFilter
	ProductFacets      = domain.ProductFacets
	CheckoutSession    = domain.CheckoutSession
	CheckoutStep       = domain.CheckoutStep
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	ReturnRequest      = domain.ReturnRequest
	ReturnEligibility  = domain.ReturnEligibility
	User               = domain.User
	Country            = domain.Country
	SystemHealthReport = domain.SystemHealthReport
)

// Viewer is the caller an operation is performed for. Admins may read other
// users' orders and returns.
type Viewer struct {
	UserID  string
	IsAdmin bool
}

// CartService owns the per-user cart reducer.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	Dispatch(ctx context.Context, userID string, action CartAction) (Cart, error)
}

// CatalogService serves the shop listing and admin product management.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter, page pagination.Params) (ProductList, error)
	Facets(ctx context.Context) (ProductFacets, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, productID string, input ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	UploadImage(ctx context.Context, cmd ProductImageUpload) (Product, error)
}

// AuthService registers, signs in and manages storefront accounts.
type AuthService interface {
	Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	GoogleLogin(ctx context.Context, credential string) (AuthResult, error)
	Me(ctx context.Context, userID string) (User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error)
	RequestPasswordChange(ctx context.Context, userID string) (PasswordCodeReceipt, error)
	ConfirmPasswordChange(ctx context.Context, cmd ConfirmPasswordChangeCommand) error
}

// CheckoutService drives the three step checkout wizard.
type CheckoutService interface {
	GetSession(ctx context.Context, userID string) (CheckoutSession, error)
	Start(ctx context.Context, userID string) (CheckoutSession, error)
	SaveShipping(ctx context.Context, userID string, address ShippingAddress) (CheckoutSession, error)
	CreatePendingOrder(ctx context.Context, userID string) (Order, error)
	CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (CheckoutSession, error)
	GoTo(ctx context.Context, userID string, step CheckoutStep) (CheckoutSession, error)
	Confirm(ctx context.Context, userID string, result string) (CheckoutSession, error)
	HandleCallback(ctx context.Context, provider string, form url.Values) error
}

// OrderService owns order creation and the status lifecycle.
type OrderService interface {
	CreatePending(ctx context.Context, cmd CreatePendingOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string, viewer Viewer) (Order, error)
	ListMine(ctx context.Context, userID string, pager Pagination) (domain.Page[Order], error)
	ListAll(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	MarkPaid(ctx context.Context, cmd PaymentOutcome) (Order, error)
	RecordPaymentFailure(ctx context.Context, cmd PaymentOutcome) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	SetTracking(ctx context.Context, cmd SetTrackingCommand) (Order, error)
}

// ReturnService handles return requests against delivered orders.
type ReturnService interface {
	Eligibility(ctx context.Context, orderID string, viewer Viewer) (ReturnEligibility, error)
	Create(ctx context.Context, cmd CreateReturnCommand) (ReturnRequest, error)
	Get(ctx context.Context, returnID string, viewer Viewer) (ReturnRequest, error)
	List(ctx context.Context, filter ReturnListFilter) (domain.Page[ReturnRequest], error)
	Resolve(ctx context.Context, cmd ResolveReturnCommand) (ReturnRequest, error)
}

// ShippingService books shipments and reports live tracking.
type ShippingService interface {
	Track(ctx context.Context, orderID string, viewer Viewer) (TrackingInfo, error)
	CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (Order, error)
}

// CountryService exposes the shipping destination dataset.
type CountryService interface {
	List(ctx context.Context) ([]Country, error)
	Get(ctx context.Context, code string) (Country, error)
	Cities(ctx context.Context, code string) ([]string, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher emits order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

// Command and DTO definitions ------------------------------------------------

// ProductList is one page of the filtered catalog.
type ProductList struct {
	Items    []Product
	Total    int
	Page     int
	PageSize int
}

// ProductInput is the admin create/update payload. Nil pointers leave the
// field unchanged on update.
type ProductInput struct {
	Name         *string
	Description  *string
	Price        *int64
	Category     *domain.ProductCategory
	Color        *string
	Material     *string
	Images       []string
	StockCount   *int
	IsFeatured   *bool
	IsNew        *bool
	IsBestseller *bool
}

// ProductImageUpload is a raw image posted by an admin.
type ProductImageUpload struct {
	ProductID string
	Filename  string
	Data      []byte
}

type RegisterCommand struct {
	Name     string
	Surname  string
	Email    string
	Password string
	Phone    string
}

// AuthResult is returned on every successful sign-in.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// ProfileUpdate carries the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	Name      *string
	Surname   *string
	Phone     *string
	Gender    *string
	BirthDate *string
	Address   *string
}

type PasswordCodeReceipt struct {
	ExpiresAt time.Time
}

type ConfirmPasswordChangeCommand struct {
	UserID      string
	Code        string
	NewPassword string
}

type CreatePaymentCommand struct {
	UserID   string
	ClientIP string
	// Provider optionally forces a PSP; empty routes by currency.
	Provider       string
	IdempotencyKey string
}

type CreatePendingOrderCommand struct {
	UserID        string
	Items         []CartItem
	Address       ShippingAddress
	PaymentMethod domain.PaymentMethod
}

type OrderListFilter struct {
	UserID     string
	Status     []OrderStatus
	Pagination Pagination
}

type OrderTransitionCommand struct {
	OrderID string
	To      OrderStatus
	Reason  string
	ActorID string
}

// PaymentOutcome is a verified provider notification for an order.
type PaymentOutcome struct {
	MerchantOID string
	Provider    string
	Reference   string
	Status      string
	Amount      int64
	Reason      string
}

type CancelOrderCommand struct {
	OrderID string
	Viewer  Viewer
	Reason  string
}

type SetTrackingCommand struct {
	OrderID  string
	Tracking domain.Tracking
	// MarkShipped also moves a processing order to shipped.
	MarkShipped bool
}

type ReturnItemSelection struct {
	ProductID string
	Qty       int
}

type CreateReturnCommand struct {
	UserID  string
	OrderID string
	Items   []ReturnItemSelection
	Reason  domain.ReturnReason
	Note    string
}

type ReturnListFilter struct {
	UserID     string
	OrderID    string
	Status     []domain.ReturnStatus
	Pagination Pagination
}

// ReturnResolution is the admin decision on a return.
type ReturnResolution string

const (
	ReturnResolutionApprove ReturnResolution = "approve"
	ReturnResolutionReject  ReturnResolution = "reject"
	ReturnResolutionRefund  ReturnResolution = "refund"
)

type ResolveReturnCommand struct {
	ReturnID   string
	Resolution ReturnResolution
	Note       string
	ActorID    string
}

type CreateShipmentCommand struct {
	OrderID     string
	Carrier     string
	WeightGrams int
}

// TrackingInfo merges the stored tracking fields with live carrier events.
type TrackingInfo struct {
	OrderID        string
	OrderNumber    string
	Status         OrderStatus
	Carrier        string
	TrackingNumber string
	TrackingURL    string
	CarrierStatus  string
	Events         []TrackingEvent
}

type TrackingEvent struct {
	Status      string
	Description string
	Location    string
	OccurredAt  time.Time
}
