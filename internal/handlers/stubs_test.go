package handlers

import (
	"context"
	"net/http"
	"net/url"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/services"
)

func withIdentity(req *http.Request, uid string, admin bool) *http.Request {
	roles := []string{auth.RoleCustomer}
	if admin {
		roles = append(roles, auth.RoleAdmin)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

type stubCartService struct {
	getFn      func(ctx context.Context, userID string) (services.Cart, error)
	dispatchFn func(ctx context.Context, userID string, action services.CartAction) (services.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.Cart, error) {
	return s.getFn(ctx, userID)
}

func (s *stubCartService) Dispatch(ctx context.Context, userID string, action services.CartAction) (services.Cart, error) {
	return s.dispatchFn(ctx, userID, action)
}

type stubCatalogService struct {
	listFn   func(ctx context.Context, filter services.ProductFilter, page pagination.Params) (services.ProductList, error)
	getFn    func(ctx context.Context, id string) (services.Product, error)
	createFn func(ctx context.Context, input services.ProductInput) (services.Product, error)
	uploadFn func(ctx context.Context, cmd services.ProductImageUpload) (services.Product, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductFilter, page pagination.Params) (services.ProductList, error) {
	return s.listFn(ctx, filter, page)
}

func (s *stubCatalogService) Facets(context.Context) (services.ProductFacets, error) {
	return services.ProductFacets{
		Categories: []domain.ProductCategory{domain.CategoryRings},
		Colors:     []string{"gold"},
		MinPrice:   1000,
		MaxPrice:   90000,
	}, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id string) (services.Product, error) {
	return s.getFn(ctx, id)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input services.ProductInput) (services.Product, error) {
	return s.createFn(ctx, input)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, _ string, input services.ProductInput) (services.Product, error) {
	return s.createFn(ctx, input)
}

func (s *stubCatalogService) DeleteProduct(context.Context, string) error { return nil }

func (s *stubCatalogService) UploadImage(ctx context.Context, cmd services.ProductImageUpload) (services.Product, error) {
	return s.uploadFn(ctx, cmd)
}

type stubCheckoutService struct {
	session     services.CheckoutSession
	err         error
	lastPayment services.CreatePaymentCommand
	lastStep    services.CheckoutStep
	lastResult  string
	callbackErr error
	callbacks   []url.Values
}

func (s *stubCheckoutService) GetSession(context.Context, string) (services.CheckoutSession, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) Start(context.Context, string) (services.CheckoutSession, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) SaveShipping(_ context.Context, _ string, addr services.ShippingAddress) (services.CheckoutSession, error) {
	session := s.session
	session.ShippingAddress = &addr
	return session, s.err
}

func (s *stubCheckoutService) CreatePendingOrder(_ context.Context, userID string) (services.Order, error) {
	return services.Order{ID: "o1", UserID: userID, OrderNumber: "JW-2026-000001", Status: domain.OrderStatusPending}, s.err
}

func (s *stubCheckoutService) CreatePayment(_ context.Context, cmd services.CreatePaymentCommand) (services.CheckoutSession, error) {
	s.lastPayment = cmd
	return s.session, s.err
}

func (s *stubCheckoutService) GoTo(_ context.Context, _ string, step services.CheckoutStep) (services.CheckoutSession, error) {
	s.lastStep = step
	return s.session, s.err
}

func (s *stubCheckoutService) Confirm(_ context.Context, _ string, result string) (services.CheckoutSession, error) {
	s.lastResult = result
	return s.session, s.err
}

func (s *stubCheckoutService) HandleCallback(_ context.Context, _ string, form url.Values) error {
	s.callbacks = append(s.callbacks, form)
	return s.callbackErr
}

type stubOrderService struct {
	services.OrderService
	getFn    func(ctx context.Context, id string, viewer services.Viewer) (services.Order, error)
	listFn   func(ctx context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error)
	cancelFn func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error)
	statusFn func(ctx context.Context, cmd services.OrderTransitionCommand) (services.Order, error)
}

func (s *stubOrderService) Get(ctx context.Context, id string, viewer services.Viewer) (services.Order, error) {
	return s.getFn(ctx, id, viewer)
}

func (s *stubOrderService) ListMine(ctx context.Context, userID string, pager services.Pagination) (domain.Page[services.Order], error) {
	return s.listFn(ctx, services.OrderListFilter{UserID: userID, Pagination: pager})
}

func (s *stubOrderService) ListAll(ctx context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error) {
	return s.listFn(ctx, filter)
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	return s.cancelFn(ctx, cmd)
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderTransitionCommand) (services.Order, error) {
	return s.statusFn(ctx, cmd)
}

type stubReturnService struct {
	services.ReturnService
	eligibility services.ReturnEligibility
	err         error
	created     services.CreateReturnCommand
	listed      services.ReturnListFilter
}

func (s *stubReturnService) Eligibility(context.Context, string, services.Viewer) (services.ReturnEligibility, error) {
	return s.eligibility, s.err
}

func (s *stubReturnService) Create(_ context.Context, cmd services.CreateReturnCommand) (services.ReturnRequest, error) {
	s.created = cmd
	if s.err != nil {
		return services.ReturnRequest{}, s.err
	}
	return services.ReturnRequest{ID: "ret_1", OrderID: cmd.OrderID, UserID: cmd.UserID, Reason: cmd.Reason, Status: domain.ReturnStatusPending}, nil
}

func (s *stubReturnService) List(_ context.Context, filter services.ReturnListFilter) (domain.Page[services.ReturnRequest], error) {
	s.listed = filter
	return domain.Page[services.ReturnRequest]{Items: []services.ReturnRequest{}}, s.err
}

type stubAuthService struct {
	services.AuthService
	loginFn    func(ctx context.Context, email, password string) (services.AuthResult, error)
	registerFn func(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error)
	confirmFn  func(ctx context.Context, cmd services.ConfirmPasswordChangeCommand) error
	user       services.User
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (services.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Register(ctx context.Context, cmd services.RegisterCommand) (services.AuthResult, error) {
	return s.registerFn(ctx, cmd)
}

func (s *stubAuthService) Me(context.Context, string) (services.User, error) {
	return s.user, nil
}

func (s *stubAuthService) ConfirmPasswordChange(ctx context.Context, cmd services.ConfirmPasswordChangeCommand) error {
	return s.confirmFn(ctx, cmd)
}

var (
	_ services.CartService     = (*stubCartService)(nil)
	_ services.CatalogService  = (*stubCatalogService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
)
