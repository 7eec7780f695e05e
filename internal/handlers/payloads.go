package handlers

import (
	"strings"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/services"
)

type addressPayload struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func buildAddressPayload(addr domain.ShippingAddress) addressPayload {
	return addressPayload{
		FullName:   addr.FullName,
		Phone:      addr.Phone,
		Address:    addr.Address,
		City:       addr.City,
		District:   addr.District,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

func (p addressPayload) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   strings.TrimSpace(p.FullName),
		Phone:      strings.TrimSpace(p.Phone),
		Address:    strings.TrimSpace(p.Address),
		City:       strings.TrimSpace(p.City),
		District:   strings.TrimSpace(p.District),
		PostalCode: strings.TrimSpace(p.PostalCode),
		Country:    strings.TrimSpace(p.Country),
	}
}

func optionalAddressPayload(addr *domain.ShippingAddress) *addressPayload {
	if addr == nil {
		return nil
	}
	payload := buildAddressPayload(*addr)
	return &payload
}

type userPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Gender    string `json:"gender,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	Address   string `json:"address,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func buildUserPayload(user services.User) userPayload {
	return userPayload{
		ID:        user.ID,
		Name:      user.Name,
		Surname:   user.Surname,
		Email:     user.Email,
		Phone:     user.Phone,
		Gender:    user.Gender,
		BirthDate: user.BirthDate,
		Address:   user.Address,
		IsAdmin:   user.IsAdmin,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

type productPayload struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DescriptionHTML string   `json:"descriptionHtml,omitempty"`
	Price           int64    `json:"price"`
	Currency        string   `json:"currency"`
	Images          []string `json:"images"`
	Thumbnails      []string `json:"thumbnails,omitempty"`
	Category        string   `json:"category"`
	Color           string   `json:"color,omitempty"`
	Material        string   `json:"material,omitempty"`
	InStock         bool     `json:"inStock"`
	StockCount      int      `json:"stockCount"`
	IsFeatured      bool     `json:"isFeatured"`
	IsNew           bool     `json:"isNew"`
	IsBestseller    bool     `json:"isBestseller"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

func buildProductPayload(p services.Product) productPayload {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productPayload{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
		Description:     p.Description,
		DescriptionHTML: p.DescriptionHTML,
		Price:           p.Price,
		Currency:        p.Currency,
		Images:          images,
		Thumbnails:      p.Thumbnails,
		Category:        string(p.Category),
		Color:           p.Color,
		Material:        p.Material,
		InStock:         p.InStock,
		StockCount:      p.StockCount,
		IsFeatured:      p.IsFeatured,
		IsNew:           p.IsNew,
		IsBestseller:    p.IsBestseller,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
}

type cartPayload struct {
	UserID          string            `json:"userId"`
	Items           []cartItemPayload `json:"items"`
	ItemCount       int               `json:"itemCount"`
	ItemsPrice      int64             `json:"itemsPrice"`
	ShippingAddress *addressPayload   `json:"shippingAddress,omitempty"`
	UpdatedAt       string            `json:"updatedAt,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Qty:       item.Qty,
		})
	}
	return cartPayload{
		UserID:          cart.UserID,
		Items:           items,
		ItemCount:       cart.ItemCount(),
		ItemsPrice:      cart.ItemsPrice(),
		ShippingAddress: optionalAddressPayload(cart.ShippingAddress),
		UpdatedAt:       formatTime(cart.UpdatedAt),
	}
}

type paymentResultPayload struct {
	Provider    string `json:"provider"`
	MerchantOID string `json:"merchantOid"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type trackingPayload struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl,omitempty"`
	ShipmentID     string `json:"shipmentId,omitempty"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
}

type orderPayload struct {
	ID              string                `json:"id"`
	OrderNumber     string                `json:"orderNumber"`
	UserID          string                `json:"userId"`
	OrderItems      []orderItemPayload    `json:"orderItems"`
	ShippingAddress addressPayload        `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	ItemsPrice      int64                 `json:"itemsPrice"`
	ShippingPrice   int64                 `json:"shippingPrice"`
	TotalPrice      int64                 `json:"totalPrice"`
	Currency        string                `json:"currency"`
	Status          string                `json:"status"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          string                `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     string                `json:"deliveredAt,omitempty"`
	PaymentResult   *paymentResultPayload `json:"paymentResult,omitempty"`
	Tracking        *trackingPayload      `json:"tracking,omitempty"`
	CreatedAt       string                `json:"createdAt"`
	UpdatedAt       string                `json:"updatedAt,omitempty"`
	CancelledAt     string                `json:"cancelledAt,omitempty"`
	CancelReason    string                `json:"cancelReason,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Qty:       item.Qty,
		})
	}
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		OrderItems:      items,
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		PaymentMethod:   string(order.PaymentMethod),
		ItemsPrice:      order.ItemsPrice,
		ShippingPrice:   order.ShippingPrice,
		TotalPrice:      order.TotalPrice,
		Currency:        order.Currency,
		Status:          string(order.Status),
		IsPaid:          order.IsPaid,
		PaidAt:          formatTimePtr(order.PaidAt),
		IsDelivered:     order.IsDelivered,
		DeliveredAt:     formatTimePtr(order.DeliveredAt),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		CancelledAt:     formatTimePtr(order.CancelledAt),
		CancelReason:    order.CancelReason,
	}
	if pr := order.PaymentResult; pr != nil {
		payload.PaymentResult = &paymentResultPayload{
			Provider:    pr.Provider,
			MerchantOID: pr.MerchantOID,
			Status:      pr.Status,
			Amount:      pr.Amount,
			UpdatedAt:   formatTime(pr.UpdatedAt),
		}
	}
	if t := order.Tracking; t != nil {
		payload.Tracking = &trackingPayload{
			Carrier:        t.Carrier,
			TrackingNumber: t.TrackingNumber,
			TrackingURL:    t.TrackingURL,
			ShipmentID:     t.ShipmentID,
		}
	}
	return payload
}

type orderListPayload struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

func buildOrderListPayload(page domain.Page[services.Order]) orderListPayload {
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	return orderListPayload{Items: items, NextPageToken: page.NextPageToken}
}

type returnItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type returnPayload struct {
	ID           string              `json:"id"`
	OrderID      string              `json:"orderId"`
	OrderNumber  string              `json:"orderNumber,omitempty"`
	UserID       string              `json:"userId"`
	Items        []returnItemPayload `json:"items"`
	Reason       string              `json:"reason"`
	Note         string              `json:"note,omitempty"`
	Status       string              `json:"status"`
	RefundAmount int64               `json:"refundAmount"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt,omitempty"`
	ResolvedAt   string              `json:"resolvedAt,omitempty"`
}

func buildReturnPayload(ret services.ReturnRequest) returnPayload {
	items := make([]returnItemPayload, 0, len(ret.Items))
	for _, item := range ret.Items {
		items = append(items, returnItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}
	return returnPayload{
		ID:           ret.ID,
		OrderID:      ret.OrderID,
		OrderNumber:  ret.OrderNumber,
		UserID:       ret.UserID,
		Items:        items,
		Reason:       string(ret.Reason),
		Note:         ret.Note,
		Status:       string(ret.Status),
		RefundAmount: ret.RefundAmount,
		CreatedAt:    formatTime(ret.CreatedAt),
		UpdatedAt:    formatTime(ret.UpdatedAt),
		ResolvedAt:   formatTimePtr(ret.ResolvedAt),
	}
}

type checkoutPayload struct {
	Step            int             `json:"step"`
	CompletedSteps  []int           `json:"completedSteps"`
	ShippingAddress *addressPayload `json:"shippingAddress,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	PaymentToken    string          `json:"paymentToken,omitempty"`
	IframeURL       string          `json:"iframeUrl,omitempty"`
	OrderID         string          `json:"orderId,omitempty"`
	MerchantOID     string          `json:"merchantOid,omitempty"`
	Status          string          `json:"status"`
	FailureReason   string          `json:"failureReason,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

func buildCheckoutPayload(session services.CheckoutSession) checkoutPayload {
	steps := make([]int, 0, len(session.CompletedSteps))
	for _, step := range session.CompletedSteps {
		steps = append(steps, int(step))
	}
	return checkoutPayload{
		Step:            int(session.Step),
		CompletedSteps:  steps,
		ShippingAddress: optionalAddressPayload(session.ShippingAddress),
		Provider:        session.Provider,
		PaymentToken:    session.PaymentToken,
		IframeURL:       session.IframeURL,
		OrderID:         session.OrderID,
		MerchantOID:     session.MerchantOID,
		Status:          string(session.Status),
		FailureReason:   session.FailureReason,
		UpdatedAt:       formatTime(session.UpdatedAt),
	}
}
