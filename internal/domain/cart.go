package domain

import "time"

// CartItem is one product line. A cart holds at most one line per product.
type CartItem struct {
	ProductID string
	Name      string
	Image     string
	Price     int64
	Qty       int
}

// Cart is the persisted cart state for a user.
type Cart struct {
	UserID          string
	Items           []CartItem
	ShippingAddress *ShippingAddress
	UpdatedAt       time.Time
}

// ItemsPrice sums price*qty across lines.
func (c Cart) ItemsPrice() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Qty)
	}
	return total
}

// ItemCount sums quantities.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Qty
	}
	return count
}

// CartActionType names a cart reducer action.
type CartActionType string

const (
	CartActionAdd          CartActionType = "ADD_TO_CART"
	CartActionRemove       CartActionType = "REMOVE_FROM_CART"
	CartActionSaveShipping CartActionType = "SAVE_SHIPPING_ADDRESS"
	CartActionClear        CartActionType = "CLEAR_CART"
)

// CartAction is a single reducer input. Only the field matching Type is read.
type CartAction struct {
	Type      CartActionType
	Item      *CartItem
	ProductID string
	Address   *ShippingAddress
}
