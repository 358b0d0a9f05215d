package orders

import "errors"

var (
	ErrNotFound              = errors.New("order not found")
	ErrForbidden             = errors.New("order belongs to another user")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidTransition     = errors.New("invalid order status transition")
	ErrNotTerminal           = errors.New("order is still pending")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrUnknownDeliveryMethod = errors.New("unknown delivery method")
	ErrProductUnavailable    = errors.New("product is not available")
	ErrOwnListing            = errors.New("cannot order your own listing")
)
