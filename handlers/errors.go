package handlers

import (
	"errors"

	"campus_market/internal/cart"
	"campus_market/internal/catalog"
	"campus_market/internal/chat"
	"campus_market/internal/feed"
	"campus_market/internal/orders"
	"campus_market/internal/storage"
	"campus_market/internal/verification"
	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	notFound = []error{
		gorm.ErrRecordNotFound,
		orders.ErrNotFound,
		cart.ErrNotFound,
		catalog.ErrNotFound,
		chat.ErrNotFound,
		chat.ErrUnknownUser,
		feed.ErrNotFound,
		verification.ErrNotFound,
		storage.ErrNotFound,
	}
	forbidden = []error{
		orders.ErrForbidden,
		catalog.ErrForbidden,
		catalog.ErrNotVerified,
		chat.ErrNotParticipant,
		feed.ErrForbidden,
	}
	conflict = []error{
		orders.ErrInsufficientStock,
		orders.ErrInvalidTransition,
		orders.ErrNotTerminal,
		orders.ErrProductUnavailable,
		catalog.ErrNotPending,
		cart.ErrExceedsStock,
		cart.ErrProductUnavailable,
		verification.ErrAlreadyPending,
		verification.ErrAlreadyVerified,
		verification.ErrNotPending,
	}
	invalid = []error{
		orders.ErrEmptyCart,
		orders.ErrUnknownDeliveryMethod,
		orders.ErrOwnListing,
		cart.ErrInvalidQuantity,
		cart.ErrOwnListing,
		catalog.ErrInvalidMarkup,
		chat.ErrSelfChat,
		chat.ErrEmptyMessage,
		feed.ErrEmptyContent,
		feed.ErrTooLong,
		verification.ErrIncomplete,
		models.ErrInvalidPrice,
		models.ErrInvalidQuantity,
		models.ErrMissingTitle,
	}
)

// mapError turns a domain error into a *fiber.Error carrying the matching
// status code. Unknown errors pass through and surface as 500.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case matches(err, notFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case matches(err, forbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case matches(err, conflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case matches(err, invalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func matches(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
