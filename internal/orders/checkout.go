package orders

import (
	"context"
	"fmt"

	"campus_market/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckoutRequest struct {
	BuyerID        uint
	DeliveryMethod models.DeliveryMethod
	// IdempotencyKey identifies one checkout attempt. Retries with the same
	// key return the orders created by the first attempt.
	IdempotencyKey string
	Note           string
}

type CheckoutResult struct {
	CheckoutKey string          `json:"checkout_key"`
	Orders      []models.Order  `json:"orders"`
	Total       decimal.Decimal `json:"total"`
	Replayed    bool            `json:"replayed"`
}

// Checkout turns the buyer's cart into one pending order per line. All rows
// are written and the cart is cleared in a single transaction.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	result, err := s.checkout(ctx, req)
	switch {
	case err != nil:
		s.metrics.ObserveCheckout("failed")
		s.log.Warn("checkout failed", zap.Uint("buyer_id", req.BuyerID), zap.Error(err))
	case result.Replayed:
		s.metrics.ObserveCheckout("replayed")
	default:
		s.metrics.ObserveCheckout("created")
		s.log.Info("checkout completed",
			zap.Uint("buyer_id", req.BuyerID),
			zap.String("checkout_key", result.CheckoutKey),
			zap.Int("orders", len(result.Orders)))
		for i := range result.Orders {
			s.notifier.NotifyOrder(result.Orders[i].SellerID, &result.Orders[i])
		}
	}
	return result, err
}

func (s *Service) checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	fee, ok := s.fees.Fee(req.DeliveryMethod)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeliveryMethod, req.DeliveryMethod)
	}
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	result := &CheckoutResult{CheckoutKey: key, Total: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Deleted orders still own their key; a retry after deletion is a
		// replay, not a second checkout.
		var existing []models.Order
		if err := tx.Unscoped().Where("buyer_id = ? AND checkout_key = ?", req.BuyerID, key).
			Order("id").Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			result.Orders = existing
			result.Replayed = true
			return nil
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("user_id = ?", req.BuyerID).
			Order("id").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		orders := make([]models.Order, 0, len(items))
		for _, item := range items {
			order, err := buildOrder(req, key, fee, item)
			if err != nil {
				return err
			}
			orders = append(orders, order)
		}

		if err := tx.Create(&orders).Error; err != nil {
			return fmt.Errorf("create orders: %w", err)
		}
		if err := tx.Where("user_id = ?", req.BuyerID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		result.Orders = orders
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range result.Orders {
		result.Total = result.Total.Add(o.FinalTotal)
	}
	return result, nil
}

// buildOrder prices one cart line: unit price times quantity plus the
// per-line delivery fee.
func buildOrder(req CheckoutRequest, key string, fee decimal.Decimal, item models.CartItem) (models.Order, error) {
	p := item.Product
	if p.ID == 0 || p.Status != models.ProductApproved {
		return models.Order{}, fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
	}
	if p.SellerID == req.BuyerID {
		return models.Order{}, fmt.Errorf("%w: product %d", ErrOwnListing, p.ID)
	}
	if !p.HasStock(item.Quantity) {
		return models.Order{}, fmt.Errorf("%w: %q requested %d, available %d",
			ErrInsufficientStock, p.Title, item.Quantity, p.Available())
	}

	subtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return models.Order{
		BuyerID:        req.BuyerID,
		SellerID:       p.SellerID,
		ProductID:      p.ID,
		Quantity:       item.Quantity,
		UnitPrice:      p.Price,
		Subtotal:       subtotal,
		DeliveryMethod: req.DeliveryMethod,
		DeliveryFee:    fee,
		FinalTotal:     subtotal.Add(fee),
		Note:           req.Note,
		Status:         models.OrderPending,
		CheckoutKey:    key,
	}, nil
}
