// Package orders implements the order request lifecycle: checkout, seller
// approval with stock reconciliation, decline and deletion.
package orders

import (
	"context"
	"errors"
	"fmt"

	"campus_market/internal/metrics"
	"campus_market/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier pushes order changes to connected clients.
type Notifier interface {
	NotifyOrder(userID uint, order *models.Order)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(uint, *models.Order) {}

type Service struct {
	db       *gorm.DB
	fees     FeeTable
	notifier Notifier
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewService wires the order service. notifier, log and m may be nil.
func NewService(db *gorm.DB, fees FeeTable, notifier Notifier, log *zap.Logger, m *metrics.Metrics) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, fees: fees, notifier: notifier, log: log, metrics: m}
}

// Get returns an order visible to the buyer or the seller.
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != userID && order.SellerID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

// ListForBuyer returns the buyer's orders, newest first. An empty status lists all.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uint, status models.OrderStatus) ([]models.Order, error) {
	return s.list(ctx, "buyer_id = ?", buyerID, status)
}

// ListForSeller returns order requests for the seller's listings, newest first.
func (s *Service) ListForSeller(ctx context.Context, sellerID uint, status models.OrderStatus) ([]models.Order, error) {
	return s.list(ctx, "seller_id = ?", sellerID, status)
}

func (s *Service) list(ctx context.Context, cond string, userID uint, status models.OrderStatus) ([]models.Order, error) {
	q := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Buyer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, full_name, image_url")
		}).
		Where(cond, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Approve moves a pending order to approved and, for finite-stock listings,
// decrements the product quantity by the ordered amount in the same
// transaction. If either write fails neither is applied.
func (s *Service) Approve(ctx context.Context, sellerID, orderID uint) (*models.Order, error) {
	order, err := s.approve(ctx, sellerID, orderID)
	s.metrics.ObserveTransition(string(models.OrderApproved), err)
	if err != nil {
		return nil, err
	}
	s.log.Info("order approved",
		zap.Uint("order_id", order.ID),
		zap.Uint("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity))
	s.notifier.NotifyOrder(order.BuyerID, order)
	return order, nil
}

func (s *Service) approve(ctx context.Context, sellerID, orderID uint) (*models.Order, error) {
	order, err := s.findForSeller(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderApproved) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, models.OrderApproved)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, order.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !product.HasStock(order.Quantity) {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, order.Quantity, product.Available())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The status guard makes the decrement happen at most once per order.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderPending).
			Update("status", models.OrderApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %d is no longer pending", ErrInvalidTransition, order.ID)
		}

		if product.IsUnlimited {
			return nil
		}
		res = tx.Model(&models.Product{}).
			Where("id = ? AND is_unlimited = ? AND quantity >= ?", product.ID, false, order.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", order.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: product %d changed before approval", ErrInsufficientStock, product.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.find(ctx, order.ID)
}

// Decline moves a pending order to declined. Stock is never touched.
func (s *Service) Decline(ctx context.Context, sellerID, orderID uint) (*models.Order, error) {
	order, err := s.decline(ctx, sellerID, orderID)
	s.metrics.ObserveTransition(string(models.OrderDeclined), err)
	if err != nil {
		return nil, err
	}
	s.log.Info("order declined", zap.Uint("order_id", order.ID))
	s.notifier.NotifyOrder(order.BuyerID, order)
	return order, nil
}

func (s *Service) decline(ctx context.Context, sellerID, orderID uint) (*models.Order, error) {
	order, err := s.findForSeller(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderDeclined) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, models.OrderDeclined)
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderPending).
		Update("status", models.OrderDeclined)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, fmt.Errorf("%w: order %d is no longer pending", ErrInvalidTransition, order.ID)
	}
	return s.find(ctx, order.ID)
}

// Delete removes an order from both parties' views. Only terminal orders
// can be deleted.
func (s *Service) Delete(ctx context.Context, userID, orderID uint) error {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !order.Status.IsTerminal() {
		return ErrNotTerminal
	}
	if err := s.db.WithContext(ctx).Delete(&models.Order{}, order.ID).Error; err != nil {
		return err
	}
	s.log.Info("order deleted", zap.Uint("order_id", order.ID), zap.Uint("by", userID))
	return nil
}

func (s *Service) find(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) findForSeller(ctx context.Context, sellerID, orderID uint) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return order, nil
}
