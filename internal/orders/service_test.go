package orders

import (
	"context"
	"sync"
	"testing"

	"campus_market/internal/metrics"
	"campus_market/internal/testutil"
	"campus_market/models"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uint][]models.OrderStatus
}

func (n *recordingNotifier) NotifyOrder(userID uint, order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[uint][]models.OrderStatus)
	}
	n.events[userID] = append(n.events[userID], order.Status)
}

type baseSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	svc      *Service
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	buyer    *models.User
	seller   *models.User
}

type OrderServiceSuite struct {
	baseSuite
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *baseSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.notifier = &recordingNotifier{}
	s.metrics = metrics.New()
	fees := NewFeeTable(decimal.NewFromInt(15), decimal.NewFromInt(50))
	s.svc = NewService(s.db, fees, s.notifier, nil, s.metrics)
	s.buyer = testutil.CreateUser(s.T(), s.db, models.RoleUser, false)
	s.seller = testutil.CreateUser(s.T(), s.db, models.RoleUser, true)
}

func (s *baseSuite) placeOrder(product *models.Product, quantity int) *models.Order {
	order := &models.Order{
		BuyerID:        s.buyer.ID,
		SellerID:       product.SellerID,
		ProductID:      product.ID,
		Quantity:       quantity,
		UnitPrice:      product.Price,
		Subtotal:       product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		DeliveryMethod: models.DeliveryMeetup,
		DeliveryFee:    decimal.Zero,
		FinalTotal:     product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:         models.OrderPending,
		CheckoutKey:    "k-" + product.Title,
	}
	s.Require().NoError(s.db.Create(order).Error)
	return order
}

func (s *baseSuite) reload(product *models.Product) *models.Product {
	var p models.Product
	s.Require().NoError(s.db.First(&p, product.ID).Error)
	return &p
}

func (s *baseSuite) statusOf(orderID uint) models.OrderStatus {
	var o models.Order
	s.Require().NoError(s.db.First(&o, orderID).Error)
	return o.Status
}

func (s *OrderServiceSuite) TestApproveRejectsInsufficientStock() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 5)

	_, err := s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.ErrorIs(err, ErrInsufficientStock)

	s.Equal(3, *s.reload(product).Quantity)
	s.Equal(models.OrderPending, s.statusOf(order.ID))
	s.Empty(s.notifier.events)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.OrderTransitions.WithLabelValues("approved", "error")))
}

func (s *OrderServiceSuite) TestApproveDecrementsStock() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	other := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "4.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 2)

	approved, err := s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderApproved, approved.Status)

	s.Equal(1, *s.reload(product).Quantity)
	s.Equal(3, *s.reload(other).Quantity)
	s.Equal(models.OrderApproved, s.statusOf(order.ID))
	s.Equal([]models.OrderStatus{models.OrderApproved}, s.notifier.events[s.buyer.ID])
}

func (s *OrderServiceSuite) TestApproveIsAppliedOnce() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(10))
	order := s.placeOrder(product, 4)

	_, err := s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.Require().NoError(err)
	_, err = s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.ErrorIs(err, ErrInvalidTransition)

	s.Equal(6, *s.reload(product).Quantity)
}

func (s *OrderServiceSuite) TestApproveUnlimitedNeverTouchesQuantity() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "3.00", nil)
	order := s.placeOrder(product, 50)

	_, err := s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.Require().NoError(err)

	reloaded := s.reload(product)
	s.Nil(reloaded.Quantity)
	s.True(reloaded.IsUnlimited)
}

func (s *OrderServiceSuite) TestApproveSecondOrderExceedsRemainingStock() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(2))
	first := s.placeOrder(product, 2)
	second := &models.Order{}
	*second = *first
	second.ID = 0
	second.CheckoutKey = "other"
	s.Require().NoError(s.db.Create(second).Error)

	_, err := s.svc.Approve(s.ctx, s.seller.ID, first.ID)
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.seller.ID, second.ID)
	s.ErrorIs(err, ErrInsufficientStock)
	s.Equal(models.OrderPending, s.statusOf(second.ID))
	s.Equal(0, *s.reload(product).Quantity)
}

func (s *OrderServiceSuite) TestApproveRollsBackWhenStockMovesMidTransaction() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 2)

	// Another buyer empties the listing between the stock check and the
	// decrement, after the order row has already been flipped.
	drained := false
	err := s.db.Callback().Update().Before("gorm:update").Register("test:drain_stock", func(db *gorm.DB) {
		if drained || db.Statement.Table != "products" {
			return
		}
		drained = true
		db.AddError(db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE products SET quantity = 0 WHERE id = ?", product.ID).Error)
	})
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.ErrorIs(err, ErrInsufficientStock)
	s.True(drained)

	s.Equal(models.OrderPending, s.statusOf(order.ID))
	s.Equal(3, *s.reload(product).Quantity)
	s.Empty(s.notifier.events)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.OrderTransitions.WithLabelValues("approved", "error")))
}

func (s *OrderServiceSuite) TestDeclineOnlyChangesStatus() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 2)

	declined, err := s.svc.Decline(s.ctx, s.seller.ID, order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderDeclined, declined.Status)
	s.Equal(order.Quantity, declined.Quantity)
	s.True(order.FinalTotal.Equal(declined.FinalTotal))
	s.Equal(3, *s.reload(product).Quantity)

	_, err = s.svc.Approve(s.ctx, s.seller.ID, order.ID)
	s.ErrorIs(err, ErrInvalidTransition)
	_, err = s.svc.Decline(s.ctx, s.seller.ID, order.ID)
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *OrderServiceSuite) TestOnlySellerCanDecide() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 1)

	_, err := s.svc.Approve(s.ctx, s.buyer.ID, order.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.Decline(s.ctx, s.buyer.ID, order.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.Approve(s.ctx, s.seller.ID, 9999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *OrderServiceSuite) TestDeleteRequiresTerminalState() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(3))
	order := s.placeOrder(product, 1)

	s.ErrorIs(s.svc.Delete(s.ctx, s.buyer.ID, order.ID), ErrNotTerminal)

	_, err := s.svc.Decline(s.ctx, s.seller.ID, order.ID)
	s.Require().NoError(err)

	stranger := testutil.CreateUser(s.T(), s.db, models.RoleUser, false)
	s.ErrorIs(s.svc.Delete(s.ctx, stranger.ID, order.ID), ErrForbidden)
	s.Require().NoError(s.svc.Delete(s.ctx, s.buyer.ID, order.ID))

	_, err = s.svc.Get(s.ctx, s.buyer.ID, order.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *OrderServiceSuite) TestListings() {
	product := testutil.CreateProduct(s.T(), s.db, s.seller.ID, "10.00", testutil.IntPtr(9))
	first := s.placeOrder(product, 1)
	second := &models.Order{}
	*second = *first
	second.ID = 0
	second.CheckoutKey = "second"
	s.Require().NoError(s.db.Create(second).Error)
	_, err := s.svc.Decline(s.ctx, s.seller.ID, first.ID)
	s.Require().NoError(err)

	all, err := s.svc.ListForBuyer(s.ctx, s.buyer.ID, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	pending, err := s.svc.ListForSeller(s.ctx, s.seller.ID, models.OrderPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)
	s.Equal(product.ID, pending[0].Product.ID)

	none, err := s.svc.ListForSeller(s.ctx, s.buyer.ID, "")
	s.Require().NoError(err)
	s.Empty(none)
}
