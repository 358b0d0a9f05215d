package orders

import (
	"campus_market/models"

	"github.com/shopspring/decimal"
)

// FeeTable maps a delivery method to the fee charged per order line.
type FeeTable map[models.DeliveryMethod]decimal.Decimal

// NewFeeTable builds the fee table; meetups are always free.
func NewFeeTable(campus, courier decimal.Decimal) FeeTable {
	return FeeTable{
		models.DeliveryMeetup:  decimal.Zero,
		models.DeliveryCampus:  campus,
		models.DeliveryCourier: courier,
	}
}

func (f FeeTable) Fee(method models.DeliveryMethod) (decimal.Decimal, bool) {
	fee, ok := f[method]
	return fee, ok
}
