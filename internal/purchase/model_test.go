package purchase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func eq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func TestItemRecalculate(t *testing.T) {
	it := Item{Quantity: 12, UnitCost: dec("4.25")}
	it.Recalculate()

	eq(t, "51.00", it.TotalPrice)
}

func TestItemReceiveClampsAtOrderedQuantity(t *testing.T) {
	it := Item{Quantity: 10, ReceivedQuantity: 6}

	accepted := it.Receive(7)

	assert.Equal(t, 4, accepted)
	assert.Equal(t, 10, it.ReceivedQuantity)
	assert.True(t, it.IsFullyReceived())
}

func TestItemReceiveIgnoresNonPositive(t *testing.T) {
	it := Item{Quantity: 10, ReceivedQuantity: 3}

	assert.Equal(t, 0, it.Receive(0))
	assert.Equal(t, 0, it.Receive(-5))
	assert.Equal(t, 3, it.ReceivedQuantity)
}

func TestCalculateTotals(t *testing.T) {
	po := PurchaseOrder{
		Items: []Item{
			{Quantity: 10, UnitCost: dec("8.00")},
			{Quantity: 5, UnitCost: dec("4.00")},
		},
		TaxRate:      dec("15"),
		ShippingCost: dec("25.00"),
	}
	po.CalculateTotals()

	eq(t, "100.00", po.Subtotal)
	eq(t, "15.00", po.TaxAmount)
	eq(t, "140.00", po.TotalAmount)
}

func TestCalculateTotalsZeroTaxRateMeansNoTax(t *testing.T) {
	po := PurchaseOrder{
		Items:     []Item{{Quantity: 2, UnitCost: dec("30.00")}},
		TaxAmount: dec("9.99"), // stale value must be cleared
	}
	po.CalculateTotals()

	eq(t, "0", po.TaxAmount)
	eq(t, "60.00", po.TotalAmount)
}

func TestCalculateTotalsFloorsAtZero(t *testing.T) {
	po := PurchaseOrder{
		Items:          []Item{{Quantity: 1, UnitCost: dec("10.00")}},
		DiscountAmount: dec("50.00"),
	}
	po.CalculateTotals()

	eq(t, "0", po.TotalAmount)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusSent, false},
		{StatusApproved, StatusSent, true},
		{StatusApproved, StatusCancelled, true},
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusSent.IsTerminal())
}

func TestCanBeModifiedOnlyWhilePending(t *testing.T) {
	po := PurchaseOrder{Status: StatusPending}
	assert.True(t, po.CanBeModified())

	for _, st := range []Status{StatusApproved, StatusSent, StatusDelivered, StatusCancelled} {
		po.Status = st
		assert.False(t, po.CanBeModified(), "status %s", st)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	po := PurchaseOrder{Status: StatusSent, ExpectedDelivery: &yesterday}
	assert.True(t, po.IsOverdue(now))

	po.ExpectedDelivery = &tomorrow
	assert.False(t, po.IsOverdue(now))

	// A delivered order is never overdue, whatever the date says.
	po.ExpectedDelivery = &yesterday
	po.Status = StatusDelivered
	assert.False(t, po.IsOverdue(now))

	po.Status = StatusSent
	po.ExpectedDelivery = nil
	assert.False(t, po.IsOverdue(now))
}

func TestReceivingProgress(t *testing.T) {
	po := PurchaseOrder{
		Items: []Item{
			{Quantity: 10, ReceivedQuantity: 10},
			{Quantity: 10, ReceivedQuantity: 5},
		},
	}
	eq(t, "75", po.ReceivingProgress())

	empty := PurchaseOrder{}
	eq(t, "0", empty.ReceivingProgress())
}

func TestIsFullyReceived(t *testing.T) {
	po := PurchaseOrder{
		Items: []Item{
			{Quantity: 10, ReceivedQuantity: 10},
			{Quantity: 4, ReceivedQuantity: 3},
		},
	}
	assert.False(t, po.IsFullyReceived())

	po.Items[1].ReceivedQuantity = 4
	assert.True(t, po.IsFullyReceived())

	// An order with no lines cannot be complete.
	assert.False(t, (&PurchaseOrder{}).IsFullyReceived())
}
