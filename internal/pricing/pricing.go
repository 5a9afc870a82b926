// Package pricing holds the tax and costing arithmetic: VAT application,
// cart totals, and the weighted-average cost recalculation used when stock
// is received. Everything is pure and operates on decimals.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
)

// VATRate is the fixed system-wide VAT rate applied on top of
// tax-exclusive prices.
var VATRate = decimal.New(20, -2)

var one = decimal.New(1, 0)

var ErrInvalidQuantity = errors.New("invalid quantity")
var ErrInvalidCost = errors.New("invalid unit cost")

// TaxInclusive returns the display price including VAT.
func TaxInclusive(price decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Add(VATRate))
}

// CartTotals computes the tax-exclusive subtotal, the VAT amount and the
// grand total of a set of cart lines. Zero-valued prices or quantities
// simply contribute nothing.
func CartTotals(items []domain.CartItem) (subTotal, taxTotal, total decimal.Decimal) {
	for _, item := range items {
		subTotal = subTotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	taxTotal = subTotal.Mul(VATRate)
	total = subTotal.Add(taxTotal)
	return subTotal, taxTotal, total
}

// ReceivePurchase folds a received lot into a product's weighted-average
// cost. The blended cost is rounded to 2 decimal places; when the
// resulting stock is zero the incoming unit cost is used as-is. This is
// the only place unit cost changes outside a direct manual edit.
func ReceivePurchase(stock int, costPrice decimal.Decimal, addedQty int, unitCost decimal.Decimal) (newStock int, newCost decimal.Decimal, err error) {
	if addedQty <= 0 {
		return 0, decimal.Zero, ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return 0, decimal.Zero, ErrInvalidCost
	}

	newStock = stock + addedQty
	if newStock == 0 {
		return newStock, unitCost, nil
	}

	oldValue := costPrice.Mul(decimal.NewFromInt(int64(stock)))
	addedValue := unitCost.Mul(decimal.NewFromInt(int64(addedQty)))
	newCost = oldValue.Add(addedValue).Div(decimal.NewFromInt(int64(newStock))).Round(2)
	return newStock, newCost, nil
}
