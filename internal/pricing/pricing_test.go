package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTaxInclusive(t *testing.T) {
	got := TaxInclusive(dec("100"))
	if !got.Equal(dec("120")) {
		t.Fatalf("expected 120, got %s", got)
	}
	got = TaxInclusive(dec("1250.90"))
	if !got.Equal(dec("1501.08")) {
		t.Fatalf("expected 1501.08, got %s", got)
	}
}

func TestCartTotals(t *testing.T) {
	items := []domain.CartItem{
		{Price: dec("100"), Quantity: 2},
		{Price: dec("49.50"), Quantity: 1},
	}
	sub, tax, total := CartTotals(items)
	if !sub.Equal(dec("249.50")) {
		t.Fatalf("subtotal: expected 249.50, got %s", sub)
	}
	if !tax.Equal(dec("49.90")) {
		t.Fatalf("tax: expected 49.90, got %s", tax)
	}
	if !total.Equal(sub.Add(tax)) {
		t.Fatalf("total %s must equal subtotal %s + tax %s", total, sub, tax)
	}
}

func TestCartTotalsEmptyAndZero(t *testing.T) {
	sub, tax, total := CartTotals(nil)
	if !sub.IsZero() || !tax.IsZero() || !total.IsZero() {
		t.Fatalf("empty cart must total zero, got %s/%s/%s", sub, tax, total)
	}

	sub, _, _ = CartTotals([]domain.CartItem{{Quantity: 3}})
	if !sub.IsZero() {
		t.Fatalf("zero-priced line must contribute nothing, got %s", sub)
	}
}

func TestReceivePurchaseWeightedAverage(t *testing.T) {
	stock, cost, err := ReceivePurchase(10, dec("100"), 5, dec("130"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 15 {
		t.Fatalf("expected stock 15, got %d", stock)
	}
	if !cost.Equal(dec("110")) {
		t.Fatalf("expected blended cost 110, got %s", cost)
	}
}

func TestReceivePurchaseRoundsToTwoPlaces(t *testing.T) {
	_, cost, err := ReceivePurchase(3, dec("10"), 3, dec("10.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (3*10 + 3*10.05) / 6 = 10.025 -> 10.03
	if !cost.Equal(dec("10.03")) {
		t.Fatalf("expected 10.03, got %s", cost)
	}
}

func TestReceivePurchaseFirstLotOnEmptyStock(t *testing.T) {
	stock, cost, err := ReceivePurchase(0, decimal.Zero, 4, dec("25.40"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 4 || !cost.Equal(dec("25.40")) {
		t.Fatalf("expected 4 @ 25.40, got %d @ %s", stock, cost)
	}
}

func TestReceivePurchaseRejectsBadInput(t *testing.T) {
	if _, _, err := ReceivePurchase(10, dec("100"), 0, dec("50")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, _, err := ReceivePurchase(10, dec("100"), -5, dec("50")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for negative qty, got %v", err)
	}
	if _, _, err := ReceivePurchase(10, dec("100"), 5, dec("-1")); !errors.Is(err, ErrInvalidCost) {
		t.Fatalf("expected ErrInvalidCost, got %v", err)
	}
}
