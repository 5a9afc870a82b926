package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildContext(t *testing.T) {
	products := []domain.Product{
		{Code: "ELK-001", Name: "Kablo", Stock: 45, MinStockLevel: 10, Price: dec("249.50")},
		{Code: "MOB-101", Name: "Kılıf", Stock: 0, MinStockLevel: 15, Price: dec("150.00")},
		{Code: "AKS-505", Name: "Adaptör", Stock: 5, MinStockLevel: 5, Price: dec("89.90")},
	}
	sales := []domain.Sale{
		{Total: dec("360.00")},
		{Total: dec("120.00")},
	}

	bc := BuildContext(products, sales)

	if bc.TotalProducts != 3 {
		t.Fatalf("totalProducts = %d, want 3", bc.TotalProducts)
	}
	if bc.SalesCount != 2 {
		t.Fatalf("salesCount = %d, want 2", bc.SalesCount)
	}
	if bc.RecentSalesTotal != "480.00" {
		t.Fatalf("recentSalesTotal = %s, want 480.00", bc.RecentSalesTotal)
	}
	if len(bc.CriticalStockProducts) != 2 {
		t.Fatalf("critical products = %d, want 2", len(bc.CriticalStockProducts))
	}
	if bc.CriticalStockProducts[0].Code != "MOB-101" {
		t.Fatalf("first critical code = %s, want MOB-101", bc.CriticalStockProducts[0].Code)
	}
	if len(bc.TopProducts) != 3 {
		t.Fatalf("topProducts = %d, want 3", len(bc.TopProducts))
	}
	// Ordered by stock value: 45x249.50, then 5x89.90, then the one with
	// nothing on the shelf.
	if bc.TopProducts[0].Price != "249.50" {
		t.Fatalf("topProducts[0].Price = %s, want 249.50", bc.TopProducts[0].Price)
	}
	if bc.TopProducts[1].Name != "Adaptör" || bc.TopProducts[2].Name != "Kılıf" {
		t.Fatalf("topProducts must be ranked by stock value, got %+v", bc.TopProducts)
	}
}

func TestBuildContextCapsTopProductsAndRecentSales(t *testing.T) {
	products := make([]domain.Product, 9)
	for i := range products {
		products[i] = domain.Product{Name: "P", Stock: 100, MinStockLevel: 1, Price: dec("1.00")}
	}
	sales := make([]domain.Sale, 25)
	for i := range sales {
		sales[i] = domain.Sale{Total: dec("10.00")}
	}

	bc := BuildContext(products, sales)

	if len(bc.TopProducts) != 5 {
		t.Fatalf("topProducts = %d, want 5", len(bc.TopProducts))
	}
	if bc.SalesCount != 25 {
		t.Fatalf("salesCount = %d, want 25", bc.SalesCount)
	}
	// Only the newest 20 sales feed the recent total.
	if bc.RecentSalesTotal != "200.00" {
		t.Fatalf("recentSalesTotal = %s, want 200.00", bc.RecentSalesTotal)
	}
}

func TestBuildContextEmpty(t *testing.T) {
	bc := BuildContext(nil, nil)
	if bc.RecentSalesTotal != "0.00" {
		t.Fatalf("recentSalesTotal = %s, want 0.00", bc.RecentSalesTotal)
	}
	if bc.CriticalStockProducts == nil || bc.TopProducts == nil {
		t.Fatalf("slices must be non-nil for JSON encoding")
	}
}

func TestDisabledAdvise(t *testing.T) {
	var c Client = Disabled{}
	if _, err := c.Advise(context.Background(), BusinessContext{}, "soru"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
