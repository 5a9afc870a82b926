package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/advisor"
	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/policy"
	"buluterp/backend/internal/store"
	"buluterp/backend/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingCache struct {
	sets    []string
	deletes []string
}

func (c *recordingCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (c *recordingCache) Set(_ context.Context, key string, _ any, _ time.Duration) error {
	c.sets = append(c.sets, key)
	return nil
}

func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.deletes = append(c.deletes, keys...)
	return nil
}

func asActor(role string) context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "test-" + role, Role: role})
}

func newTestService(t *testing.T) (*Service, *recordingCache) {
	t.Helper()
	c := &recordingCache{}
	return New(memory.New(nil), c, advisor.Disabled{}), c
}

func createProduct(t *testing.T, svc *Service, ctx context.Context, code string) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Code:      code,
		Name:      "Test Ürünü",
		Price:     dec("100.00"),
		CostPrice: dec("60.00"),
		Stock:     20,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestCostPriceRedactedForSalesRole(t *testing.T) {
	svc, _ := newTestService(t)
	admin := asActor(policy.RoleAdmin)
	createProduct(t, svc, admin, "RED-001")

	products, err := svc.ListProducts(asActor(policy.RoleSales))
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if !products[0].CostPrice.Equal(decimal.Zero) {
		t.Fatalf("cost price must be redacted for sales, got %s", products[0].CostPrice)
	}

	products, err = svc.ListProducts(asActor(policy.RolePurchasing))
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if !products[0].CostPrice.Equal(dec("60.00")) {
		t.Fatalf("purchasing must see cost price, got %s", products[0].CostPrice)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	admin := asActor(policy.RoleAdmin)
	product := createProduct(t, svc, admin, "DEL-001")

	if err := svc.DeleteProduct(asActor(policy.RoleSales), product.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("sales delete must be rejected, got %v", err)
	}
	if err := svc.DeleteProduct(admin, product.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
}

func TestCheckoutWritesAuditAndInvalidatesReports(t *testing.T) {
	svc, c := newTestService(t)
	admin := asActor(policy.RoleAdmin)
	product := createProduct(t, svc, admin, "CHK-001")
	customer, err := svc.CreateCustomer(admin, domain.CustomerCreateRequest{Name: "Ahmet Yılmaz"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	ctx := asActor(policy.RoleSales)
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerID: customer.ID,
		Lines:      []domain.CheckoutLine{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !sale.Total.Equal(dec("240.00")) {
		t.Fatalf("sale total = %s, want 240.00", sale.Total)
	}

	logs, err := svc.AuditLogs(admin, 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	var found bool
	for _, entry := range logs {
		if entry.Action == "sale_checkout" && entry.EntityID == sale.ID {
			found = true
			if entry.ActorUsername != "test-SALES" {
				t.Fatalf("audit actor = %s, want test-SALES", entry.ActorUsername)
			}
		}
	}
	if !found {
		t.Fatalf("no sale_checkout audit entry for %s", sale.ID)
	}

	var sawVATKey bool
	for _, key := range c.deletes {
		if key == cacheKeyVAT {
			sawVATKey = true
		}
	}
	if !sawVATKey {
		t.Fatalf("checkout must invalidate report cache, deletes: %v", c.deletes)
	}
}

func TestReportsComeFromRepositoryState(t *testing.T) {
	svc, c := newTestService(t)
	admin := asActor(policy.RoleAdmin)
	product := createProduct(t, svc, admin, "RPT-001")
	customer, err := svc.CreateCustomer(admin, domain.CustomerCreateRequest{Name: "Ayşe Demir"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if _, err := svc.Checkout(admin, domain.CheckoutRequest{
		CustomerID: customer.ID,
		Lines:      []domain.CheckoutLine{{ProductID: product.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	sum, err := svc.SalesSummary(admin, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("sales summary: %v", err)
	}
	if sum.SalesCount != 1 || !sum.Revenue.Equal(dec("100.00")) {
		t.Fatalf("summary = %d sales, revenue %s; want 1 and 100.00", sum.SalesCount, sum.Revenue)
	}

	months, err := svc.MonthlyVAT(admin)
	if err != nil {
		t.Fatalf("monthly vat: %v", err)
	}
	if len(months) != 1 || !months[0].OutputVAT.Equal(dec("20.00")) {
		t.Fatalf("unexpected vat months: %+v", months)
	}

	valuation, err := svc.StockValuation(admin)
	if err != nil {
		t.Fatalf("stock valuation: %v", err)
	}
	if valuation.ProductCount != 1 {
		t.Fatalf("product count = %d, want 1", valuation.ProductCount)
	}

	statement, err := svc.CustomerStatement(admin, customer.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("customer statement: %v", err)
	}
	if len(statement.Sales) != 1 || !statement.PeriodTotal.Equal(dec("120.00")) {
		t.Fatalf("unexpected statement: %+v", statement)
	}

	if len(c.sets) == 0 {
		t.Fatalf("report results must be written to the cache")
	}
}

func TestAdviseDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Advise(asActor(policy.RoleAdmin), domain.AdvisorRequest{Question: "Stok durumu nasıl?"})
	if !errors.Is(err, advisor.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestStorageStatusOnlyForMemoryStore(t *testing.T) {
	svc, _ := newTestService(t)
	if svc.StorageStatus() == nil {
		t.Fatalf("memory-backed service must expose storage status")
	}
}
