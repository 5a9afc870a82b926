package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/store"
	"buluterp/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("BULUTERP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BULUTERP_TEST_DATABASE_URL to run postgres integration tests")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestCancelSaleRestoresStockAndLedger(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	product, err := s.CreateProduct(ctx, domain.Product{
		Code:  fmt.Sprintf("IT-%d", stamp),
		Name:  "Entegrasyon Test Ürünü",
		Price: decimal.RequireFromString("100.00"),
		Stock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	customer, err := s.CreateCustomer(ctx, domain.Customer{
		Name: fmt.Sprintf("Entegrasyon Müşterisi %d", stamp),
		Type: domain.CustomerTypeIndividual,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	t.Cleanup(func() {
		_ = s.DeleteProduct(ctx, product.ID)
		_ = s.DeleteCustomer(ctx, customer.ID)
	})

	sale, err := s.Checkout(ctx, []domain.CheckoutLine{
		{ProductID: product.ID, Quantity: 3},
	}, customer.ID, time.Now())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, sale.ID)
	})

	if !sale.Total.Equal(decimal.RequireFromString("360.00")) {
		t.Fatalf("unexpected sale total %s", sale.Total)
	}
	after, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 7 {
		t.Fatalf("stock after checkout = %d, want 7", after.Stock)
	}

	if _, err := s.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("cancel sale: %v", err)
	}

	restored, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if restored.Stock != 10 {
		t.Fatalf("stock after cancel = %d, want 10", restored.Stock)
	}
	ledger, err := s.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if !ledger.TotalPurchases.Equal(decimal.Zero) {
		t.Fatalf("ledger after cancel = %s, want 0", ledger.TotalPurchases)
	}
	if _, err := s.GetSale(ctx, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cancelled sale must be gone, got %v", err)
	}
}

func TestInvoicedSaleCannotBeCancelled(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	product, err := s.CreateProduct(ctx, domain.Product{
		Code:  fmt.Sprintf("IT-INV-%d", stamp),
		Name:  "Faturalı Test Ürünü",
		Price: decimal.RequireFromString("50.00"),
		Stock: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	customer, err := s.CreateCustomer(ctx, domain.Customer{
		Name: fmt.Sprintf("Fatura Müşterisi %d", stamp),
		Type: domain.CustomerTypeCorporate,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	sale, err := s.Checkout(ctx, []domain.CheckoutLine{
		{ProductID: product.ID, Quantity: 1},
	}, customer.ID, time.Now())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	invoice, err := s.IssueInvoice(ctx, sale.ID, time.Now())
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoice.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, sale.ID)
		_ = s.DeleteProduct(ctx, product.ID)
		_ = s.DeleteCustomer(ctx, customer.ID)
	})

	if invoice.Status != domain.InvoiceStatusSigned {
		t.Fatalf("invoice status = %s, want %s", invoice.Status, domain.InvoiceStatusSigned)
	}
	if _, err := s.CancelSale(ctx, sale.ID); !errors.Is(err, store.ErrSaleInvoiced) {
		t.Fatalf("expected ErrSaleInvoiced, got %v", err)
	}
	if _, err := s.IssueInvoice(ctx, sale.ID, time.Now()); !errors.Is(err, store.ErrAlreadyInvoiced) {
		t.Fatalf("expected ErrAlreadyInvoiced, got %v", err)
	}
}

func TestInvoiceInsertRetryableAfterDuplicateNumber(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	first := domain.Invoice{
		ID:            xid.New("inv"),
		SaleID:        xid.New("sal"),
		InvoiceNumber: xid.New("num"),
		Date:          time.Now().UTC(),
		Total:         decimal.RequireFromString("120.00"),
		TaxTotal:      decimal.RequireFromString("20.00"),
		Status:        domain.InvoiceStatusSigned,
	}
	ok, err := tryInsertInvoice(ctx, tx, first)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}

	// Same number, new id: must report a collision without poisoning the
	// transaction for the next attempt.
	colliding := first
	colliding.ID = xid.New("inv")
	ok, err = tryInsertInvoice(ctx, tx, colliding)
	if err != nil {
		t.Fatalf("colliding insert must not error, got %v", err)
	}
	if ok {
		t.Fatalf("colliding insert must report a duplicate")
	}

	colliding.InvoiceNumber = xid.New("num")
	ok, err = tryInsertInvoice(ctx, tx, colliding)
	if err != nil || !ok {
		t.Fatalf("retry with a fresh number must succeed in the same transaction: ok=%v err=%v", ok, err)
	}
}
