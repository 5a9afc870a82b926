package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
	ErrDuplicateCode   = errors.New("product code already exists")
	ErrNoCustomer      = errors.New("no customer available")
	ErrSaleInvoiced    = errors.New("already invoiced, cannot cancel")
	ErrAlreadyInvoiced = errors.New("sale already invoiced")
	ErrEmptyCart       = errors.New("cart is empty")
)

// Repository is the domain store: five collections plus audit and user
// records. Checkout, CancelSale and IssueInvoice touch several collections
// at once and implementations must apply them atomically, either under a
// single lock or inside a database transaction.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ReceivePurchase(ctx context.Context, productID string, quantity int, unitCost decimal.Decimal) (*domain.Product, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	Checkout(ctx context.Context, lines []domain.CheckoutLine, customerID string, at time.Time) (*domain.Sale, error)
	CancelSale(ctx context.Context, id string) (*domain.Sale, error)

	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	IssueInvoice(ctx context.Context, saleID string, at time.Time) (*domain.Invoice, error)

	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
