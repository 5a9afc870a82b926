package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"minStockLevel"`
}

// Critical reports whether stock has fallen to or below the minimum level.
func (p Product) Critical() bool {
	return p.Stock <= p.MinStockLevel
}

type ProductCreateRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"minStockLevel"`
}

type ProductUpdateRequest struct {
	Code          *string          `json:"code,omitempty"`
	Name          *string          `json:"name,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	CostPrice     *decimal.Decimal `json:"costPrice,omitempty"`
	Stock         *int             `json:"stock,omitempty"`
	MinStockLevel *int             `json:"minStockLevel,omitempty"`
}

// PriceCheckResult is the shelf-price lookup answer: sale price with and
// without VAT, never the cost basis.
type PriceCheckResult struct {
	ProductID    string          `json:"productId"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	PriceWithVAT decimal.Decimal `json:"priceWithVat"`
	Stock        int             `json:"stock"`
}

type PurchaseReceiptRequest struct {
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
}

type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	TaxNumber      string          `json:"taxNumber,omitempty"`
	ContactInfo    string          `json:"contactInfo"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
}

type CustomerCreateRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	TaxNumber   string `json:"taxNumber"`
	ContactInfo string `json:"contactInfo"`
}

type CustomerUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	TaxNumber   *string `json:"taxNumber,omitempty"`
	ContactInfo *string `json:"contactInfo,omitempty"`
}

// CartItem is a frozen product snapshot inside a sale. Service lines carry
// their own name and price, never reference catalog stock, and keep a zero
// cost basis.
type CartItem struct {
	ProductID string          `json:"productId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"costPrice"`
	Quantity  int             `json:"quantity"`
	IsService bool            `json:"isService,omitempty"`
}

type CheckoutLine struct {
	ProductID string          `json:"productId,omitempty"`
	Quantity  int             `json:"quantity"`
	IsService bool            `json:"isService,omitempty"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
}

type CheckoutRequest struct {
	CustomerID string         `json:"customerId"`
	Lines      []CheckoutLine `json:"lines"`
}

type Sale struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	Items        []CartItem      `json:"items"`
	SubTotal     decimal.Decimal `json:"subTotal"`
	TaxTotal     decimal.Decimal `json:"taxTotal"`
	Total        decimal.Decimal `json:"total"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	IsInvoiced   bool            `json:"isInvoiced"`
}

type Invoice struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"saleId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Date          time.Time       `json:"date"`
	Total         decimal.Decimal `json:"total"`
	TaxTotal      decimal.Decimal `json:"taxTotal"`
	Status        string          `json:"status"`
}

type Expense struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Date          time.Time       `json:"date"`
	PaymentMethod string          `json:"paymentMethod"`
}

type ExpenseCreateRequest struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"paymentMethod"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	Role         string   `json:"role"`
	AllowedViews []string `json:"allowed_views"`
	ExpiresAt    string   `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AdvisorRequest struct {
	Question string `json:"question"`
}

type AdvisorResponse struct {
	Answer string `json:"answer"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	CustomerTypeIndividual = "INDIVIDUAL"
	CustomerTypeCorporate  = "CORPORATE"
)

const (
	InvoiceStatusDraft  = "DRAFT"
	InvoiceStatusSigned = "SIGNED"
	InvoiceStatusSent   = "SENT"
)

const (
	ExpenseCategoryRent      = "RENT"
	ExpenseCategoryUtilities = "UTILITIES"
	ExpenseCategorySalary    = "SALARY"
	ExpenseCategoryMeal      = "MEAL"
	ExpenseCategoryTax       = "TAX"
	ExpenseCategoryMarketing = "MARKETING"
	ExpenseCategoryOther     = "OTHER"
)

const (
	PaymentMethodCash         = "CASH"
	PaymentMethodCreditCard   = "CREDIT_CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

// ServiceItemCode marks ad-hoc labor lines that never touch catalog stock.
const ServiceItemCode = "HIZMET"

func ValidCustomerType(t string) bool {
	return t == CustomerTypeIndividual || t == CustomerTypeCorporate
}

func ValidExpenseCategory(c string) bool {
	switch c {
	case ExpenseCategoryRent, ExpenseCategoryUtilities, ExpenseCategorySalary,
		ExpenseCategoryMeal, ExpenseCategoryTax, ExpenseCategoryMarketing, ExpenseCategoryOther:
		return true
	}
	return false
}

func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodCash || m == PaymentMethodCreditCard || m == PaymentMethodBankTransfer
}
