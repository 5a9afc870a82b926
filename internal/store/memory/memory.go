package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/pricing"
	"buluterp/backend/internal/store"
	"buluterp/backend/internal/store/snapshot"
	"buluterp/backend/internal/xid"
)

const invoiceNumberAttempts = 5

// Store keeps every collection in memory behind one RWMutex. Multi-entity
// operations (checkout, cancel, invoice) validate first and apply under a
// single write lock, so a failed precondition never leaves partial state.
// After each committed mutation the touched collections are written to the
// snapshot adapter; a failed save is logged and recorded but never undoes
// the in-memory commit.
type Store struct {
	mu              sync.RWMutex
	snap            snapshot.Adapter
	products        []domain.Product
	customers       []domain.Customer
	sales           []domain.Sale
	invoices        []domain.Invoice
	expenses        []domain.Expense
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount

	lastSaveAt  time.Time
	lastSaveErr error
}

// SaveStatus reports the outcome of the most recent snapshot write.
type SaveStatus struct {
	LastSaveAt string `json:"last_save_at,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

func New(snap snapshot.Adapter) *Store {
	if snap == nil {
		snap = snapshot.Noop{}
	}
	s := &Store{
		snap:            snap,
		products:        []domain.Product{},
		customers:       []domain.Customer{},
		sales:           []domain.Sale{},
		invoices:        []domain.Invoice{},
		expenses:        []domain.Expense{},
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
	s.loadCollections()
	return s
}

// NewSeeded builds a store preloaded with a small demo catalog and the
// reserved walk-in customer. Snapshot data, when present, wins over seeds.
func NewSeeded(snap snapshot.Adapter) *Store {
	s := New(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		s.products = seedProducts()
	}
	if len(s.customers) == 0 {
		s.customers = seedCustomers()
	}
	return s
}

func seedProducts() []domain.Product {
	return []domain.Product{
		{ID: xid.New("prd"), Code: "ELK-001", Name: "Kablosuz Gaming Mouse", Price: dec("1250.90"), CostPrice: dec("800.00"), Stock: 45, MinStockLevel: 10},
		{ID: xid.New("prd"), Code: "ELK-002", Name: "Mekanik Klavye (RGB)", Price: dec("2800.00"), CostPrice: dec("1900.00"), Stock: 8, MinStockLevel: 5},
		{ID: xid.New("prd"), Code: "ELK-003", Name: "27\" IPS Monitör", Price: dec("6500.00"), CostPrice: dec("4800.00"), Stock: 12, MinStockLevel: 3},
		{ID: xid.New("prd"), Code: "MOB-101", Name: "Ergonomik Ofis Koltuğu", Price: dec("4200.50"), CostPrice: dec("2500.00"), Stock: 4, MinStockLevel: 2},
		{ID: xid.New("prd"), Code: "AKS-505", Name: "USB-C Hub", Price: dec("850.00"), CostPrice: dec("400.00"), Stock: 150, MinStockLevel: 20},
		{ID: xid.New("prd"), Code: "AKS-506", Name: "Laptop Standı", Price: dec("450.00"), CostPrice: dec("200.00"), Stock: 0, MinStockLevel: 15},
	}
}

func seedCustomers() []domain.Customer {
	return []domain.Customer{
		{ID: xid.New("cus"), Name: "PERAKENDE (HIZLI SATIŞ)", Type: domain.CustomerTypeIndividual, ContactInfo: "-"},
		{ID: xid.New("cus"), Name: "Ahmet Yılmaz", Type: domain.CustomerTypeIndividual, ContactInfo: "555-123-4567"},
		{ID: xid.New("cus"), Name: "Ayşe Demir", Type: domain.CustomerTypeIndividual, ContactInfo: "555-987-6543"},
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Passwords come from SEED_<ROLE>_PASSWORD environment variables with
// hardcoded dev defaults and a warning when unset. Production deployments
// use PostgreSQL-backed accounts instead.
func seedUsers() map[string]domain.UserAccount {
	defaults := []struct {
		username string
		envKey   string
		fallback string
		role     string
	}{
		{"admin", "SEED_ADMIN_PASSWORD", "admin123", "ADMIN"},
		{"finance", "SEED_FINANCE_PASSWORD", "finance123", "FINANCE"},
		{"sales", "SEED_SALES_PASSWORD", "sales123", "SALES"},
		{"purchasing", "SEED_PURCHASING_PASSWORD", "purchasing123", "PURCHASING"},
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	warned := false
	for _, u := range defaults {
		pwd := envOr(u.envKey, u.fallback)
		if os.Getenv(u.envKey) == "" && !warned {
			log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_*_PASSWORD variables to override.")
			warned = true
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (s *Store) loadCollections() {
	for key, dest := range map[string]any{
		snapshot.KeyProducts:  &s.products,
		snapshot.KeyCustomers: &s.customers,
		snapshot.KeySales:     &s.sales,
		snapshot.KeyInvoices:  &s.invoices,
		snapshot.KeyExpenses:  &s.expenses,
	} {
		if err := s.snap.Load(key, dest); err != nil {
			log.Printf("[memory-store] WARN: loading %s snapshot failed, starting from defaults: %v", key, err)
		}
	}
}

// persistLocked writes the named collections to the snapshot adapter.
// Callers must hold the write lock. The first failure is recorded for the
// save-status endpoint; the in-memory state stays committed either way.
func (s *Store) persistLocked(keys ...string) {
	var firstErr error
	for _, key := range keys {
		var err error
		switch key {
		case snapshot.KeyProducts:
			err = s.snap.Save(key, s.products)
		case snapshot.KeyCustomers:
			err = s.snap.Save(key, s.customers)
		case snapshot.KeySales:
			err = s.snap.Save(key, s.sales)
		case snapshot.KeyInvoices:
			err = s.snap.Save(key, s.invoices)
		case snapshot.KeyExpenses:
			err = s.snap.Save(key, s.expenses)
		}
		if err != nil {
			log.Printf("[memory-store] WARN: snapshot save %s failed: %v", key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	s.lastSaveAt = time.Now().UTC()
	s.lastSaveErr = firstErr
}

// SaveStatus exposes the last snapshot write outcome so callers can detect
// silently degraded persistence.
func (s *Store) SaveStatus() SaveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SaveStatus{}
	if !s.lastSaveAt.IsZero() {
		status.LastSaveAt = s.lastSaveAt.Format(time.RFC3339)
	}
	if s.lastSaveErr != nil {
		status.LastError = s.lastSaveErr.Error()
	}
	return status
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	out.Items = make([]domain.CartItem, len(sale.Items))
	copy(out.Items, sale.Items)
	return out
}

func (s *Store) productIndex(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) customerIndex(id string) int {
	for i := range s.customers {
		if s.customers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) saleIndex(id string) int {
	for i := range s.sales {
		if s.sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) codeTaken(code string, excludeID string) bool {
	for _, p := range s.products {
		if p.Code == code && p.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, len(s.products))
	copy(products, s.products)
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product := s.products[idx]
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.Code = strings.ToUpper(strings.TrimSpace(product.Code))
	if product.Code == "" || strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", store.ErrInvalid)
	}
	if product.Price.IsNegative() || product.CostPrice.IsNegative() || product.Stock < 0 || product.MinStockLevel < 0 {
		return nil, fmt.Errorf("%w: negative price, cost or stock", store.ErrInvalid)
	}
	if s.codeTaken(product.Code, "") {
		return nil, store.ErrDuplicateCode
	}

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	s.products = append(s.products, product)
	s.persistLocked(snapshot.KeyProducts)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(product.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product.Code = strings.ToUpper(strings.TrimSpace(product.Code))
	if product.Code == "" || strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", store.ErrInvalid)
	}
	if product.Price.IsNegative() || product.CostPrice.IsNegative() || product.Stock < 0 || product.MinStockLevel < 0 {
		return nil, fmt.Errorf("%w: negative price, cost or stock", store.ErrInvalid)
	}
	if s.codeTaken(product.Code, product.ID) {
		return nil, store.ErrDuplicateCode
	}

	s.products[idx] = product
	s.persistLocked(snapshot.KeyProducts)
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	s.persistLocked(snapshot.KeyProducts)
	return nil
}

func (s *Store) ReceivePurchase(_ context.Context, productID string, quantity int, unitCost decimal.Decimal) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(productID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	product := s.products[idx]
	newStock, newCost, err := pricing.ReceivePurchase(product.Stock, product.CostPrice, quantity, unitCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalid, err)
	}
	product.Stock = newStock
	product.CostPrice = newCost
	s.products[idx] = product
	s.persistLocked(snapshot.KeyProducts)
	updated := product
	return &updated, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, len(s.customers))
	copy(customers, s.customers)
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.customerIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	customer := s.customers[idx]
	return &customer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrInvalid)
	}
	if !domain.ValidCustomerType(customer.Type) {
		return nil, fmt.Errorf("%w: unknown customer type %q", store.ErrInvalid, customer.Type)
	}

	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	s.customers = append(s.customers, customer)
	s.persistLocked(snapshot.KeyCustomers)
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.customerIndex(customer.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrInvalid)
	}
	if !domain.ValidCustomerType(customer.Type) {
		return nil, fmt.Errorf("%w: unknown customer type %q", store.ErrInvalid, customer.Type)
	}

	// The running purchase total is owned by the sale lifecycle, not edits.
	customer.TotalPurchases = s.customers[idx].TotalPurchases
	s.customers[idx] = customer
	s.persistLocked(snapshot.KeyCustomers)
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.customerIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.customers = append(s.customers[:idx], s.customers[idx+1:]...)
	s.persistLocked(snapshot.KeyCustomers)
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.saleIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	sale := cloneSale(s.sales[idx])
	return &sale, nil
}

// Checkout materializes a cart into a committed sale. Product lines are
// frozen as snapshots of the current catalog record, stock is decremented
// (floored at zero) and the sale total is added to the customer ledger.
// Everything is validated before the first mutation so a rejected cart
// leaves no partial state.
func (s *Store) Checkout(_ context.Context, lines []domain.CheckoutLine, customerID string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	customerIdx := s.customerIndex(customerID)
	if customerIdx < 0 {
		// Unknown customer falls back to the first record, which holds the
		// reserved walk-in customer in a seeded store.
		if len(s.customers) == 0 {
			return nil, store.ErrNoCustomer
		}
		customerIdx = 0
	}

	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: invalid quantity", store.ErrInvalid)
		}
		if line.IsService {
			if strings.TrimSpace(line.Name) == "" {
				return nil, fmt.Errorf("%w: service line needs a name", store.ErrInvalid)
			}
			if line.Price.IsNegative() {
				return nil, fmt.Errorf("%w: service line needs a non-negative price", store.ErrInvalid)
			}
			items = append(items, domain.CartItem{
				ProductID: xid.New("svc"),
				Code:      domain.ServiceItemCode,
				Name:      line.Name,
				Price:     line.Price,
				CostPrice: decimal.Zero,
				Quantity:  line.Quantity,
				IsService: true,
			})
			continue
		}

		idx := s.productIndex(line.ProductID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
		}
		p := s.products[idx]
		items = append(items, domain.CartItem{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Price:     p.Price,
			CostPrice: p.CostPrice,
			Quantity:  line.Quantity,
		})
	}

	subTotal, taxTotal, total := pricing.CartTotals(items)

	// Commit point: nothing below may fail.
	for _, item := range items {
		if item.IsService {
			continue
		}
		idx := s.productIndex(item.ProductID)
		if idx < 0 {
			continue
		}
		s.products[idx].Stock = max(0, s.products[idx].Stock-item.Quantity)
	}

	customer := &s.customers[customerIdx]
	customer.TotalPurchases = customer.TotalPurchases.Add(total)

	sale := domain.Sale{
		ID:           xid.New("sal"),
		Date:         at,
		Items:        items,
		SubTotal:     subTotal,
		TaxTotal:     taxTotal,
		Total:        total,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
	}
	s.sales = append([]domain.Sale{sale}, s.sales...)

	s.persistLocked(snapshot.KeySales, snapshot.KeyProducts, snapshot.KeyCustomers)
	created := cloneSale(sale)
	return &created, nil
}

// CancelSale undoes an uninvoiced sale: stock goes back, the customer
// ledger is reduced (floored at zero) and the sale record is removed
// outright. Invoiced sales are immutable.
func (s *Store) CancelSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.saleIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	sale := s.sales[idx]
	if sale.IsInvoiced {
		return nil, store.ErrSaleInvoiced
	}

	for _, item := range sale.Items {
		if item.IsService {
			continue
		}
		pIdx := s.productIndex(item.ProductID)
		if pIdx < 0 {
			// Product deleted after the sale; nothing to restore onto.
			continue
		}
		s.products[pIdx].Stock += item.Quantity
	}

	if cIdx := s.customerIndex(sale.CustomerID); cIdx >= 0 {
		customer := &s.customers[cIdx]
		customer.TotalPurchases = customer.TotalPurchases.Sub(sale.Total)
		if customer.TotalPurchases.IsNegative() {
			customer.TotalPurchases = decimal.Zero
		}
	}

	s.sales = append(s.sales[:idx], s.sales[idx+1:]...)

	s.persistLocked(snapshot.KeySales, snapshot.KeyProducts, snapshot.KeyCustomers)
	cancelled := cloneSale(sale)
	return &cancelled, nil
}

func (s *Store) ListInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, len(s.invoices))
	copy(invoices, s.invoices)
	return invoices, nil
}

// IssueInvoice creates the one invoice a sale may ever have and flips the
// sale's invoiced flag in the same commit. Invoice numbers are random, so
// generation retries a few times on collision before giving up.
func (s *Store) IssueInvoice(_ context.Context, saleID string, at time.Time) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.saleIndex(saleID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if s.sales[idx].IsInvoiced {
		return nil, store.ErrAlreadyInvoiced
	}

	number := ""
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		candidate := xid.InvoiceNumber(at)
		if !s.invoiceNumberTaken(candidate) {
			number = candidate
			break
		}
	}
	if number == "" {
		return nil, fmt.Errorf("could not allocate a free invoice number after %d attempts", invoiceNumberAttempts)
	}

	invoice := domain.Invoice{
		ID:            xid.New("inv"),
		SaleID:        s.sales[idx].ID,
		InvoiceNumber: number,
		Date:          at,
		Total:         s.sales[idx].Total,
		TaxTotal:      s.sales[idx].TaxTotal,
		Status:        domain.InvoiceStatusSigned,
	}

	s.sales[idx].IsInvoiced = true
	s.invoices = append([]domain.Invoice{invoice}, s.invoices...)

	s.persistLocked(snapshot.KeyInvoices, snapshot.KeySales)
	created := invoice
	return &created, nil
}

func (s *Store) invoiceNumberTaken(number string) bool {
	for _, inv := range s.invoices {
		if inv.InvoiceNumber == number {
			return true
		}
	}
	return false
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, len(s.expenses))
	copy(expenses, s.expenses)
	return expenses, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(expense.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", store.ErrInvalid)
	}
	if expense.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount", store.ErrInvalid)
	}
	if !domain.ValidExpenseCategory(expense.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, expense.Category)
	}
	if !domain.ValidPaymentMethod(expense.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalid, expense.PaymentMethod)
	}

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	s.expenses = append([]domain.Expense{expense}, s.expenses...)
	s.persistLocked(snapshot.KeyExpenses)
	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			s.persistLocked(snapshot.KeyExpenses)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.auditLogs) {
		limit = len(s.auditLogs)
	}

	// Most recent first.
	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, s.auditLogs[i])
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return fmt.Errorf("%w: username is required", store.ErrInvalid)
	}
	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("%w: username already exists", store.ErrInvalid)
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
