package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/pricing"
	"buluterp/backend/internal/store"
	"buluterp/backend/internal/xid"
)

const invoiceNumberAttempts = 5

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables on first boot. Statements are idempotent
// so repeated startups are safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			price NUMERIC(14,2) NOT NULL DEFAULT 0,
			cost_price NUMERIC(14,2) NOT NULL DEFAULT 0,
			stock INT NOT NULL DEFAULT 0,
			min_stock_level INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			tax_number TEXT NOT NULL DEFAULT '',
			contact_info TEXT NOT NULL DEFAULT '',
			total_purchases NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL,
			items JSONB NOT NULL,
			sub_total NUMERIC(14,2) NOT NULL,
			tax_total NUMERIC(14,2) NOT NULL,
			total NUMERIC(14,2) NOT NULL,
			customer_id TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			is_invoiced BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			sale_id TEXT NOT NULL,
			invoice_number TEXT NOT NULL UNIQUE,
			date TIMESTAMPTZ NOT NULL,
			total NUMERIC(14,2) NOT NULL,
			tax_total NUMERIC(14,2) NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			category TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			payment_method TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_username TEXT NOT NULL,
			actor_role TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales (date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales (customer_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, price, cost_price, stock, min_stock_level
		FROM products
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.CostPrice, &p.Stock, &p.MinStockLevel); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, price, cost_price, stock, min_stock_level
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.CostPrice, &p.Stock, &p.MinStockLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Code = strings.ToUpper(strings.TrimSpace(product.Code))
	if product.Code == "" || strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", store.ErrInvalid)
	}
	if product.Price.IsNegative() || product.CostPrice.IsNegative() || product.Stock < 0 || product.MinStockLevel < 0 {
		return nil, fmt.Errorf("%w: negative price, cost or stock", store.ErrInvalid)
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, code, name, price, cost_price, stock, min_stock_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.Code, product.Name, product.Price, product.CostPrice, product.Stock, product.MinStockLevel)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateCode
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Code = strings.ToUpper(strings.TrimSpace(product.Code))
	if product.Code == "" || strings.TrimSpace(product.Name) == "" {
		return nil, fmt.Errorf("%w: code and name are required", store.ErrInvalid)
	}
	if product.Price.IsNegative() || product.CostPrice.IsNegative() || product.Stock < 0 || product.MinStockLevel < 0 {
		return nil, fmt.Errorf("%w: negative price, cost or stock", store.ErrInvalid)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET code = $2, name = $3, price = $4, cost_price = $5, stock = $6, min_stock_level = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Code, product.Name, product.Price, product.CostPrice, product.Stock, product.MinStockLevel)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateCode
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReceivePurchase(ctx context.Context, productID string, quantity int, unitCost decimal.Decimal) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var p domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, code, name, price, cost_price, stock, min_stock_level
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.CostPrice, &p.Stock, &p.MinStockLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	newStock, newCost, err := pricing.ReceivePurchase(p.Stock, p.CostPrice, quantity, unitCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalid, err)
	}
	p.Stock = newStock
	p.CostPrice = newCost

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = $2, cost_price = $3, updated_at = now() WHERE id = $1
	`, p.ID, p.Stock, p.CostPrice); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, tax_number, contact_info, total_purchases
		FROM customers
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.TaxNumber, &c.ContactInfo, &c.TotalPurchases); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, tax_number, contact_info, total_purchases
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.TaxNumber, &c.ContactInfo, &c.TotalPurchases)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrInvalid)
	}
	if !domain.ValidCustomerType(customer.Type) {
		return nil, fmt.Errorf("%w: unknown customer type %q", store.ErrInvalid, customer.Type)
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, type, tax_number, contact_info, total_purchases)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, customer.ID, customer.Name, customer.Type, customer.TaxNumber, customer.ContactInfo, customer.TotalPurchases)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, fmt.Errorf("%w: customer name is required", store.ErrInvalid)
	}
	if !domain.ValidCustomerType(customer.Type) {
		return nil, fmt.Errorf("%w: unknown customer type %q", store.ErrInvalid, customer.Type)
	}

	// total_purchases is deliberately not updatable here; it belongs to the
	// sale lifecycle.
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, type = $3, tax_number = $4, contact_info = $5
		WHERE id = $1
		RETURNING total_purchases
	`, customer.ID, customer.Name, customer.Type, customer.TaxNumber, customer.ContactInfo).Scan(&customer.TotalPurchases)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanSale(scanner interface {
	Scan(dest ...any) error
}) (domain.Sale, error) {
	var sale domain.Sale
	var itemsJSON []byte
	if err := scanner.Scan(&sale.ID, &sale.Date, &itemsJSON, &sale.SubTotal, &sale.TaxTotal, &sale.Total, &sale.CustomerID, &sale.CustomerName, &sale.IsInvoiced); err != nil {
		return domain.Sale{}, err
	}
	if err := json.Unmarshal(itemsJSON, &sale.Items); err != nil {
		return domain.Sale{}, fmt.Errorf("decode sale items: %w", err)
	}
	sale.Date = sale.Date.UTC()
	return sale, nil
}

const saleColumns = `id, date, items, sub_total, tax_total, total, customer_id, customer_name, is_invoiced`

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) Checkout(ctx context.Context, lines []domain.CheckoutLine, customerID string, at time.Time) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var customer domain.Customer
	err = tx.QueryRowContext(ctx, `
		SELECT id, name FROM customers WHERE id = $1 FOR UPDATE
	`, customerID).Scan(&customer.ID, &customer.Name)
	if errors.Is(err, sql.ErrNoRows) {
		// Fall back to the oldest customer on record, conventionally the
		// reserved walk-in account.
		err = tx.QueryRowContext(ctx, `
			SELECT id, name FROM customers ORDER BY created_at LIMIT 1 FOR UPDATE
		`).Scan(&customer.ID, &customer.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoCustomer
		}
	}
	if err != nil {
		return nil, err
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

		var p domain.Product
		err := tx.QueryRowContext(ctx, `
			SELECT id, code, name, price, cost_price, stock
			FROM products
			WHERE id = $1
			FOR UPDATE
		`, line.ProductID).Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.CostPrice, &p.Stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ProductID)
			}
			return nil, err
		}
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

	for _, item := range items {
		if item.IsService {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = GREATEST(0, stock - $2), updated_at = now() WHERE id = $1
		`, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE customers SET total_purchases = total_purchases + $2 WHERE id = $1
	`, customer.ID, total); err != nil {
		return nil, err
	}

	sale := domain.Sale{
		ID:           xid.New("sal"),
		Date:         at.UTC(),
		Items:        items,
		SubTotal:     subTotal,
		TaxTotal:     taxTotal,
		Total:        total,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
	}
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, date, items, sub_total, tax_total, total, customer_id, customer_name, is_invoiced)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false)
	`, sale.ID, sale.Date, itemsJSON, sale.SubTotal, sale.TaxTotal, sale.Total, sale.CustomerID, sale.CustomerName); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) CancelSale(ctx context.Context, id string) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := scanSale(tx.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sale.IsInvoiced {
		return nil, store.ErrSaleInvoiced
	}

	for _, item := range sale.Items {
		if item.IsService {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
		`, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE customers SET total_purchases = GREATEST(0, total_purchases - $2) WHERE id = $1
	`, sale.CustomerID, sale.Total); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, invoice_number, date, total, tax_total, status
		FROM invoices
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.SaleID, &inv.InvoiceNumber, &inv.Date, &inv.Total, &inv.TaxTotal, &inv.Status); err != nil {
			return nil, err
		}
		inv.Date = inv.Date.UTC()
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) IssueInvoice(ctx context.Context, saleID string, at time.Time) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var total, taxTotal decimal.Decimal
	var isInvoiced bool
	err = tx.QueryRowContext(ctx, `
		SELECT total, tax_total, is_invoiced FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&total, &taxTotal, &isInvoiced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if isInvoiced {
		return nil, store.ErrAlreadyInvoiced
	}

	invoice := domain.Invoice{
		ID:       xid.New("inv"),
		SaleID:   saleID,
		Date:     at.UTC(),
		Total:    total,
		TaxTotal: taxTotal,
		Status:   domain.InvoiceStatusSigned,
	}

	// Random numbers collide eventually; the unique index is the arbiter.
	inserted := false
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		invoice.InvoiceNumber = xid.InvoiceNumber(at)
		ok, err := tryInsertInvoice(ctx, tx, invoice)
		if err != nil {
			return nil, err
		}
		if ok {
			inserted = true
			break
		}
	}
	if !inserted {
		return nil, fmt.Errorf("could not allocate a free invoice number after %d attempts", invoiceNumberAttempts)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sales SET is_invoiced = true WHERE id = $1`, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// tryInsertInvoice runs one insert attempt under a savepoint. A duplicate
// invoice number would otherwise abort the whole transaction; rolling back
// to the savepoint keeps it usable so the caller can try another number.
// Returns false with a nil error on a duplicate.
func tryInsertInvoice(ctx context.Context, tx *sql.Tx, invoice domain.Invoice) (bool, error) {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT invoice_attempt`); err != nil {
		return false, err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (id, sale_id, invoice_number, date, total, tax_total, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, invoice.ID, invoice.SaleID, invoice.InvoiceNumber, invoice.Date, invoice.Total, invoice.TaxTotal, invoice.Status)
	if err == nil {
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT invoice_attempt`); err != nil {
			return false, err
		}
		return true, nil
	}
	if !isUniqueViolation(err) {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT invoice_attempt`); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, amount, category, date, payment_method
		FROM expenses
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.PaymentMethod); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, amount, category, date, payment_method)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.Description, expense.Amount, expense.Category, expense.Date, expense.PaymentMethod)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return fmt.Errorf("%w: username is required", store.ErrInvalid)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username already exists", store.ErrInvalid)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
