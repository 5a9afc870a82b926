package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/advisor"
	"buluterp/backend/internal/cache"
	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/policy"
	"buluterp/backend/internal/pricing"
	"buluterp/backend/internal/report"
	"buluterp/backend/internal/store"
	"buluterp/backend/internal/store/memory"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Cache keys for rendered report payloads. Any mutation that can move a
// number in a report deletes all of them.
const (
	cacheKeyVAT       = "report:vat"
	cacheKeyStock     = "report:stock"
	cacheKeyDashboard = "report:dashboard"

	vatCacheTTL       = 5 * time.Minute
	stockCacheTTL     = time.Minute
	dashboardCacheTTL = 30 * time.Second
)

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
	adviser advisor.Client
	now     func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, adviser advisor.Client) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if adviser == nil {
		adviser = advisor.Disabled{}
	}
	return &Service{
		repo:    repo,
		reports: reports,
		adviser: adviser,
		now:     time.Now,
	}
}

func (s *Service) logAudit(ctx context.Context, action, entityType, entityID, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s: %v", action, entityID, err)
	}
}

func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Delete(ctx, cacheKeyVAT, cacheKeyStock, cacheKeyDashboard); err != nil {
		log.Printf("[service] WARN: failed to invalidate report cache: %v", err)
	}
}

// redactCost blanks the cost basis for roles that may not see purchase
// prices. The zero value is deliberate: the JSON field stays present so
// clients need no special casing.
func redactCost(products []domain.Product, role string) []domain.Product {
	if policy.CanSeeCost(role) {
		return products
	}
	out := make([]domain.Product, len(products))
	for i, p := range products {
		p.CostPrice = decimal.Zero
		out[i] = p
	}
	return out
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	actor, _ := ActorFromContext(ctx)
	return redactCost(products, actor.Role), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	actor, _ := ActorFromContext(ctx)
	redacted := redactCost([]domain.Product{*product}, actor.Role)
	return &redacted[0], nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	product := domain.Product{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:          strings.TrimSpace(req.Name),
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		Stock:         req.Stock,
		MinStockLevel: req.MinStockLevel,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("code=%s,name=%s", created.Code, created.Name))
	s.invalidateReports(ctx)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Code != nil {
		updated.Code = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.CostPrice != nil {
		updated.CostPrice = *req.CostPrice
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.MinStockLevel != nil {
		updated.MinStockLevel = *req.MinStockLevel
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("code=%s", saved.Code))
	s.invalidateReports(ctx)
	return saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !policy.CanDelete(actor.Role) {
		return fmt.Errorf("%w: role %s cannot delete products", store.ErrForbidden, actor.Role)
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", id, "")
	s.invalidateReports(ctx)
	return nil
}

// PriceCheck resolves a product by id or SKU code and answers with the
// shelf price, VAT included. Price-check stations scan barcodes, so the
// code path matters as much as the id path.
func (s *Service) PriceCheck(ctx context.Context, key string) (*domain.PriceCheckResult, error) {
	product, err := s.repo.GetProduct(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		code := strings.ToUpper(strings.TrimSpace(key))
		products, listErr := s.repo.ListProducts(ctx)
		if listErr != nil {
			return nil, listErr
		}
		for i := range products {
			if products[i].Code == code {
				product, err = &products[i], nil
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	return &domain.PriceCheckResult{
		ProductID:    product.ID,
		Code:         product.Code,
		Name:         product.Name,
		Price:        product.Price,
		PriceWithVAT: pricing.TaxInclusive(product.Price),
		Stock:        product.Stock,
	}, nil
}

// ReceivePurchase books a stock delivery: quantity added at a unit cost,
// with the product's cost price moving to the weighted average.
func (s *Service) ReceivePurchase(ctx context.Context, productID string, req domain.PurchaseReceiptRequest) (*domain.Product, error) {
	product, err := s.repo.ReceivePurchase(ctx, productID, req.Quantity, req.UnitCost)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "purchase_receive", "product", product.ID, fmt.Sprintf("qty=%d,unitCost=%s,newCost=%s", req.Quantity, req.UnitCost.StringFixed(2), product.CostPrice.StringFixed(2)))
	s.invalidateReports(ctx)
	return product, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	customer := domain.Customer{
		Name:        strings.TrimSpace(req.Name),
		Type:        strings.ToUpper(strings.TrimSpace(req.Type)),
		TaxNumber:   strings.TrimSpace(req.TaxNumber),
		ContactInfo: strings.TrimSpace(req.ContactInfo),
	}
	if customer.Type == "" {
		customer.Type = domain.CustomerTypeIndividual
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		updated.Type = strings.ToUpper(strings.TrimSpace(*req.Type))
	}
	if req.TaxNumber != nil {
		updated.TaxNumber = strings.TrimSpace(*req.TaxNumber)
	}
	if req.ContactInfo != nil {
		updated.ContactInfo = strings.TrimSpace(*req.ContactInfo)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_update", "customer", saved.ID, "")
	return saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !policy.CanDelete(actor.Role) {
		return fmt.Errorf("%w: role %s cannot delete customers", store.ErrForbidden, actor.Role)
	}

	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Sale, error) {
	sale, err := s.repo.Checkout(ctx, req.Lines, req.CustomerID, s.now())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "sale_checkout", "sale", sale.ID, fmt.Sprintf("total=%s,customer=%s", sale.Total.StringFixed(2), sale.CustomerID))
	s.invalidateReports(ctx)
	return sale, nil
}

func (s *Service) CancelSale(ctx context.Context, id string) error {
	sale, err := s.repo.CancelSale(ctx, id)
	if err != nil {
		return err
	}

	s.logAudit(ctx, "sale_cancel", "sale", sale.ID, fmt.Sprintf("total=%s", sale.Total.StringFixed(2)))
	s.invalidateReports(ctx)
	return nil
}

func (s *Service) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

func (s *Service) IssueInvoice(ctx context.Context, saleID string) (*domain.Invoice, error) {
	invoice, err := s.repo.IssueInvoice(ctx, saleID, s.now())
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "invoice_issue", "invoice", invoice.ID, fmt.Sprintf("number=%s,sale=%s", invoice.InvoiceNumber, invoice.SaleID))
	return invoice, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	expense := domain.Expense{
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		Category:      strings.ToUpper(strings.TrimSpace(req.Category)),
		PaymentMethod: strings.ToUpper(strings.TrimSpace(req.PaymentMethod)),
		Date:          s.now().UTC(),
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("amount=%s,category=%s", created.Amount.StringFixed(2), created.Category))
	s.invalidateReports(ctx)
	return created, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !policy.CanDelete(actor.Role) {
		return fmt.Errorf("%w: role %s cannot delete expenses", store.ErrForbidden, actor.Role)
	}

	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "expense_delete", "expense", id, "")
	s.invalidateReports(ctx)
	return nil
}

// SalesSummary is always computed fresh: the date range makes cache keys
// unbounded and the aggregation is cheap at this scale.
func (s *Service) SalesSummary(ctx context.Context, start, end time.Time) (*report.Summary, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	sum := report.SalesSummary(sales, expenses, start, end)
	return &sum, nil
}

func (s *Service) MonthlyVAT(ctx context.Context) ([]report.VATMonth, error) {
	var cached []report.VATMonth
	if hit, err := s.reports.Get(ctx, cacheKeyVAT, &cached); err != nil {
		log.Printf("[service] WARN: vat cache read failed: %v", err)
	} else if hit {
		return cached, nil
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	months := report.MonthlyVAT(sales)

	if err := s.reports.Set(ctx, cacheKeyVAT, months, vatCacheTTL); err != nil {
		log.Printf("[service] WARN: vat cache write failed: %v", err)
	}
	return months, nil
}

func (s *Service) StockValuation(ctx context.Context) (*report.StockValuation, error) {
	var cached report.StockValuation
	if hit, err := s.reports.Get(ctx, cacheKeyStock, &cached); err != nil {
		log.Printf("[service] WARN: stock cache read failed: %v", err)
	} else if hit {
		return &cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	valuation := report.Valuation(products)

	if err := s.reports.Set(ctx, cacheKeyStock, valuation, stockCacheTTL); err != nil {
		log.Printf("[service] WARN: stock cache write failed: %v", err)
	}
	return &valuation, nil
}

func (s *Service) CustomerStatement(ctx context.Context, customerID string, start, end time.Time) (*report.CustomerStatement, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	statement := report.Statement(*customer, sales, start, end)
	return &statement, nil
}

func (s *Service) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	var cached report.Dashboard
	if hit, err := s.reports.Get(ctx, cacheKeyDashboard, &cached); err != nil {
		log.Printf("[service] WARN: dashboard cache read failed: %v", err)
	} else if hit {
		return &cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	dashboard := report.BuildDashboard(products, sales, s.now())

	if err := s.reports.Set(ctx, cacheKeyDashboard, dashboard, dashboardCacheTTL); err != nil {
		log.Printf("[service] WARN: dashboard cache write failed: %v", err)
	}
	return &dashboard, nil
}

// Advise sends a compact snapshot of the shop plus the user's question to
// the configured model backend.
func (s *Service) Advise(ctx context.Context, req domain.AdvisorRequest) (*domain.AdvisorResponse, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	answer, err := s.adviser.Advise(ctx, advisor.BuildContext(products, sales), req.Question)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "advisor_ask", "advisor", "", "")
	return &domain.AdvisorResponse{Answer: answer}, nil
}

func (s *Service) AuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

// StorageStatus surfaces snapshot persistence health when the in-memory
// store backs the service. Database-backed deployments report nothing.
func (s *Service) StorageStatus() *memory.SaveStatus {
	mem, ok := s.repo.(*memory.Store)
	if !ok {
		return nil
	}
	status := mem.SaveStatus()
	return &status
}
