package report

import (
	"testing"
	"time"

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

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func saleOn(day string, sub, tax string, items ...domain.CartItem) domain.Sale {
	return domain.Sale{
		ID:       "sal-" + day,
		Date:     date(day).Add(14 * time.Hour),
		Items:    items,
		SubTotal: dec(sub),
		TaxTotal: dec(tax),
		Total:    dec(sub).Add(dec(tax)),
	}
}

func TestSalesSummary(t *testing.T) {
	sales := []domain.Sale{
		saleOn("2026-03-10", "1000", "200", domain.CartItem{CostPrice: dec("600"), Quantity: 1}),
		saleOn("2026-03-20", "500", "100", domain.CartItem{CostPrice: dec("100"), Quantity: 2}),
		saleOn("2026-04-02", "9999", "1999.80"), // outside range
	}
	expenses := []domain.Expense{
		{Amount: dec("300"), Date: date("2026-03-15")},
		{Amount: dec("50"), Date: date("2026-05-01")}, // outside range
	}

	sum := SalesSummary(sales, expenses, date("2026-03-01"), date("2026-03-31"))
	if sum.SalesCount != 2 {
		t.Fatalf("expected 2 sales in range, got %d", sum.SalesCount)
	}
	if !sum.Revenue.Equal(dec("1500")) {
		t.Fatalf("revenue: expected 1500, got %s", sum.Revenue)
	}
	if !sum.COGS.Equal(dec("800")) {
		t.Fatalf("cogs: expected 800, got %s", sum.COGS)
	}
	if !sum.GrossProfit.Equal(dec("700")) {
		t.Fatalf("gross profit: expected 700, got %s", sum.GrossProfit)
	}
	if !sum.ExpenseTotal.Equal(dec("300")) {
		t.Fatalf("expenses: expected 300, got %s", sum.ExpenseTotal)
	}
	if !sum.NetProfit.Equal(dec("400")) {
		t.Fatalf("net profit: expected 400, got %s", sum.NetProfit)
	}
}

func TestSummaryRangeEndIsInclusive(t *testing.T) {
	late := domain.Sale{Date: date("2026-03-31").Add(23*time.Hour + 45*time.Minute), SubTotal: dec("10")}
	sum := SalesSummary([]domain.Sale{late}, nil, date("2026-03-01"), date("2026-03-31"))
	if sum.SalesCount != 1 {
		t.Fatalf("a sale late on the end day must be inside the range")
	}
}

func TestMonthlyVAT(t *testing.T) {
	sales := []domain.Sale{
		saleOn("2026-02-05", "500", "100", domain.CartItem{CostPrice: dec("100"), Quantity: 1}),
		saleOn("2026-02-18", "250", "50", domain.CartItem{CostPrice: dec("100"), Quantity: 1}),
		saleOn("2026-01-10", "100", "20", domain.CartItem{CostPrice: dec("600"), Quantity: 1}),
	}

	months := MonthlyVAT(sales)
	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}
	if months[0].Month != "2026-02" || months[1].Month != "2026-01" {
		t.Fatalf("expected reverse-chronological order, got %s then %s", months[0].Month, months[1].Month)
	}

	feb := months[0]
	if !feb.OutputVAT.Equal(dec("150")) {
		t.Fatalf("feb output VAT: expected 150, got %s", feb.OutputVAT)
	}
	// input estimate: (100+100) * 0.20 = 40
	if !feb.EstimatedInputVAT.Equal(dec("40")) {
		t.Fatalf("feb input VAT: expected 40, got %s", feb.EstimatedInputVAT)
	}
	if !feb.Balance.Equal(dec("110")) || feb.Status != VATPayable {
		t.Fatalf("feb balance: expected 110 payable, got %s %s", feb.Balance, feb.Status)
	}

	jan := months[1]
	// output 20, input 600*0.20 = 120, balance -100 carried forward
	if !jan.Balance.Equal(dec("-100")) || jan.Status != VATCarriedForward {
		t.Fatalf("jan balance: expected -100 carried forward, got %s %s", jan.Balance, jan.Status)
	}
}

func TestValuation(t *testing.T) {
	products := []domain.Product{
		{Stock: 10, CostPrice: dec("5"), Price: dec("9"), MinStockLevel: 2},
		{Stock: 2, CostPrice: dec("20"), Price: dec("35"), MinStockLevel: 5},
	}
	v := Valuation(products)
	if !v.TotalCostValue.Equal(dec("90")) {
		t.Fatalf("cost value: expected 90, got %s", v.TotalCostValue)
	}
	if !v.TotalSaleValue.Equal(dec("160")) {
		t.Fatalf("sale value: expected 160, got %s", v.TotalSaleValue)
	}
	if v.CriticalCount != 1 {
		t.Fatalf("expected 1 critical product, got %d", v.CriticalCount)
	}
}

func TestCriticalProducts(t *testing.T) {
	products := []domain.Product{
		{Code: "A", Stock: 45, MinStockLevel: 10},
		{Code: "B", Stock: 0, MinStockLevel: 15},
	}
	critical := CriticalProducts(products)
	if len(critical) != 1 || critical[0].Code != "B" {
		t.Fatalf("expected only B critical, got %v", critical)
	}
}

func TestStatementFiltersByCustomerAndRange(t *testing.T) {
	customer := domain.Customer{ID: "cus-1", Name: "Acme"}
	sales := []domain.Sale{
		{CustomerID: "cus-1", Date: date("2026-03-10"), Total: dec("120")},
		{CustomerID: "cus-1", Date: date("2026-06-10"), Total: dec("240")},
		{CustomerID: "cus-2", Date: date("2026-03-11"), Total: dec("999")},
	}
	st := Statement(customer, sales, date("2026-03-01"), date("2026-03-31"))
	if len(st.Sales) != 1 {
		t.Fatalf("expected 1 sale on the statement, got %d", len(st.Sales))
	}
	if !st.PeriodTotal.Equal(dec("120")) {
		t.Fatalf("period total: expected 120, got %s", st.PeriodTotal)
	}
}

func TestBuildDashboard(t *testing.T) {
	now := date("2026-03-20").Add(18 * time.Hour)
	products := []domain.Product{
		{Stock: 1, MinStockLevel: 5},
		{Stock: 50, MinStockLevel: 5},
	}
	sales := []domain.Sale{
		{Date: now.Add(-2 * time.Hour), Total: dec("100")},
		{Date: now.Add(-30 * time.Hour), Total: dec("70")},
	}
	d := BuildDashboard(products, sales, now)
	if d.ProductCount != 2 || len(d.CriticalProducts) != 1 {
		t.Fatalf("unexpected product stats: %+v", d)
	}
	if d.TodaySalesCount != 1 || !d.TodayRevenue.Equal(dec("100")) {
		t.Fatalf("expected today 1 sale / 100, got %d / %s", d.TodaySalesCount, d.TodayRevenue)
	}
	if len(d.RecentSales) != 2 {
		t.Fatalf("expected 2 recent sales, got %d", len(d.RecentSales))
	}
}
