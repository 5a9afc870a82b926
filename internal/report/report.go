// Package report recomputes every financial rollup from full collection
// snapshots. Nothing here mutates state or talks to storage; the store
// hands in slices and gets aggregates back.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"buluterp/backend/internal/domain"
	"buluterp/backend/internal/pricing"
)

const (
	VATPayable        = "PAYABLE"
	VATCarriedForward = "CARRIED_FORWARD"
)

type Summary struct {
	Start        string          `json:"start,omitempty"`
	End          string          `json:"end,omitempty"`
	SalesCount   int             `json:"salesCount"`
	Revenue      decimal.Decimal `json:"revenue"`
	COGS         decimal.Decimal `json:"cogs"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`
	ExpenseTotal decimal.Decimal `json:"expenseTotal"`
	NetProfit    decimal.Decimal `json:"netProfit"`
	Sales        []domain.Sale   `json:"sales"`
}

type VATMonth struct {
	Month             string          `json:"month"`
	OutputVAT         decimal.Decimal `json:"outputVat"`
	EstimatedInputVAT decimal.Decimal `json:"estimatedInputVat"`
	Balance           decimal.Decimal `json:"balance"`
	Status            string          `json:"status"`
}

type StockValuation struct {
	ProductCount   int             `json:"productCount"`
	CriticalCount  int             `json:"criticalCount"`
	TotalCostValue decimal.Decimal `json:"totalCostValue"`
	TotalSaleValue decimal.Decimal `json:"totalSaleValue"`
}

type CustomerStatement struct {
	Customer    domain.Customer `json:"customer"`
	Sales       []domain.Sale   `json:"sales"`
	PeriodTotal decimal.Decimal `json:"periodTotal"`
}

type Dashboard struct {
	ProductCount     int              `json:"productCount"`
	CriticalProducts []domain.Product `json:"criticalProducts"`
	TodaySalesCount  int              `json:"todaySalesCount"`
	TodayRevenue     decimal.Decimal  `json:"todayRevenue"`
	RecentSales      []domain.Sale    `json:"recentSales"`
}

// EndOfDay pushes a range end to the last instant of its calendar day so
// that [start, end] is inclusive of the whole end day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func inRange(t time.Time, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(EndOfDay(end)) {
		return false
	}
	return true
}

// saleCost is the cost basis of a sale: unit cost times quantity over all
// lines. Service lines carry zero cost and drop out naturally.
func saleCost(s domain.Sale) decimal.Decimal {
	var cost decimal.Decimal
	for _, item := range s.Items {
		cost = cost.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return cost
}

// SalesSummary rolls revenue, COGS, profit and expenses over a date range.
// Revenue is tax-exclusive by definition (sum of subtotals).
func SalesSummary(sales []domain.Sale, expenses []domain.Expense, start, end time.Time) Summary {
	sum := Summary{Sales: []domain.Sale{}}
	if !start.IsZero() {
		sum.Start = start.Format("2006-01-02")
	}
	if !end.IsZero() {
		sum.End = end.Format("2006-01-02")
	}

	for _, s := range sales {
		if !inRange(s.Date, start, end) {
			continue
		}
		sum.Sales = append(sum.Sales, s)
		sum.Revenue = sum.Revenue.Add(s.SubTotal)
		sum.COGS = sum.COGS.Add(saleCost(s))
	}
	for _, e := range expenses {
		if !inRange(e.Date, start, end) {
			continue
		}
		sum.ExpenseTotal = sum.ExpenseTotal.Add(e.Amount)
	}

	sum.SalesCount = len(sum.Sales)
	sum.GrossProfit = sum.Revenue.Sub(sum.COGS)
	sum.NetProfit = sum.GrossProfit.Sub(sum.ExpenseTotal)
	return sum
}

// MonthlyVAT reconciles output VAT against an estimated input VAT for
// every calendar month with sales. It always runs over the full sales
// history, never a filtered range. Input VAT is estimated as the VAT share
// of the month's cost basis, which is not ledger-accurate and is named
// accordingly. Months come back reverse-chronological.
func MonthlyVAT(sales []domain.Sale) []VATMonth {
	type bucket struct {
		output decimal.Decimal
		input  decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	for _, s := range sales {
		key := fmt.Sprintf("%04d-%02d", s.Date.Year(), int(s.Date.Month()))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.output = b.output.Add(s.TaxTotal)
		b.input = b.input.Add(saleCost(s).Mul(pricing.VATRate))
	}

	months := make([]VATMonth, 0, len(buckets))
	for key, b := range buckets {
		balance := b.output.Sub(b.input)
		status := VATPayable
		if balance.IsNegative() {
			status = VATCarriedForward
		}
		months = append(months, VATMonth{
			Month:             key,
			OutputVAT:         b.output,
			EstimatedInputVAT: b.input,
			Balance:           balance,
			Status:            status,
		})
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month > months[j].Month
	})
	return months
}

// Valuation prices the current stock at cost and at sale price, both
// tax-exclusive.
func Valuation(products []domain.Product) StockValuation {
	v := StockValuation{ProductCount: len(products)}
	for _, p := range products {
		qty := decimal.NewFromInt(int64(p.Stock))
		v.TotalCostValue = v.TotalCostValue.Add(p.CostPrice.Mul(qty))
		v.TotalSaleValue = v.TotalSaleValue.Add(p.Price.Mul(qty))
		if p.Critical() {
			v.CriticalCount++
		}
	}
	return v
}

// Statement lists one customer's sales inside a date range with the
// period's tax-inclusive total.
func Statement(customer domain.Customer, sales []domain.Sale, start, end time.Time) CustomerStatement {
	st := CustomerStatement{Customer: customer, Sales: []domain.Sale{}}
	for _, s := range sales {
		if s.CustomerID != customer.ID || !inRange(s.Date, start, end) {
			continue
		}
		st.Sales = append(st.Sales, s)
		st.PeriodTotal = st.PeriodTotal.Add(s.Total)
	}
	return st
}

// CriticalProducts filters the catalog down to products at or below their
// minimum stock level.
func CriticalProducts(products []domain.Product) []domain.Product {
	critical := []domain.Product{}
	for _, p := range products {
		if p.Critical() {
			critical = append(critical, p)
		}
	}
	return critical
}

// BuildDashboard summarizes the day for the landing view. Sales are
// expected most-recent-first, which the store guarantees.
func BuildDashboard(products []domain.Product, sales []domain.Sale, now time.Time) Dashboard {
	d := Dashboard{
		ProductCount:     len(products),
		CriticalProducts: CriticalProducts(products),
		RecentSales:      []domain.Sale{},
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, s := range sales {
		if inRange(s.Date, dayStart, now) {
			d.TodaySalesCount++
			d.TodayRevenue = d.TodayRevenue.Add(s.Total)
		}
		if len(d.RecentSales) < 5 {
			d.RecentSales = append(d.RecentSales, s)
		}
	}
	return d
}
