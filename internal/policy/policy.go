// Package policy holds the static role capability table. It is a fixed
// mapping, not a permission engine: roles map to view sets plus a couple
// of action capabilities, and unknown roles get nothing.
package policy

const (
	RoleAdmin      = "ADMIN"
	RoleFinance    = "FINANCE"
	RoleSales      = "SALES"
	RolePurchasing = "PURCHASING"
)

const (
	ViewDashboard  = "DASHBOARD"
	ViewInventory  = "INVENTORY"
	ViewSales      = "SALES"
	ViewInvoices   = "INVOICES"
	ViewCustomers  = "CUSTOMERS"
	ViewReports    = "REPORTS"
	ViewPrices     = "VIEW_PRICES"
	ViewExpenses   = "EXPENSES"
)

var allViews = []string{
	ViewDashboard,
	ViewInventory,
	ViewSales,
	ViewInvoices,
	ViewCustomers,
	ViewReports,
	ViewPrices,
	ViewExpenses,
}

var viewsByRole = map[string][]string{
	RoleAdmin:      allViews,
	RoleFinance:    allViews,
	RoleSales:      {ViewInventory, ViewSales, ViewInvoices, ViewCustomers, ViewPrices},
	RolePurchasing: {ViewInventory, ViewPrices, ViewReports},
}

// AllowedViews returns the views a role may enter. Unknown roles get an
// empty set.
func AllowedViews(role string) []string {
	views, ok := viewsByRole[role]
	if !ok {
		return []string{}
	}
	out := make([]string, len(views))
	copy(out, views)
	return out
}

func Allowed(role string, view string) bool {
	for _, v := range viewsByRole[role] {
		if v == view {
			return true
		}
	}
	return false
}

// CanSeeCost gates cost-price visibility. Sales staff see sale prices only.
func CanSeeCost(role string) bool {
	return role == RoleAdmin || role == RolePurchasing || role == RoleFinance
}

// CanDelete gates destructive catalog and ledger operations.
func CanDelete(role string) bool {
	return role == RoleAdmin
}

func ValidRole(role string) bool {
	_, ok := viewsByRole[role]
	return ok
}
