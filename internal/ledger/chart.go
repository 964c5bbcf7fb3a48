package ledger

// ChartAccount is one row of the standard chart of accounts seeded by
// Registry.BootstrapChart. Codes follow the conventional numeric ranges
// (1xxx assets, 2xxx liabilities, 3xxx equity, 4xxx revenue, 5xxx+ expenses)
// but the ledger itself only requires uniqueness.
type ChartAccount struct {
	Code       string
	Name       string
	Type       AccountType
	Category   AccountCategory
	ParentCode string // empty for top-level accounts
}

// StandardChart returns the canonical chart of accounts for a construction
// business. Seeding is idempotent: existing codes are reported as warnings.
func StandardChart() []ChartAccount {
	return []ChartAccount{
		// Assets (1xxx)
		{Code: "1000", Name: "Cash", Type: AccountTypeAsset, Category: CategoryCash},
		{Code: "1010", Name: "Payroll Checking", Type: AccountTypeAsset, Category: CategoryCash, ParentCode: "1000"},
		{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Category: CategoryCurrentAsset},
		{Code: "1200", Name: "Materials Inventory", Type: AccountTypeAsset, Category: CategoryCurrentAsset},
		{Code: "1500", Name: "Equipment", Type: AccountTypeAsset, Category: CategoryFixedAsset},
		{Code: "1510", Name: "Vehicles", Type: AccountTypeAsset, Category: CategoryFixedAsset},

		// Liabilities (2xxx)
		{Code: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, Category: CategoryCurrentLiability},
		{Code: "2100", Name: "Accrued Payroll", Type: AccountTypeLiability, Category: CategoryCurrentLiability},
		{Code: "2500", Name: "Equipment Loans", Type: AccountTypeLiability, Category: CategoryLongTermLiability},

		// Equity (3xxx)
		{Code: "3000", Name: "Owner's Equity", Type: AccountTypeEquity, Category: CategoryEquity},
		{Code: "3100", Name: "Retained Earnings", Type: AccountTypeEquity, Category: CategoryEquity},

		// Revenue (4xxx)
		{Code: "4000", Name: "Contract Revenue", Type: AccountTypeRevenue, Category: CategoryOperatingRevenue},
		{Code: "4100", Name: "Service Revenue", Type: AccountTypeRevenue, Category: CategoryOperatingRevenue},

		// Cost of goods sold (5xxx)
		{Code: "5000", Name: "Cost of Goods Sold", Type: AccountTypeExpense, Category: CategoryCOGS},
		{Code: "5100", Name: "Direct Labor", Type: AccountTypeExpense, Category: CategoryCOGS, ParentCode: "5000"},
		{Code: "5200", Name: "Materials Cost", Type: AccountTypeExpense, Category: CategoryCOGS, ParentCode: "5000"},

		// Operating expenses (6xxx)
		{Code: "6000", Name: "Operating Expenses", Type: AccountTypeExpense, Category: CategoryOperatingExpense},
		{Code: "6100", Name: "Equipment Maintenance", Type: AccountTypeExpense, Category: CategoryOperatingExpense, ParentCode: "6000"},
		{Code: "6200", Name: "Insurance", Type: AccountTypeExpense, Category: CategoryOperatingExpense, ParentCode: "6000"},
		{Code: "6300", Name: "Fuel", Type: AccountTypeExpense, Category: CategoryOperatingExpense, ParentCode: "6000"},
	}
}
