package domain

import "time"

const (
	ReportDaily   = "daily"
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
	ReportYearly  = "yearly"
)

const (
	EntrySale    = "sale"
	EntryDamage  = "damage"
	EntryExpense = "expense"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentCredit   = "credit"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Barcode       string    `json:"barcode,omitempty"`
	SellingPrice  float64   `json:"sellingPrice"`
	PurchasePrice float64   `json:"purchasePrice"`
	Stock         int       `json:"stock"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ProductCreateRequest struct {
	Name          string  `json:"name"`
	Barcode       string  `json:"barcode"`
	SellingPrice  float64 `json:"sellingPrice"`
	PurchasePrice float64 `json:"purchasePrice"`
	Stock         int     `json:"stock"`
}

// Invoice is a recorded sale. ProductsData holds the JSON-encoded line items
// exactly as they were stored; an empty string means the invoice carries no
// line items. A zero Date marks a record whose date could not be read.
type Invoice struct {
	ID            int64     `json:"id"`
	Date          time.Time `json:"date"`
	Total         float64   `json:"total"`
	ProductsData  string    `json:"productsData,omitempty"`
	CustomerName  string    `json:"customerName,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Discount      float64   `json:"discount,omitempty"`
	IsDeleted     bool      `json:"isDeleted"`
}

type SaleLineRequest struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
}

type SaleRequest struct {
	Date          string            `json:"date"`
	CustomerName  string            `json:"customerName"`
	PaymentMethod string            `json:"paymentMethod"`
	Items         []SaleLineRequest `json:"items"`
}

// InvoiceImportRequest carries a historical invoice whose productsData is
// stored verbatim, whatever shape it has.
type InvoiceImportRequest struct {
	Date          string  `json:"date"`
	Total         float64 `json:"total"`
	ProductsData  string  `json:"productsData"`
	CustomerName  string  `json:"customerName"`
	PaymentMethod string  `json:"paymentMethod"`
	PaymentStatus string  `json:"paymentStatus"`
}

type DamagedItem struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"productId"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	ValueLoss   float64   `json:"valueLoss"`
}

type DamageRequest struct {
	ProductID   int64    `json:"productId"`
	Quantity    int      `json:"quantity"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	ValueLoss   *float64 `json:"valueLoss"`
}

type Expense struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Details     string    `json:"details,omitempty"`
	ExpenseType string    `json:"expenseType,omitempty"`
}

type ExpenseRequest struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Details     string  `json:"details"`
	ExpenseType string  `json:"expenseType"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ReportOptions selects the period and the sections of a report. Nil
// toggles mean "included".
type ReportOptions struct {
	Type                   string         `json:"type"`
	Date                   string         `json:"date,omitempty"`
	DateRange              *DateRange     `json:"dateRange,omitempty"`
	IncludeDetailedReports *bool          `json:"includeDetailedReports,omitempty"`
	IncludeTopProducts     *bool          `json:"includeTopProducts,omitempty"`
	IncludeDamagedItems    *bool          `json:"includeDamagedItems,omitempty"`
	IncludeExpenses        *bool          `json:"includeExpenses,omitempty"`
	Locale                 string         `json:"locale,omitempty"`
	Location               *time.Location `json:"-"`
}

func (o ReportOptions) DetailedReports() bool { return enabled(o.IncludeDetailedReports) }
func (o ReportOptions) TopProducts() bool     { return enabled(o.IncludeTopProducts) }
func (o ReportOptions) DamagedItems() bool    { return enabled(o.IncludeDamagedItems) }
func (o ReportOptions) Expenses() bool        { return enabled(o.IncludeExpenses) }

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

type ReportSummary struct {
	TotalSales           float64 `json:"totalSales"`
	TotalProfit          float64 `json:"totalProfit"`
	TotalDamages         float64 `json:"totalDamages"`
	SalesCount           int     `json:"salesCount"`
	PreviousTotalSales   float64 `json:"previousTotalSales"`
	PreviousTotalProfit  float64 `json:"previousTotalProfit"`
	PreviousTotalDamages float64 `json:"previousTotalDamages"`
	PreviousSalesCount   int     `json:"previousSalesCount"`
}

type ChartBucket struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

type TopProduct struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	SoldQuantity float64 `json:"soldQuantity"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
}

type LedgerEntry struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Profit        *float64  `json:"profit,omitempty"`
	Details       string    `json:"details"`
	CustomerName  string    `json:"customerName,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	ExpenseType   string    `json:"expenseType,omitempty"`
}

type ReportResult struct {
	Summary         ReportSummary `json:"summary"`
	ChartData       []ChartBucket `json:"chartData"`
	TopProducts     []TopProduct  `json:"topProducts"`
	DetailedReports []LedgerEntry `json:"detailedReports"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
