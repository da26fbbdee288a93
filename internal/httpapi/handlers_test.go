package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
	"github.com/v18mgazy/Ghazyy-sub002/internal/service"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store/memory"
)

type testAPI struct {
	*API
	handler http.Handler
	admin   string
	cashier string
}

// newTestAPI wires the real service, generator and auth manager over a
// seeded in-memory store so requests go through the whole stack.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-pass")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-pass")

	repo := memory.NewSeeded()
	registry := prometheus.NewRegistry()
	generator := report.NewGenerator(repo, report.WithMetrics(report.NewMetrics(registry)))
	svc := service.New(repo, generator, nil, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	auth := NewAuthManager(ctx, testSecret, time.Hour, repo)
	api := New(svc, auth, zerolog.Nop(), "https://pos.example.test", registry)

	admin, err := auth.sign("admin", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)
	cashier, err := auth.sign("cashier", RoleCashier, time.Now().Add(time.Hour))
	require.NoError(t, err)

	return &testAPI{API: api, handler: api.Handler(), admin: admin, cashier: cashier}
}

func (ta *testAPI) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoginThroughHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "admin-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[domain.LoginResponse](t, rec)
	assert.Equal(t, RoleAdmin, resp.Role)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=daily&date=2024-01-01", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaleFlowFeedsReport(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices", api.cashier, domain.SaleRequest{
		Date:          "2024-05-10T09:30",
		CustomerName:  "Sari",
		PaymentMethod: "transfer",
		Items:         []domain.SaleLineRequest{{ProductID: 3, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[struct {
		Invoice domain.Invoice `json:"invoice"`
	}](t, rec)
	assert.Equal(t, 37800.0, created.Invoice.Total)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=daily&date=2024-05-10", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[domain.ReportResult](t, rec)
	assert.Equal(t, 37800.0, result.Summary.TotalSales)
	assert.Equal(t, 10600.0, result.Summary.TotalProfit)
	assert.Equal(t, 1, result.Summary.SalesCount)
	assert.Equal(t, 37800.0, result.ChartData[9].Revenue)
	require.Len(t, result.DetailedReports, 1)
	assert.Equal(t, "Invoice #1 - 1 items - Sari - transfer", result.DetailedReports[0].Details)

	rec = api.do(t, http.MethodGet, "/api/v1/invoices/1", api.cashier, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportQueryToggles(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/expenses", api.admin, domain.ExpenseRequest{Date: "2024-05-10", Amount: 20000, Details: "sewa"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=monthly&date=2024-05&include_top_products=false&include_expenses=0", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[domain.ReportResult](t, rec)
	assert.Len(t, result.ChartData, 31)
	assert.Empty(t, result.TopProducts)
	assert.Empty(t, result.DetailedReports)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=monthly&date=2024-05", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeBody[domain.ReportResult](t, rec)
	require.Len(t, result.DetailedReports, 1)
	assert.Equal(t, domain.EntryExpense, result.DetailedReports[0].Type)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=weekly&date=2024-05-10&lang=ar", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeBody[domain.ReportResult](t, rec)
	require.Len(t, result.ChartData, 7)
	assert.NotEqual(t, "Sun", result.ChartData[0].Name)
}

func TestReportCompareParam(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices/import", api.admin, domain.InvoiceImportRequest{Date: "2024-04-15", Total: 5000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=monthly&date=2024-05&compare=true", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[domain.ReportResult](t, rec)
	assert.Zero(t, result.Summary.TotalSales)
	assert.Equal(t, 5000.0, result.Summary.PreviousTotalSales)
	assert.InDelta(t, 1500.0, result.Summary.PreviousTotalProfit, 1e-9)
}

func TestReportRejectsBadOptions(t *testing.T) {
	api := newTestAPI(t)

	for _, target := range []string{
		"/api/v1/reports?type=hourly",
		"/api/v1/reports?type=daily&date=10-05-2024",
		"/api/v1/reports?type=daily&start_date=2024-05-10&end_date=2024-05-01",
		"/api/v1/reports?type=daily&include_detailed=maybe",
		"/api/v1/reports/export?type=daily&format=pdf",
	} {
		rec := api.do(t, http.MethodGet, target, api.admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		body := decodeBody[map[string]string](t, rec)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestReportQueryPassesTypeAndDateThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?type=%20daily%20&date=%202024-05-10%20", nil)
	opts, compare, err := reportQuery(req)
	require.NoError(t, err)
	assert.False(t, compare)
	assert.Equal(t, " daily ", opts.Type)
	assert.Equal(t, " 2024-05-10 ", opts.Date)

	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/reports?type=%20daily&date=2024-05-10", api.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=daily&date=%202024-05-10%20", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[domain.ReportResult](t, rec).ChartData, 24)
}

func TestReportExportFormats(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices", api.cashier, domain.SaleRequest{
		Date:  "2024-05-10T14:00",
		Items: []domain.SaleLineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/export?type=daily&date=2024-05-10&format=csv", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-daily-2024-05-10.csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Contains(t, records, []string{"summary", "total_sales", "3500.00", ""})

	rec = api.do(t, http.MethodGet, "/api/v1/reports/export?type=daily&date=2024-05-10&format=xlsx", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	book, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer book.Close()
	title, err := book.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Daily report 2024-05-10", title)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/export?type=daily&date=2024-05-10&format=html", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "Total sales: 3500.00")
}

func TestInvoiceLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices/import", api.admin, domain.InvoiceImportRequest{
		Date:         "2024-05-01 08:00",
		Total:        1000,
		ProductsData: "not json",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/invoices", api.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Invoices []domain.Invoice `json:"invoices"`
	}](t, rec)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, "not json", list.Invoices[0].ProductsData)

	rec = api.do(t, http.MethodDelete, "/api/v1/invoices/1", api.cashier, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/v1/invoices/1", api.admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/v1/invoices/99", api.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/v1/invoices/abc", api.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/invoices?include_deleted=true", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[struct {
		Invoices []domain.Invoice `json:"invoices"`
	}](t, rec)
	require.Len(t, list.Invoices, 1)
	assert.True(t, list.Invoices[0].IsDeleted)
}

func TestSaleErrorsMapToStatus(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices", api.cashier, domain.SaleRequest{
		Items: []domain.SaleLineRequest{{ProductID: 4, Quantity: 31}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/invoices", api.cashier, domain.SaleRequest{
		Items: []domain.SaleLineRequest{{ProductID: 404, Quantity: 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/invoices", api.cashier, map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDamageAndProducts(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/products", api.admin, domain.ProductCreateRequest{Name: "Kecap", SellingPrice: 9000, PurchasePrice: 7000, Stock: 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/products", api.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeBody[struct {
		Products []domain.Product `json:"products"`
	}](t, rec)
	assert.Len(t, products.Products, 11)

	rec = api.do(t, http.MethodPost, "/api/v1/damaged-items", api.admin, domain.DamageRequest{ProductID: 11, Quantity: 2, Date: "2024-05-10"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=daily&date=2024-05-10", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[domain.ReportResult](t, rec)
	assert.Equal(t, 14000.0, result.Summary.TotalDamages)
	require.Len(t, result.DetailedReports, 1)
	assert.Equal(t, domain.EntryDamage, result.DetailedReports[0].Type)
}

func TestUsersEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/users", api.admin, domain.StaffCreateRequest{Username: "kasir02", Password: "kasir-pass-02"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/v1/users", api.admin, domain.StaffCreateRequest{Username: "kasir02", Password: "kasir-pass-02"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/users", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[struct {
		Users []domain.StaffUser `json:"users"`
	}](t, rec)
	assert.Len(t, users.Users, 3)
}

func TestMetricsEndpointExposesReportMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/invoices/import", api.admin, domain.InvoiceImportRequest{Date: "2024-05-10", Total: 100})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/v1/reports?type=daily&date=2024-05-10", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pos_report_profit_tier_total{tier="invoice_heuristic"} 1`)
	assert.Contains(t, body, "pos_report_generate_seconds_bucket")
}
