package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

// Money renders an amount with two decimals. Only presentation rounds; the
// report values themselves are left untouched.
func Money(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

func moneyValue(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func CSV(title string, result domain.ReportResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"section", "key", "value", "extra"},
		{"summary", "title", title, ""},
		{"summary", "total_sales", Money(result.Summary.TotalSales), ""},
		{"summary", "total_profit", Money(result.Summary.TotalProfit), ""},
		{"summary", "total_damages", Money(result.Summary.TotalDamages), ""},
		{"summary", "sales_count", strconv.Itoa(result.Summary.SalesCount), ""},
	}
	for _, b := range result.ChartData {
		rows = append(rows, []string{"chart", b.Name, Money(b.Revenue), Money(b.Profit)})
	}
	for _, p := range result.TopProducts {
		rows = append(rows, []string{"top_product", p.Name, Money(p.Revenue), strconv.FormatFloat(p.SoldQuantity, 'f', -1, 64)})
	}
	for _, e := range result.DetailedReports {
		rows = append(rows, []string{e.Type, e.Date.UTC().Format(time.RFC3339), Money(e.Amount), e.Details})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const (
	sheetSummary  = "Summary"
	sheetChart    = "Chart"
	sheetProducts = "Top Products"
	sheetDetails  = "Details"
)

// XLSX writes the report as a workbook with one sheet per section.
func XLSX(title string, result domain.ReportResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetChart, sheetProducts, sheetDetails} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Report", title},
		{"Total sales", moneyValue(result.Summary.TotalSales)},
		{"Total profit", moneyValue(result.Summary.TotalProfit)},
		{"Total damages", moneyValue(result.Summary.TotalDamages)},
		{"Sales count", result.Summary.SalesCount},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return nil, err
	}

	chart := [][]any{{"Period", "Revenue", "Profit"}}
	for _, b := range result.ChartData {
		chart = append(chart, []any{b.Name, moneyValue(b.Revenue), moneyValue(b.Profit)})
	}
	if err := writeRows(f, sheetChart, chart); err != nil {
		return nil, err
	}

	products := [][]any{{"ID", "Product", "Sold", "Revenue", "Profit"}}
	for _, p := range result.TopProducts {
		products = append(products, []any{p.ID, p.Name, p.SoldQuantity, moneyValue(p.Revenue), moneyValue(p.Profit)})
	}
	if err := writeRows(f, sheetProducts, products); err != nil {
		return nil, err
	}

	details := [][]any{{"Date", "Type", "Amount", "Profit", "Details"}}
	for _, e := range result.DetailedReports {
		var profit any
		if e.Profit != nil {
			profit = moneyValue(*e.Profit)
		}
		details = append(details, []any{e.Date.UTC().Format("2006-01-02 15:04:05"), e.Type, moneyValue(e.Amount), profit, e.Details})
	}
	if err := writeRows(f, sheetDetails, details); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// reportHTMLTmpl renders printable reports; html/template escapes every
// user-supplied field.
var reportHTMLTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": Money,
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>{{.Title}}</h2>
  <p>Sales: {{.Result.Summary.SalesCount}}</p>
  <p>Total sales: {{money .Result.Summary.TotalSales}}</p>
  <p>Total profit: {{money .Result.Summary.TotalProfit}}</p>
  <p>Total damages: {{money .Result.Summary.TotalDamages}}</p>
  <h3>Breakdown</h3>
  <table>
    <tr><th>Period</th><th>Revenue</th><th>Profit</th></tr>
    {{range .Result.ChartData}}<tr><td>{{.Name}}</td><td>{{money .Revenue}}</td><td>{{money .Profit}}</td></tr>{{end}}
  </table>
  {{if .Result.TopProducts}}<h3>Top products</h3>
  <table>
    <tr><th>Product</th><th>Sold</th><th>Revenue</th><th>Profit</th></tr>
    {{range .Result.TopProducts}}<tr><td>{{.Name}}</td><td>{{.SoldQuantity}}</td><td>{{money .Revenue}}</td><td>{{money .Profit}}</td></tr>{{end}}
  </table>{{end}}
  {{if .Result.DetailedReports}}<h3>Details</h3>
  <table>
    <tr><th>Date</th><th>Type</th><th>Amount</th><th>Details</th></tr>
    {{range .Result.DetailedReports}}<tr><td>{{stamp .Date}}</td><td>{{.Type}}</td><td>{{money .Amount}}</td><td>{{.Details}}</td></tr>{{end}}
  </table>{{end}}
</body>
</html>`))

func PrintableHTML(title string, result domain.ReportResult) ([]byte, error) {
	var buf bytes.Buffer
	err := reportHTMLTmpl.Execute(&buf, struct {
		Title  string
		Result domain.ReportResult
	}{Title: title, Result: result})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Title names a report after its options, e.g. "Monthly report 2024-02".
func Title(opts domain.ReportOptions) string {
	kind := "Report"
	switch opts.Type {
	case domain.ReportDaily:
		kind = "Daily report"
	case domain.ReportWeekly:
		kind = "Weekly report"
	case domain.ReportMonthly:
		kind = "Monthly report"
	case domain.ReportYearly:
		kind = "Yearly report"
	}
	if opts.DateRange != nil {
		return fmt.Sprintf("%s %s to %s", kind, opts.DateRange.StartDate, opts.DateRange.EndDate)
	}
	if opts.Date != "" {
		return kind + " " + opts.Date
	}
	return kind
}
