package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportQuery reads report options from the query string. type and date are
// passed through untouched; the report package validates them.
func reportQuery(r *http.Request) (domain.ReportOptions, bool, error) {
	q := r.URL.Query()
	opts := domain.ReportOptions{
		Type:   q.Get("type"),
		Date:   q.Get("date"),
		Locale: strings.TrimSpace(q.Get("lang")),
	}
	if opts.Locale == "" {
		opts.Locale = r.Header.Get("Accept-Language")
	}

	start, end := strings.TrimSpace(q.Get("start_date")), strings.TrimSpace(q.Get("end_date"))
	if start != "" || end != "" {
		opts.DateRange = &domain.DateRange{StartDate: start, EndDate: end}
	}

	toggles := []struct {
		param string
		dest  **bool
	}{
		{"include_detailed", &opts.IncludeDetailedReports},
		{"include_top_products", &opts.IncludeTopProducts},
		{"include_damaged_items", &opts.IncludeDamagedItems},
		{"include_expenses", &opts.IncludeExpenses},
	}
	for _, t := range toggles {
		v, err := parseBoolParam(r, t.param)
		if err != nil {
			return domain.ReportOptions{}, false, err
		}
		*t.dest = v
	}

	compare, err := parseBoolParam(r, "compare")
	if err != nil {
		return domain.ReportOptions{}, false, err
	}
	return opts, compare != nil && *compare, nil
}

func parseBoolParam(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &v, nil
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	opts, compare, err := reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.Report(r.Context(), opts, compare)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleReportExport(w http.ResponseWriter, r *http.Request) {
	opts, compare, err := reportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" && format != "html" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported export format %q", format))
		return
	}

	result, err := a.service.Report(r.Context(), opts, compare)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	title := export.Title(opts)
	var (
		body        []byte
		contentType string
	)
	switch format {
	case "csv":
		body, err = export.CSV(title, result)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		body, err = export.XLSX(title, result)
		contentType = xlsxContentType
	case "html":
		body, err = export.PrintableHTML(title, result)
		contentType = "text/html; charset=utf-8"
	}
	if err != nil {
		a.fail(w, r, fmt.Errorf("render %s export: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	if format != "html" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(opts, format)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func exportFilename(opts domain.ReportOptions, format string) string {
	name := "report-" + opts.Type
	switch {
	case opts.DateRange != nil:
		name += "-" + opts.DateRange.StartDate + "_" + opts.DateRange.EndDate
	case opts.Date != "":
		name += "-" + opts.Date
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '-'
		}
		return r
	}, name) + "." + format
}
