package service

import (
	"context"
	"fmt"
	"time"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
)

// Report builds the report for opts. With compare set, the summary also
// carries the totals of the period right before the selected one.
func (s *Service) Report(ctx context.Context, opts domain.ReportOptions, compare bool) (domain.ReportResult, error) {
	if opts.Location == nil {
		opts.Location = s.location
	}
	result, err := s.reports.Generate(ctx, opts)
	if err != nil {
		return domain.ReportResult{}, err
	}
	if !compare {
		return result, nil
	}

	prevOpts, ok, err := PreviousPeriod(opts)
	if err != nil {
		return domain.ReportResult{}, err
	}
	if !ok {
		return result, nil
	}

	prev, err := s.reports.Generate(ctx, prevOpts)
	if err != nil {
		return domain.ReportResult{}, fmt.Errorf("previous period: %w", err)
	}
	result.Summary.PreviousTotalSales = prev.Summary.TotalSales
	result.Summary.PreviousTotalProfit = prev.Summary.TotalProfit
	result.Summary.PreviousTotalDamages = prev.Summary.TotalDamages
	result.Summary.PreviousSalesCount = prev.Summary.SalesCount
	return result, nil
}

// PreviousPeriod returns summary-only options for the period preceding
// opts: the previous day, month or year, or for a date range the same
// number of days ending the day before it starts. ok is false when opts
// select no period.
func PreviousPeriod(opts domain.ReportOptions) (domain.ReportOptions, bool, error) {
	window, err := report.ResolveWindow(opts, opts.Location)
	if err != nil {
		return domain.ReportOptions{}, false, err
	}
	if !window.Bounded {
		return domain.ReportOptions{}, false, nil
	}

	disabled := false
	prev := domain.ReportOptions{
		Type:                   opts.Type,
		IncludeDetailedReports: &disabled,
		IncludeTopProducts:     &disabled,
		IncludeExpenses:        &disabled,
		IncludeDamagedItems:    opts.IncludeDamagedItems,
		Locale:                 opts.Locale,
		Location:               opts.Location,
	}

	start := window.Start
	if opts.DateRange != nil {
		days := calendarDays(window.Start, window.End)
		prevEnd := start.AddDate(0, 0, -1)
		prevStart := start.AddDate(0, 0, -days)
		prev.DateRange = &domain.DateRange{
			StartDate: prevStart.Format(time.DateOnly),
			EndDate:   prevEnd.Format(time.DateOnly),
		}
		return prev, true, nil
	}

	switch opts.Type {
	case domain.ReportMonthly:
		prev.Date = start.AddDate(0, -1, 0).Format("2006-01")
	case domain.ReportYearly:
		prev.Date = start.AddDate(-1, 0, 0).Format("2006")
	default:
		prev.Date = start.AddDate(0, 0, -1).Format(time.DateOnly)
	}
	return prev, true, nil
}

// calendarDays counts the days from start to end inclusive. Both are read
// as wall-clock dates so 23 and 25 hour days count once.
func calendarDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.In(start.Location()).Date()
	first := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	last := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(last.Sub(first).Hours()/24) + 1
}
