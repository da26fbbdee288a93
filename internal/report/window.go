package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

var ErrInvalidOptions = errors.New("invalid report options")

// Window is an inclusive time interval. An unbounded window admits every
// instant.
type Window struct {
	Start   time.Time
	End     time.Time
	Bounded bool
}

func (w Window) Contains(t time.Time) bool {
	if !w.Bounded {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

func ValidType(reportType string) bool {
	switch reportType {
	case domain.ReportDaily, domain.ReportWeekly, domain.ReportMonthly, domain.ReportYearly:
		return true
	}
	return false
}

// ResolveWindow turns the period selection into a window in loc. A date
// range takes precedence over the date; weekly reports use the same
// single-day window as daily ones.
func ResolveWindow(opts domain.ReportOptions, loc *time.Location) (Window, error) {
	if !ValidType(opts.Type) {
		return Window{}, fmt.Errorf("%w: unknown report type %q", ErrInvalidOptions, opts.Type)
	}
	if loc == nil {
		loc = time.UTC
	}

	if opts.DateRange != nil {
		start, err := parseDay(opts.DateRange.StartDate, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: start date: %v", ErrInvalidOptions, err)
		}
		end, err := parseDay(opts.DateRange.EndDate, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: end date: %v", ErrInvalidOptions, err)
		}
		if end.Before(start) {
			return Window{}, fmt.Errorf("%w: end date before start date", ErrInvalidOptions)
		}
		return Window{Start: start, End: endOfDay(end), Bounded: true}, nil
	}

	date := strings.TrimSpace(opts.Date)
	if date == "" {
		return Window{}, nil
	}

	switch opts.Type {
	case domain.ReportDaily, domain.ReportWeekly:
		day, err := parseDay(date, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		return Window{Start: day, End: endOfDay(day), Bounded: true}, nil
	case domain.ReportMonthly:
		first, err := parseMonth(date, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		last := first.AddDate(0, 1, -1)
		return Window{Start: first, End: endOfDay(last), Bounded: true}, nil
	default:
		first, err := parseYear(date, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		last := first.AddDate(1, 0, -1)
		return Window{Start: first, End: endOfDay(last), Bounded: true}, nil
	}
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), loc)
}

// parseMonth accepts YYYY-MM and also a full date, of which only the month
// is used.
func parseMonth(value string, loc *time.Location) (time.Time, error) {
	if len(value) > len("2006-01") {
		day, err := parseDay(value, loc)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation("2006-01", value, loc)
}

func parseYear(value string, loc *time.Location) (time.Time, error) {
	if len(value) > len("2006") {
		month, err := parseMonth(value, loc)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(month.Year(), time.January, 1, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation("2006", value, loc)
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}
