package report

import (
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

type calendarNames struct {
	weekdays [7]string
	months   [12]string
}

var calendars = []calendarNames{
	{
		weekdays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	},
	{
		weekdays: [7]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"},
		months:   [12]string{"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو", "يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"},
	},
	{
		weekdays: [7]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"},
		months:   [12]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"},
	},
}

// Order matches calendars.
var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Arabic,
	language.Indonesian,
})

// namesFor picks the closest supported calendar for an Accept-Language style
// locale string, defaulting to English.
func namesFor(locale string) calendarNames {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return calendars[0]
	}
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(calendars) {
		return calendars[0]
	}
	return calendars[idx]
}

const unboundedMonthBuckets = 31

// newChart builds the empty buckets for a report type. Monthly charts get
// one bucket per day up to the day of month the window ends on. A range
// spanning several months therefore sizes the chart by its final month;
// sales on later days of earlier months still count in the summary but have
// no bucket and are left off the chart.
func newChart(reportType string, window Window, loc *time.Location, names calendarNames) []domain.ChartBucket {
	var labels []string
	switch reportType {
	case domain.ReportDaily:
		labels = make([]string, 24)
		for h := range labels {
			labels[h] = strconv.Itoa(h) + ":00"
		}
	case domain.ReportWeekly:
		labels = names.weekdays[:]
	case domain.ReportMonthly:
		days := unboundedMonthBuckets
		if window.Bounded {
			days = window.End.In(loc).Day()
		}
		labels = make([]string, days)
		for d := range labels {
			labels[d] = strconv.Itoa(d + 1)
		}
	case domain.ReportYearly:
		labels = names.months[:]
	}

	chart := make([]domain.ChartBucket, len(labels))
	for i, label := range labels {
		chart[i] = domain.ChartBucket{Name: label}
	}
	return chart
}

func bucketIndex(reportType string, t time.Time) int {
	switch reportType {
	case domain.ReportDaily:
		return t.Hour()
	case domain.ReportWeekly:
		return int(t.Weekday())
	case domain.ReportMonthly:
		return t.Day() - 1
	case domain.ReportYearly:
		return int(t.Month()) - 1
	}
	return -1
}
