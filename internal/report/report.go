package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

// Source is the read side of the record store a report is computed from.
type Source interface {
	GetAllInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	GetAllDamagedItems(ctx context.Context) ([]domain.DamagedItem, error)
	GetAllExpenses(ctx context.Context) ([]domain.Expense, error)
}

type Generator struct {
	source    Source
	estimator Estimator
	metrics   *Metrics
	location  *time.Location
	locale    string
	now       func() time.Time
}

type Option func(*Generator)

func WithMetrics(m *Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
		g.estimator = NewEstimator(m)
	}
}

// WithLocation sets the time zone used for windows and buckets when the
// options do not carry one.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

func WithLocale(locale string) Option {
	return func(g *Generator) { g.locale = locale }
}

func NewGenerator(source Source, opts ...Option) *Generator {
	g := &Generator{
		source:   source,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type parsedInvoice struct {
	domain.Invoice
	items  []LineItem
	profit float64
}

type records struct {
	invoices []domain.Invoice
	products []domain.Product
	damages  []domain.DamagedItem
	expenses []domain.Expense
}

// Generate computes the summary, chart, best sellers and ledger for the
// selected period. Any storage failure fails the whole report.
func (g *Generator) Generate(ctx context.Context, opts domain.ReportOptions) (domain.ReportResult, error) {
	started := g.now()
	loc := opts.Location
	if loc == nil {
		loc = g.location
	}
	locale := opts.Locale
	if locale == "" {
		locale = g.locale
	}

	window, err := ResolveWindow(opts, loc)
	if err != nil {
		return domain.ReportResult{}, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("report_type", opts.Type).
		Str("report_date", opts.Date).
		Logger()
	ctx = logger.WithContext(ctx)

	recs, err := g.fetch(ctx, opts)
	if err != nil {
		g.metrics.observeFailure(opts.Type)
		logger.Error().Err(err).Msg("report fetch failed")
		return domain.ReportResult{}, err
	}

	label := opts.Type + " report"
	if opts.Date != "" {
		label += " " + opts.Date
	}

	sales := make([]parsedInvoice, 0, len(recs.invoices))
	for _, inv := range recs.invoices {
		if inv.IsDeleted || inv.Date.IsZero() || !window.Contains(inv.Date) {
			continue
		}
		items, parseErr := ParseLineItems(inv.ProductsData)
		sales = append(sales, parsedInvoice{
			Invoice: inv,
			items:   items,
			profit:  g.estimator.estimate(ctx, inv, label, items, parseErr),
		})
	}

	damages := make([]domain.DamagedItem, 0, len(recs.damages))
	for _, d := range recs.damages {
		if !d.Date.IsZero() && window.Contains(d.Date) {
			damages = append(damages, d)
		}
	}
	expenses := make([]domain.Expense, 0, len(recs.expenses))
	for _, e := range recs.expenses {
		if !e.Date.IsZero() && window.Contains(e.Date) {
			expenses = append(expenses, e)
		}
	}

	result := domain.ReportResult{
		Summary:         summarize(sales, damages),
		ChartData:       newChart(opts.Type, window, loc, namesFor(locale)),
		TopProducts:     []domain.TopProduct{},
		DetailedReports: []domain.LedgerEntry{},
	}

	for _, sale := range sales {
		idx := bucketIndex(opts.Type, sale.Date.In(loc))
		if idx < 0 || idx >= len(result.ChartData) {
			continue
		}
		result.ChartData[idx].Revenue += sale.Total
		result.ChartData[idx].Profit += sale.profit
	}

	if opts.TopProducts() {
		result.TopProducts = rankProducts(recs.products, sales)
	}
	if opts.DetailedReports() {
		result.DetailedReports = buildLedger(sales, damages, expenses)
	}

	elapsed := g.now().Sub(started)
	g.metrics.observeDuration(opts.Type, elapsed.Seconds())
	logger.Debug().
		Int("sales", len(sales)).
		Int("damages", len(damages)).
		Int("expenses", len(expenses)).
		Dur("elapsed", elapsed).
		Msg("report generated")
	return result, nil
}

func summarize(sales []parsedInvoice, damages []domain.DamagedItem) domain.ReportSummary {
	var summary domain.ReportSummary
	for _, sale := range sales {
		summary.TotalSales += sale.Total
		summary.TotalProfit += sale.profit
		summary.SalesCount++
	}
	for _, d := range damages {
		summary.TotalDamages += d.ValueLoss
	}
	return summary
}

// fetch loads the collections the options ask for concurrently. Expenses
// only feed the ledger, so they are skipped when the ledger is off.
func (g *Generator) fetch(ctx context.Context, opts domain.ReportOptions) (records, error) {
	var recs records
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		invoices, err := g.source.GetAllInvoices(gctx)
		if err != nil {
			return fmt.Errorf("fetch invoices: %w", err)
		}
		recs.invoices = invoices
		return nil
	})
	if opts.TopProducts() {
		group.Go(func() error {
			products, err := g.source.GetAllProducts(gctx)
			if err != nil {
				return fmt.Errorf("fetch products: %w", err)
			}
			recs.products = products
			return nil
		})
	}
	if opts.DamagedItems() {
		group.Go(func() error {
			damages, err := g.source.GetAllDamagedItems(gctx)
			if err != nil {
				return fmt.Errorf("fetch damaged items: %w", err)
			}
			recs.damages = damages
			return nil
		})
	}
	if opts.Expenses() && opts.DetailedReports() {
		group.Go(func() error {
			expenses, err := g.source.GetAllExpenses(gctx)
			if err != nil {
				return fmt.Errorf("fetch expenses: %w", err)
			}
			recs.expenses = expenses
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return records{}, err
	}
	return recs, nil
}
