package report

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

// HeuristicMargin is the share of revenue assumed to be profit when no cost
// data is available.
const HeuristicMargin = 0.3

// LineProfit applies the per-line profit policy and reports which rule
// produced the value: a stored profit, selling minus purchase price, or the
// margin heuristic.
func LineProfit(item LineItem) (float64, string) {
	if item.Profit != nil {
		return *item.Profit, TierPrecomputed
	}
	if item.PurchasePrice != nil && item.HasPrice {
		return (item.Price - *item.PurchasePrice) * item.Quantity, TierCostBased
	}
	return item.Price * item.Quantity * HeuristicMargin, TierLineHeuristic
}

type Estimator struct {
	metrics *Metrics
}

func NewEstimator(metrics *Metrics) Estimator {
	return Estimator{metrics: metrics}
}

// EstimateProfit returns the best-effort profit of one invoice. It never
// fails: unreadable line items fall back to a share of the invoice total and
// a non-numeric outcome is reported as zero. label only tags log lines.
func (e Estimator) EstimateProfit(ctx context.Context, inv domain.Invoice, label string) float64 {
	items, err := ParseLineItems(inv.ProductsData)
	return e.estimate(ctx, inv, label, items, err)
}

func (e Estimator) estimate(ctx context.Context, inv domain.Invoice, label string, items []LineItem, parseErr error) float64 {
	switch {
	case errors.Is(parseErr, ErrNoLineItems):
		e.metrics.observeTier(TierInvoiceHeuristic)
		return finite(inv.Total * HeuristicMargin)
	case errors.Is(parseErr, ErrLineItemsNotArray):
		zerolog.Ctx(ctx).Warn().
			Int64("invoice_id", inv.ID).
			Str("label", label).
			Msg("line items are not an array, profit counted as zero")
		e.metrics.observeTier(TierNotArray)
		return 0
	case parseErr != nil:
		zerolog.Ctx(ctx).Warn().
			Err(parseErr).
			Int64("invoice_id", inv.ID).
			Str("label", label).
			Msg("unreadable line items, using invoice margin heuristic")
		e.metrics.observeTier(TierInvoiceHeuristic)
		return finite(inv.Total * HeuristicMargin)
	}

	var total float64
	for _, item := range items {
		profit, tier := LineProfit(item)
		e.metrics.observeTier(tier)
		total += profit
	}
	return finite(total)
}

// finite maps NaN and infinities to zero so totals stay summable and
// encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
