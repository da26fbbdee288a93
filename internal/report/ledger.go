package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

// buildLedger merges sales, damages and expenses into one list, newest first.
// Entries sharing a timestamp keep the order sales, damages, expenses.
func buildLedger(invoices []parsedInvoice, damages []domain.DamagedItem, expenses []domain.Expense) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, 0, len(invoices)+len(damages)+len(expenses))
	for _, inv := range invoices {
		profit := inv.profit
		entries = append(entries, domain.LedgerEntry{
			ID:            inv.ID,
			Type:          domain.EntrySale,
			Date:          inv.Date,
			Amount:        inv.Total,
			Profit:        &profit,
			Details:       saleDetails(inv),
			CustomerName:  inv.CustomerName,
			PaymentMethod: inv.PaymentMethod,
			PaymentStatus: inv.PaymentStatus,
		})
	}
	for _, d := range damages {
		details := d.Description
		if details == "" {
			details = fmt.Sprintf("Product #%d x%d damaged", d.ProductID, d.Quantity)
		}
		entries = append(entries, domain.LedgerEntry{
			ID:      d.ID,
			Type:    domain.EntryDamage,
			Date:    d.Date,
			Amount:  d.ValueLoss,
			Details: details,
		})
	}
	for _, e := range expenses {
		details := e.Details
		if details == "" {
			details = e.ExpenseType
		}
		entries = append(entries, domain.LedgerEntry{
			ID:          e.ID,
			Type:        domain.EntryExpense,
			Date:        e.Date,
			Amount:      e.Amount,
			Details:     details,
			ExpenseType: e.ExpenseType,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

func saleDetails(inv parsedInvoice) string {
	parts := []string{fmt.Sprintf("Invoice #%d", inv.ID)}
	if n := len(inv.items); n > 0 {
		parts = append(parts, fmt.Sprintf("%d items", n))
	}
	if inv.CustomerName != "" {
		parts = append(parts, inv.CustomerName)
	}
	if inv.PaymentMethod != "" {
		parts = append(parts, inv.PaymentMethod)
	}
	return strings.Join(parts, " - ")
}
