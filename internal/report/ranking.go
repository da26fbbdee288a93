package report

import (
	"sort"
	"strconv"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

const topProductLimit = 5

// rankProducts tallies sold lines against the catalogue and returns the
// best sellers by revenue. Lines whose productId is not in the catalogue
// are ignored; ties keep catalogue order. A catalogue entry without a name
// takes the name recorded on its first sold line.
func rankProducts(catalogue []domain.Product, invoices []parsedInvoice) []domain.TopProduct {
	tallies := make([]domain.TopProduct, 0, len(catalogue))
	index := make(map[string]int, len(catalogue))
	for _, p := range catalogue {
		key := strconv.FormatInt(p.ID, 10)
		if i, ok := index[key]; ok {
			tallies[i].Name = p.Name
			continue
		}
		index[key] = len(tallies)
		tallies = append(tallies, domain.TopProduct{ID: p.ID, Name: p.Name})
	}

	for _, inv := range invoices {
		for _, item := range inv.items {
			i, ok := index[item.ProductID]
			if !ok || item.ProductID == "" {
				continue
			}
			if tallies[i].Name == "" {
				tallies[i].Name = item.ProductName
			}
			profit, _ := LineProfit(item)
			tallies[i].SoldQuantity += item.Quantity
			tallies[i].Revenue += finite(item.Price * item.Quantity)
			tallies[i].Profit += finite(profit)
		}
	}

	sold := make([]domain.TopProduct, 0, len(tallies))
	for _, t := range tallies {
		if t.SoldQuantity != 0 {
			sold = append(sold, t)
		}
	}
	sort.SliceStable(sold, func(i, j int) bool {
		return sold[i].Revenue > sold[j].Revenue
	})
	if len(sold) > topProductLimit {
		sold = sold[:topProductLimit]
	}
	return sold
}
