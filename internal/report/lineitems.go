package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoLineItems        = errors.New("invoice has no line items")
	ErrMalformedLineItems = errors.New("line items are not valid JSON")
	ErrLineItemsNotArray  = errors.New("line items are not a JSON array")
)

// LineItem is the canonical form of one entry of an invoice's productsData.
// Aliases are resolved here: sellingPrice wins over price and productName
// wins over name.
type LineItem struct {
	ProductID     string
	ProductName   string
	Quantity      float64
	Price         float64
	HasPrice      bool
	PurchasePrice *float64
	Profit        *float64
}

// ParseLineItems decodes the stored productsData of an invoice.
//
// The returned error distinguishes the three ways a payload can fail:
// ErrNoLineItems for an empty payload, ErrMalformedLineItems when the text is
// not JSON (or an entry is null), and ErrLineItemsNotArray for valid JSON of
// the wrong shape.
func ParseLineItems(raw string) ([]LineItem, error) {
	if raw == "" {
		return nil, ErrNoLineItems
	}
	payload := []byte(raw)
	if !json.Valid(payload) {
		return nil, ErrMalformedLineItems
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrLineItemsNotArray
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, ErrMalformedLineItems
	}

	items := make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if bytes.Equal(entry, []byte("null")) {
			return nil, ErrMalformedLineItems
		}
		fields := map[string]json.RawMessage{}
		if len(entry) > 0 && entry[0] == '{' {
			if err := json.Unmarshal(entry, &fields); err != nil {
				return nil, ErrMalformedLineItems
			}
		}
		items = append(items, lineItemFromFields(fields))
	}
	return items, nil
}

func lineItemFromFields(fields map[string]json.RawMessage) LineItem {
	item := LineItem{
		ProductID:   productKey(fields["productId"]),
		ProductName: firstString(fields["productName"], fields["name"]),
		Quantity:    coerce(fields["quantity"], 1),
	}

	selling, hasSelling := nonNull(fields["sellingPrice"])
	price, hasPrice := nonNull(fields["price"])
	item.HasPrice = hasSelling || hasPrice
	item.Price = coerce(selling, 0)
	if item.Price == 0 {
		item.Price = coerce(price, 0)
	}

	if raw, ok := nonNull(fields["purchasePrice"]); ok {
		purchase := coerce(raw, 0)
		item.PurchasePrice = &purchase
	}
	if raw, ok := nonNull(fields["profit"]); ok {
		profit := toNumber(raw)
		item.Profit = &profit
	}
	return item
}

func nonNull(raw json.RawMessage) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// coerce converts a JSON value to a number and substitutes fallback for
// zero, NaN and missing values.
func coerce(raw json.RawMessage, fallback float64) float64 {
	v := toNumber(raw)
	if v == 0 || math.IsNaN(v) {
		return fallback
	}
	return v
}

// toNumber applies loose numeric conversion: numbers as-is, numeric strings
// parsed, booleans as 0/1, null and blank strings as 0, anything else NaN.
func toNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return math.NaN()
	}
	switch raw[0] {
	case 'n':
		return 0
	case 't':
		return 1
	case 'f':
		return 0
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return math.NaN()
		}
		return parseNumericString(s)
	case '[', '{':
		return math.NaN()
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseNumericString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(s, "_") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// productKey renders a productId so that 7 and "7" land on the same key.
func productKey(raw json.RawMessage) string {
	raw, ok := nonNull(raw)
	if !ok {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstString(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		raw, ok := nonNull(raw)
		if !ok || raw[0] != '"' {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
