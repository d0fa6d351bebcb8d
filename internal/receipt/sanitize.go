// Package receipt turns receipt photos into candidate line items.
//
// The gateway output is untrusted: Sanitize is the only thing standing between
// it and a bill draft.
package receipt

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/mmynk/splitbill/internal/models"
)

const (
	MaxNameLength = 100
	MaxPrice      = 999999999
	MaxQuantity   = 9999
)

var codeFence = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

// Sanitize parses the gateway's JSON array and keeps only well-formed items.
// A candidate is kept when name is a non-blank string, price is a number in
// (0, MaxPrice] and quantity is a whole number in (0, MaxQuantity]. Names are
// trimmed and cut to MaxNameLength runes. Anything unparsable yields no items.
func Sanitize(raw string) []models.ReceiptItem {
	raw = strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	if !gjson.Valid(raw) {
		return []models.ReceiptItem{}
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return []models.ReceiptItem{}
	}

	items := []models.ReceiptItem{}
	parsed.ForEach(func(_, candidate gjson.Result) bool {
		if item, ok := sanitizeItem(candidate); ok {
			items = append(items, item)
		}
		return true
	})
	return items
}

func sanitizeItem(candidate gjson.Result) (models.ReceiptItem, bool) {
	if !candidate.IsObject() {
		return models.ReceiptItem{}, false
	}

	name := candidate.Get("name")
	if name.Type != gjson.String {
		return models.ReceiptItem{}, false
	}
	trimmed := strings.TrimSpace(name.String())
	if trimmed == "" {
		return models.ReceiptItem{}, false
	}

	price := candidate.Get("price")
	if price.Type != gjson.Number || price.Float() <= 0 || price.Float() > MaxPrice {
		return models.ReceiptItem{}, false
	}

	quantity := candidate.Get("quantity")
	if quantity.Type != gjson.Number {
		return models.ReceiptItem{}, false
	}
	q := quantity.Float()
	if q != math.Trunc(q) || q <= 0 || q > MaxQuantity {
		return models.ReceiptItem{}, false
	}

	return models.ReceiptItem{
		Name:     truncate(trimmed, MaxNameLength),
		Price:    price.Float(),
		Quantity: int(q),
	}, true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
