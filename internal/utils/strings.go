// Package utils holds small helpers shared by the journal packages.
package utils

import (
	"strings"
	"unicode"
)

// ParseFilterList reads a query filter such as the event stream's
// ?types=buy_recorded,SELL_RECORDED. Items are separated by commas or
// whitespace, upper-cased and deduplicated in first-seen order.
// Returns nil when no item is left.
func ParseFilterList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	var items []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		item := strings.ToUpper(f)
		if seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return items
}
