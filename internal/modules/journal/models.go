// Package journal implements the trade journal: buys, the sells recorded
// against them, and the read models derived from both.
package journal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of buy and sell dates
const DateLayout = "2006-01-02"

// quantityEpsilon absorbs float rounding when deciding whether a buy is fully sold
const quantityEpsilon = 1e-9

// Buy is an acquisition of a security position
type Buy struct {
	ID        string     `json:"id" msgpack:"id"`
	Symbol    string     `json:"symbol" msgpack:"symbol"`
	BuyDate   time.Time  `json:"buy_date" msgpack:"buy_date"`
	Quantity  float64    `json:"quantity" msgpack:"quantity"`
	BuyPrice  float64    `json:"buy_price" msgpack:"buy_price"`
	Note      *string    `json:"note,omitempty" msgpack:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

// Sell is a disposal recorded against exactly one Buy
type Sell struct {
	ID        string     `json:"id" msgpack:"id"`
	BuyID     string     `json:"buy_id" msgpack:"buy_id"`
	SellDate  time.Time  `json:"sell_date" msgpack:"sell_date"`
	Quantity  float64    `json:"quantity" msgpack:"quantity"`
	SellPrice float64    `json:"sell_price" msgpack:"sell_price"`
	CreatedAt time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

// AvailableLot is a buy that still has quantity left to sell
type AvailableLot struct {
	BuyID             string    `json:"buy_id"`
	Symbol            string    `json:"symbol"`
	BuyDate           time.Time `json:"buy_date"`
	BuyPrice          float64   `json:"buy_price"`
	Quantity          float64   `json:"quantity"`
	AvailableQuantity float64   `json:"available_quantity"`
}

// BuyInput carries the caller-supplied fields of a new buy
type BuyInput struct {
	Symbol   string    `json:"symbol" validate:"required,max=32"`
	BuyDate  time.Time `json:"buy_date" validate:"required"`
	Quantity float64   `json:"quantity" validate:"gt=0"`
	BuyPrice float64   `json:"buy_price" validate:"gt=0"`
	Note     *string   `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// SellInput carries the caller-supplied fields of a new sell
type SellInput struct {
	BuyID     string    `json:"buy_id" validate:"required"`
	SellDate  time.Time `json:"sell_date" validate:"required"`
	Quantity  float64   `json:"quantity" validate:"gt=0"`
	SellPrice float64   `json:"sell_price" validate:"gt=0"`
}

// Normalize trims and upper-cases the symbol and truncates the date to a calendar day
func (in BuyInput) Normalize() BuyInput {
	in.Symbol = NormalizeSymbol(in.Symbol)
	in.BuyDate = CalendarDate(in.BuyDate)
	if in.Note != nil {
		note := strings.TrimSpace(*in.Note)
		if note == "" {
			in.Note = nil
		} else {
			in.Note = &note
		}
	}
	return in
}

// Normalize trims the buy id and truncates the date to a calendar day
func (in SellInput) Normalize() SellInput {
	in.BuyID = strings.TrimSpace(in.BuyID)
	in.SellDate = CalendarDate(in.SellDate)
	return in
}

// NormalizeSymbol trims whitespace and upper-cases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CalendarDate returns midnight UTC of the calendar day t falls on in its own location
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
