package journal

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateBuy(t *testing.T) {
	v := NewValidator()

	err := v.ValidateBuy(BuyInput{Symbol: "ACME", BuyDate: date("2024-01-10"), Quantity: 1, BuyPrice: 1})
	assert.NoError(t, err)

	err = v.ValidateBuy(BuyInput{Quantity: -5, BuyPrice: math.NaN()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	byField := make(map[string]FieldError)
	for _, f := range vErr.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, "required", byField["symbol"].Tag)
	assert.Equal(t, "required", byField["buy_date"].Tag)
	assert.Equal(t, "gt", byField["quantity"].Tag)
	assert.Equal(t, "quantity must be greater than 0", byField["quantity"].Message)
	assert.Contains(t, byField, "buy_price")
	assert.Len(t, vErr.Fields, 4, "fields are reported once")
	assert.Contains(t, err.Error(), "symbol is required")
}

func TestValidator_ValidateSell(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateSell(SellInput{BuyID: "b1", SellDate: date("2024-01-10"), Quantity: 1, SellPrice: 1}))

	err := v.ValidateSell(SellInput{BuyID: "b1", SellDate: date("2024-01-10"), Quantity: math.Inf(1), SellPrice: 1})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "quantity", vErr.Fields[0].Field)
	assert.Equal(t, "finite", vErr.Fields[0].Tag)
}

func TestValidator_ValidateNote(t *testing.T) {
	v := NewValidator()

	field, ok := reflect.TypeOf(BuyInput{}).FieldByName("Note")
	require.True(t, ok)
	assert.Equal(t, noteRule, field.Tag.Get("validate"))

	assert.NoError(t, v.ValidateNote(nil))
	assert.NoError(t, v.ValidateNote(strPtr(strings.Repeat("é", 2000))), "limit counts characters, not bytes")

	err := v.ValidateNote(strPtr(strings.Repeat("é", 2001)))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "note", vErr.Fields[0].Field)
	assert.Equal(t, "max", vErr.Fields[0].Tag)
	assert.Equal(t, "note must be at most 2000 characters", vErr.Fields[0].Message)
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	in := BuyInput{
		Symbol:  " net ",
		BuyDate: time.Date(2024, 1, 10, 3, 0, 0, 0, loc),
		Note:    strPtr("  "),
	}.Normalize()

	assert.Equal(t, "NET", in.Symbol)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), in.BuyDate)
	assert.Nil(t, in.Note)

	sell := SellInput{BuyID: " b1 ", SellDate: time.Date(2024, 2, 1, 23, 59, 0, 0, time.UTC)}.Normalize()
	assert.Equal(t, "b1", sell.BuyID)
	assert.Equal(t, date("2024-02-01"), sell.SellDate)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-01-10 ")
	require.NoError(t, err)
	assert.Equal(t, date("2024-01-10"), got)

	_, err = ParseDate("10/01/2024")
	assert.ErrorIs(t, err, ErrValidation)
}
