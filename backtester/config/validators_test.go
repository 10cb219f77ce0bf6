package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateSymbol(t *testing.T) {
	t.Parallel()
	for symbol, want := range map[string]error{
		"AAPL":   nil,
		"f":      nil,
		"":       ErrInvalidSymbol,
		"GOOGLE": ErrInvalidSymbol,
		"BRK.B":  ErrInvalidSymbol,
		"A1":     ErrInvalidSymbol,
		"ÄPPL":   ErrInvalidSymbol,
	} {
		assert.ErrorIs(t, ValidateSymbol(symbol), want, symbol)
	}
	assert.NoError(t, ValidateSymbols([]string{"AAPL", "MSFT"}))
	assert.ErrorIs(t, ValidateSymbols(nil), ErrInvalidSymbol)
	assert.ErrorIs(t, ValidateSymbols([]string{"AAPL", "aapl"}), ErrInvalidSymbol)
}

func TestValidateDates(t *testing.T) {
	t.Parallel()
	start := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateDates(start, start.AddDate(0, 6, 0)))
	assert.ErrorIs(t, ValidateDates(start, start), ErrInvalidDates)
	assert.ErrorIs(t, ValidateDates(start.AddDate(0, 1, 0), start), ErrInvalidDates)
	assert.ErrorIs(t, ValidateDates(time.Time{}, start), ErrInvalidDates)
	assert.ErrorIs(t, ValidateDates(start, time.Now().AddDate(1, 0, 0)), ErrInvalidDates)
}

func TestValidateAmounts(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCapital(decimal.NewFromInt(1000)))
	assert.ErrorIs(t, ValidateCapital(decimal.NewFromInt(999)), ErrInvalidCapital)
	assert.ErrorIs(t, ValidateCapital(decimal.NewFromInt(-5000)), ErrInvalidCapital)

	assert.NoError(t, ValidateQuantity(1))
	assert.ErrorIs(t, ValidateQuantity(0), ErrInvalidQuantity)

	assert.NoError(t, ValidatePrice(decimal.NewFromFloat(0.01)))
	assert.ErrorIs(t, ValidatePrice(decimal.Zero), ErrInvalidPrice)

	one := decimal.NewFromInt(1)
	assert.NoError(t, ValidatePercentage(decimal.Zero, decimal.Zero, one))
	assert.NoError(t, ValidatePercentage(one, decimal.Zero, one))
	assert.ErrorIs(t, ValidatePercentage(decimal.NewFromFloat(1.01), decimal.Zero, one), ErrInvalidPercentage)
	assert.ErrorIs(t, ValidatePercentage(decimal.NewFromFloat(-0.01), decimal.Zero, one), ErrInvalidPercentage)
}
