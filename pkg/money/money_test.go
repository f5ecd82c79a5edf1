package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "R$0,00"},
		{1234.56, "R$1.234,56"},
		{1000000, "R$1.000.000,00"},
		{-500.5, "-R$500,50"},
		{0.004, "R$0,00"},
		{0.005, "R$0,01"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBRL(tt.amount))
		})
	}
}

func TestFormatBRLDecimal(t *testing.T) {
	assert.Equal(t, "R$1.234,56", FormatBRLDecimal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$0,00", FormatBRLDecimal(decimal.Zero))
}
