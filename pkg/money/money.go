// Package money formats fiscal amounts for display. All figures in this
// system are Brazilian Reais; values are stored as plain decimals and
// only formatted at the presentation edge.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// centsFactor converts a two-decimal amount to minor units.
var centsFactor = decimal.New(1, 2)

// FormatBRL renders an amount as a pt-BR currency string, e.g.
// "R$1.234,56". Amounts are rounded to centavos.
func FormatBRL(amount float64) string {
	cents := decimal.NewFromFloat(amount).Mul(centsFactor).Round(0).IntPart()
	return money.New(cents, money.BRL).Display()
}

// FormatBRLDecimal is FormatBRL for exact decimal amounts.
func FormatBRLDecimal(amount decimal.Decimal) string {
	cents := amount.Mul(centsFactor).Round(0).IntPart()
	return money.New(cents, money.BRL).Display()
}
