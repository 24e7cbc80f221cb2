// Package core holds the budget domain: reference periods, bimestres,
// account rules, report filters and monetary parsing.
//
// This file contains parsing of amounts as they appear in spreadsheet
// extracts, where both "1.234,56" and "1234.56" are common.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseValor converts a spreadsheet amount into a decimal.
//
// When both separators are present the last one is the decimal separator.
// A lone comma is always decimal. Empty input is zero.
//
// Examples:
//
//	ParseValor("1.234,56") -> 1234.56
//	ParseValor("1234.56")  -> 1234.56
//	ParseValor("-12,3")    -> -12.3
func ParseValor(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// dots as thousands separators only
		s = strings.ReplaceAll(s, ".", "")
	}
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || (i == 0 && (r == '-' || r == '+')) {
			continue
		}
		if r == 'e' || r == 'E' {
			continue
		}
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// SaldoContabil returns the signed balance of an account: debit minus
// credit for class 5 accounts, credit minus debit for class 6, zero otherwise.
func SaldoContabil(conta string, debito, credito decimal.Decimal) decimal.Decimal {
	conta = strings.TrimSpace(conta)
	switch {
	case strings.HasPrefix(conta, "5"):
		return debito.Sub(credito)
	case strings.HasPrefix(conta, "6"):
		return credito.Sub(debito)
	}
	return decimal.Zero
}
