package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// FlatInterest calculates the interest charged on every settlement event
// Formula: Principal * (Rate / 100)
func FlatInterest(principal decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(ratePercent.Div(hundred))
}

// ExpectedReturn calculates principal plus one round of flat interest
// Formula: Principal * (1 + Rate / 100)
func ExpectedReturn(principal decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Add(FlatInterest(principal, ratePercent))
}

// RoundMoney rounds to 2 decimal places for display
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// DateOnly drops the clock part of t, keeping its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOnOrBefore compares calendar dates, ignoring time of day
func IsOnOrBefore(a, b time.Time) bool {
	return !DateOnly(a).After(DateOnly(b))
}

// FormatDate renders a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}

// OnlyDigits strips every non-digit rune from s
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeTaxID returns the digits-only CPF and whether its check digits are valid
func NormalizeTaxID(raw string) (string, bool) {
	digits := OnlyDigits(raw)
	if len(digits) != 11 {
		return "", false
	}

	// 000.000.000-00, 111.111.111-11, ... pass the checksum but are not issued
	allSame := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return "", false
	}

	if checkDigit(digits[:9], 10) != digits[9] || checkDigit(digits[:10], 11) != digits[10] {
		return "", false
	}

	return digits, true
}

func checkDigit(base string, weight int) byte {
	sum := 0
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * (weight - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		rest = 0
	}
	return byte('0' + rest)
}

// NormalizeMobile returns the 11-digit mobile number (area code + 9 + 8 digits)
// and whether it is well formed. A leading country code 55 is accepted and dropped.
func NormalizeMobile(raw string) (string, bool) {
	digits := OnlyDigits(raw)
	if len(digits) == 13 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) != 11 {
		return "", false
	}

	// area codes run 11..99 with no zero digit
	if digits[0] == '0' || digits[1] == '0' {
		return "", false
	}
	if digits[2] != '9' {
		return "", false
	}

	return digits, true
}
