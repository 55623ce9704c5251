// Package format holds the pt-BR presentation helpers: currency, document and
// phone masks, dates and search folding.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/username/backoffice/backend/src/models"
)

// Missing is rendered for values that cannot be formatted.
const Missing = "-"

// Currency renders a raw amount as Brazilian reais ("R$ 1.950,50").
// Accepted inputs: numeric strings, Go numbers, decimal.Decimal and models.Amount.
// Anything else renders as Missing.
func Currency(raw any) string {
	d, ok := toDecimal(raw)
	if !ok {
		return Missing
	}
	return formatDecimal(d)
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case models.Amount:
		return v.Value, v.Valid
	case *models.Amount:
		if v == nil {
			return decimal.Zero, false
		}
		return v.Value, v.Valid
	case decimal.Decimal:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		return toDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	default:
		return decimal.Zero, false
	}
}

func formatDecimal(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + "R$ " + groupThousands(intPart) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// CPF masks 11 digits as 000.000.000-00. Other input is returned unchanged.
func CPF(s string) string {
	d := Digits(s)
	if len(d) != 11 {
		return s
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[0:3], d[3:6], d[6:9], d[9:11])
}

// CNPJ masks 14 digits as 00.000.000/0000-00. Other input is returned unchanged.
func CNPJ(s string) string {
	d := Digits(s)
	if len(d) != 14 {
		return s
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14])
}

// Document picks the CPF or CNPJ mask by digit count.
func Document(s string) string {
	switch len(Digits(s)) {
	case 11:
		return CPF(s)
	case 14:
		return CNPJ(s)
	default:
		return s
	}
}

// Phone masks landlines (10 digits) and mobiles (11 digits). A leading 55
// country code is dropped.
func Phone(s string) string {
	d := Digits(s)
	if len(d) == 13 && strings.HasPrefix(d, "55") {
		d = d[2:]
	}
	switch len(d) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:6], d[6:10])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:7], d[7:11])
	default:
		return s
	}
}

// Date renders dd/MM/yyyy, or Missing for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return Missing
	}
	return t.Format("02/01/2006")
}

// BankCode zero-pads a bank code to three digits.
func BankCode(code *int) string {
	if code == nil {
		return Missing
	}
	return fmt.Sprintf("%03d", *code)
}

// BankCodeString is BankCode for codes that arrive as text.
func BankCodeString(code string) string {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return Missing
	}
	return BankCode(&n)
}

// Fold lowercases and strips diacritics so "São João" matches "sao joao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(strings.Join(strings.Fields(result), " "))
}

// Contains reports whether haystack contains needle after folding both.
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Fold(haystack), n)
}
