// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/logger"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxNameLength          = 120
	MaxDescriptionLength   = 1024
	MaxSearchLength        = 100
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: o campo %s é obrigatório", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: o campo %s excede %d caracteres", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') não está no formato esperado (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// ValidateRequiredText runs the usual checks of a mandatory free-text field.
func ValidateRequiredText(s, fieldName string, maxLength int) error {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(s, maxLength, fieldName); err != nil {
		return err
	}
	return CheckXSSPatterns(s, fieldName)
}

// --- Phone ---

// ValidatePhone accepts 10 or 11 digit numbers, with or without the 55 country code,
// and returns the digits without the country code.
func ValidatePhone(s, fieldName string) (string, error) {
	if err := ValidateStringNotEmpty(s, fieldName); err != nil {
		return "", err
	}
	digits := format.Digits(s)
	if len(digits) >= 12 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		return "", fmt.Errorf("%w: %s deve ter 10 ou 11 dígitos", ErrValidationFailed, fieldName)
	}
	return digits, nil
}

// --- Amount ---

// ValidateAmount parses a positive monetary amount. Both "1950.50" and "1.950,50" are accepted.
func ValidateAmount(s, fieldName string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return decimal.Zero, err
	}
	if strings.Contains(trimmed, ",") {
		trimmed = strings.ReplaceAll(trimmed, ".", "")
		trimmed = strings.ReplaceAll(trimmed, ",", ".")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') não é um valor válido", ErrValidationFailed, fieldName, s)
	}
	if !d.IsPositive() {
		logger.L.Warn("Non-positive amount rejected", "field", fieldName, "value", s)
		return decimal.Zero, fmt.Errorf("%w: %s deve ser maior que zero", ErrValidationFailed, fieldName)
	}
	return d.Round(2), nil
}

// --- Date Validators ---

// ValidateDateString checks if a string is a valid date in "YYYY-MM-DD" format.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') não é uma data válida (AAAA-MM-DD)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}

// ValidateDateRange rejects a range whose end comes before its start. Zero bounds are open.
func ValidateDateRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: a data final deve ser posterior à data inicial", ErrValidationFailed)
	}
	return nil
}

// --- Identity ---

// ValidateDistinct fails when two references point to the same record.
func ValidateDistinct(a, b, message string) error {
	if strings.TrimSpace(a) != "" && strings.TrimSpace(a) == strings.TrimSpace(b) {
		return fmt.Errorf("%w: %s", ErrValidationFailed, message)
	}
	return nil
}

// Message strips the sentinel prefix so the text can be shown to the user.
func Message(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidationFailed.Error()+": ")
}
