// backend/src/security/validation/sanitizers.go
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Política estrita: remove todas as tags HTML.
var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText cleans free text typed in the forms before it is forwarded to the
// remote backends: tags are removed, control characters dropped and the result trimmed.
func SanitizeText(s string) string {
	return strings.TrimSpace(stripUnprintable(strictHTMLPolicy.Sanitize(s)))
}

// SanitizeSearchTerm is SanitizeText capped at MaxSearchLength runes.
func SanitizeSearchTerm(s string) string {
	s = SanitizeText(s)
	if utf8.RuneCountInString(s) <= MaxSearchLength {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:MaxSearchLength]))
}

// SanitizeCell neutralises spreadsheet formulas in exported text cells by
// prefixing a single quote when the value starts with a trigger character.
func SanitizeCell(s string) string {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func stripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' {
			return r
		}
		if r == '\t' || r == '\r' {
			return ' '
		}
		return -1
	}, s)
}
