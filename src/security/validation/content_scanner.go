// backend/src/security/validation/content_scanner.go
package validation

import (
	"fmt"
	"regexp"

	"github.com/username/backoffice/backend/src/logger"
)

type contentRule struct {
	name    string
	pattern *regexp.Regexp
}

// Campos de texto livre seguem para o CRM e para as mensagens de WhatsApp.
var contentRules = []contentRule{
	{"script", regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed|applet|style|link)\b`)},
	{"event-handler", regexp.MustCompile(`(?i)\bon(error|load|mouseover|focus|click)\s*=`)},
	{"scheme", regexp.MustCompile(`(?i)(javascript|vbscript|data:text/html)\s*:`)},
}

func preview(s string, maxLen int) string {
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen]) + "..."
	}
	return s
}

// CheckXSSPatterns rejects text carrying markup or script vectors.
func CheckXSSPatterns(s, fieldName string) error {
	for _, rule := range contentRules {
		if rule.pattern.MatchString(s) {
			logger.L.Warn("Rejected field content", "field", fieldName, "rule", rule.name, "contentPreview", preview(s, 50))
			return fmt.Errorf("%w: conteúdo não permitido no campo %s", ErrValidationFailed, fieldName)
		}
	}
	return nil
}
