package validation

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(11) 98765-4321", "11987654321", false},
		{"+55 11 98765-4321", "11987654321", false},
		{"1133334444", "1133334444", false},
		{"12345", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidatePhone(tt.in, "telefone")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAmount(t *testing.T) {
	d, err := ValidateAmount("R$ 1.950,50", "valor")
	require.NoError(t, err)
	assert.Equal(t, "1950.5", d.String())

	d, err = ValidateAmount("10.255", "valor")
	require.NoError(t, err)
	assert.Equal(t, "10.26", d.StringFixed(2))

	_, err = ValidateAmount("0", "valor")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = ValidateAmount("abc", "valor")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateDateRange(t *testing.T) {
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateDateRange(jan1, jan31))
	assert.NoError(t, ValidateDateRange(time.Time{}, jan31))
	assert.ErrorIs(t, ValidateDateRange(jan31, jan1), ErrValidationFailed)
}

func TestValidateDistinct(t *testing.T) {
	assert.NoError(t, ValidateDistinct("1", "2", "x"))
	assert.NoError(t, ValidateDistinct("", "", "x"))
	err := ValidateDistinct("3", " 3", "aprovador e solicitante devem ser diferentes")
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "aprovador e solicitante devem ser diferentes", Message(err))
}

func TestValidateRequiredText(t *testing.T) {
	assert.NoError(t, ValidateRequiredText("Pagamento fotógrafo", "descrição", MaxDescriptionLength))
	assert.ErrorIs(t, ValidateRequiredText("  ", "descrição", 10), ErrValidationFailed)
	assert.ErrorIs(t, ValidateRequiredText("abcdefghijk", "descrição", 10), ErrValidationFailed)
	assert.ErrorIs(t, ValidateRequiredText("<script>alert(1)</script>", "descrição", 100), ErrValidationFailed)
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "alert", SanitizeText(" <b>alert</b> "))
	assert.Equal(t, "ab", SanitizeText("a\x07b"))
	assert.Equal(t, "'=SUM(A1)", SanitizeCell("=SUM(A1)"))
	assert.Equal(t, "' -1", SanitizeCell(" -1"))
	assert.Equal(t, "texto", SanitizeCell("texto"))

	long := strings.Repeat("á", MaxSearchLength+20)
	assert.Equal(t, MaxSearchLength, utf8.RuneCountInString(SanitizeSearchTerm(long)))
}

func TestCheckXSSPatterns(t *testing.T) {
	assert.NoError(t, CheckXSSPatterns("Pagamento de R$ 100 <= limite", "descrição"))
	for _, s := range []string{"<script>x</script>", "<img src=x onerror=alert(1)>", "javascript:alert(1)", "< iframe src=x>"} {
		assert.ErrorIs(t, CheckXSSPatterns(s, "descrição"), ErrValidationFailed, s)
	}
}
