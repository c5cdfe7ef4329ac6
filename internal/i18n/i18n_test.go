package i18n

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocale(t *testing.T) {
	tests := map[string]string{
		"":                        "en",
		"de-DE,de;q=0.9,en;q=0.8": "de",
		"fr-FR, de;q=0.5":         "de",
		"fr, es":                  "en",
		"  EN-us ":                "en",
		";q=0.1, de":              "de",
	}
	for header, want := range tests {
		assert.Equal(t, want, NormalizeLocale(header), header)
	}
}

func TestLocaleFromRequestAndContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "de-AT")
	assert.Equal(t, "de", LocaleFromRequest(r))
	assert.Equal(t, DefaultLocale, LocaleFromRequest(nil))

	assert.Equal(t, DefaultLocale, LocaleFromContext(t.Context()))
	ctx := WithLocale(t.Context(), "de-CH")
	assert.Equal(t, "de", LocaleFromContext(ctx))
}

func TestVerificationEmail(t *testing.T) {
	mail := VerificationEmail("en", "alice", "EstateHub", "12345", 24)

	assert.Equal(t, "Verify your email", mail.Subject)
	assert.Contains(t, mail.Text, "12345")
	assert.Contains(t, mail.Text, "24 hours")
	assert.Contains(t, mail.HTML, "Hello, alice!")
	assert.Contains(t, mail.HTML, "<strong>EstateHub</strong>")
	assert.Contains(t, mail.HTML, strconv.Itoa(time.Now().Year()))
	assert.NotContains(t, mail.HTML, "{")
}

func TestPasswordResetEmailLocalized(t *testing.T) {
	mail := PasswordResetCodeEmail("de", "Jörg", "EstateHub", "54321", 10)

	assert.Equal(t, "Passwort zurücksetzen", mail.Subject)
	assert.Contains(t, mail.Text, "54321")
	assert.Contains(t, mail.Text, "10 Minuten")

	fallback := PasswordResetCodeEmail("fr", "Jean", "EstateHub", "54321", 10)
	assert.Equal(t, "Reset your password", fallback.Subject)
}

func TestEmailEscapesHTMLValues(t *testing.T) {
	mail := VerificationEmail("en", "<script>x</script>", "A&B", "12345", 24)

	assert.NotContains(t, mail.HTML, "<script>")
	assert.Contains(t, mail.HTML, "&lt;script&gt;")
	assert.Contains(t, mail.HTML, "A&amp;B")
	assert.Contains(t, mail.Text, "<script>x</script>")
}
