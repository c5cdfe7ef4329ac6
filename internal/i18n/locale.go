package i18n

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeKey struct{}

const DefaultLocale = "en"

// supported lists the locales emails are written in; the first is the
// fallback.
var (
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
)

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale picks the best supported base language for an
// Accept-Language value or a bare tag such as "de-CH".
func NormalizeLocale(header string) string {
	tags := acceptedTags(header)
	if len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// acceptedTags parses header by preference. A malformed entry only drops
// itself, keeping the order of the rest.
func acceptedTags(header string) []language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
		return tags
	}
	var tags []language.Tag
	for _, part := range strings.Split(header, ",") {
		if parsed, _, err := language.ParseAcceptLanguage(part); err == nil {
			tags = append(tags, parsed...)
		}
	}
	return tags
}

// WithLocale stores the request locale for code that composes emails deeper
// in the call stack.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, NormalizeLocale(locale))
}

func LocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}
