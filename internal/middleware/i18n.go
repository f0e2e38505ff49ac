package middleware

import (
	"context"
	"net/http"
	"strings"

	"dreamboard/internal/i18n"
	"dreamboard/internal/infra/geoip"
)

const localeKey contextKey = "locale"

// I18N resolves the visitor's locale, in order: explicit X-Locale header,
// locale cookie, Accept-Language, GeoIP country of the client IP, then the
// configured default. The resolved locale is always one of the supported
// catalogs.
func I18N(defaultLocale string, resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	fallback := i18n.Match(defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolveLocale(r, resolver, fallback)
			ctx := context.WithValue(r.Context(), localeKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the locale resolved by the I18N middleware,
// defaulting to English when the middleware did not run.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok && v != "" {
		return v
	}
	return "en"
}

func resolveLocale(r *http.Request, resolver geoip.CountryResolver, fallback string) string {
	if hdr := strings.TrimSpace(r.Header.Get("X-Locale")); hdr != "" {
		return i18n.Match(hdr)
	}
	if c, err := r.Cookie("locale"); err == nil && c.Value != "" {
		return i18n.Match(c.Value)
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tag := primaryLanguage(accept); tag != "" {
			return i18n.Match(tag)
		}
	}
	if resolver != nil {
		if code, err := resolver.CountryCode(ClientIP(r)); err == nil && strings.EqualFold(code, "ID") {
			return "id"
		}
	}
	return fallback
}

// primaryLanguage extracts the first tag of an Accept-Language header,
// dropping any quality weight.
func primaryLanguage(accept string) string {
	first := strings.Split(accept, ",")[0]
	first = strings.TrimSpace(strings.Split(first, ";")[0])
	return first
}

// ClientIP returns the originating client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	return clientIPForRateLimit(r)
}
