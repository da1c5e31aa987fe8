// Package services – display date formatting for the verification page.
//
// The verification page shows one human-readable date. The operator-supplied
// authentication date wins when it parses; otherwise the record's creation
// timestamp is used; when neither is usable the date is simply omitted from
// display, never treated as an error.
package services

import (
	"time"

	"golang.org/x/text/language"
)

// displayDateLayout renders e.g. "Wednesday, February 21, 2024".
// The day of month is deliberately not zero-padded.
const displayDateLayout = "Monday, January 2, 2006"

// authDateLayout is the ISO date format the submission form produces.
const authDateLayout = "2006-01-02"

// legacyCreatedAtLayouts are tried in order when a creation timestamp arrives
// as raw text (rows written by pre-Go deployments stored created_at as TEXT).
var legacyCreatedAtLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// supportedLocales lists the locales the verification page can render.
// English is the only one today; the matcher still gives request handling a
// defined fallback instead of ad-hoc header parsing.
var supportedLocales = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
})

// NegotiateLocale resolves the display locale for a verification page from an
// Accept-Language header value, falling back to American English.
func NegotiateLocale(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.AmericanEnglish
	}
	tag, _, _ := supportedLocales.Match(tags...)
	return tag
}

// FormatDisplayDate resolves the date shown on a verification page.
//
// Fallback chain: parse authDate as YYYY-MM-DD; on failure (or when empty)
// fall back to createdAt; when that is also unusable return empty strings and
// the caller omits the field. The second return value is the ISO 8601 form
// for machine-readable markup.
func FormatDisplayDate(authDate string, createdAt time.Time) (display, iso string) {
	if authDate != "" {
		if t, err := time.Parse(authDateLayout, authDate); err == nil {
			return t.Format(displayDateLayout), t.Format(time.RFC3339)
		}
	}
	if !createdAt.IsZero() {
		return createdAt.Format(displayDateLayout), createdAt.Format(time.RFC3339)
	}
	return "", ""
}

// ParseLegacyCreatedAt parses a creation timestamp stored as text by older
// deployments, attempting each known layout in sequence. The boolean reports
// whether any layout matched.
func ParseLegacyCreatedAt(s string) (time.Time, bool) {
	for _, layout := range legacyCreatedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
