// Package sanitize cleans free text submitted through public forms before it
// is stored or forwarded to a CRM.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	entityReplacer  = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"", "&#39;", "'")
)

// MaxTextLength bounds any single stored free-text value, in runes.
const MaxTextLength = 2000

// Text strips markup, collapses whitespace and truncates to MaxTextLength.
func Text(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	// entities may have hidden tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	result = strings.TrimSpace(whitespaceRegex.ReplaceAllString(result, " "))
	if utf8.RuneCountInString(result) > MaxTextLength {
		result = string([]rune(result)[:MaxTextLength])
	}
	return result
}

// TextPtr applies Text to an optional value; blank results become nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	if result == "" {
		return nil
	}
	return &result
}
