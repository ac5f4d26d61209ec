// Package telegram formats and delivers messages to a Telegram chat using the
// Bot API and the MarkdownV2 parse mode.
package telegram

import (
	"fmt"
	"regexp"
	"strings"
)

// reservedChars must be prefixed with a backslash outside of entities in
// MarkdownV2 text.
const reservedChars = "_*[]()~`>#+-=|{}.!"

var (
	boldSpan = regexp.MustCompile(`\*([^*\n]+)\*`)
	linkSpan = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Escape prefixes every reserved MarkdownV2 character in text with a backslash.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(reservedChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Format escapes text for MarkdownV2 while keeping *bold* spans and
// [label](url) links intact. Bold inner text and link labels are escaped;
// link URLs are passed through untouched. Malformed markup is escaped as
// plain text.
//
// Format is not idempotent: formatting its own output escapes the same
// characters a second time.
func Format(text string) string {
	var protected []string
	protect := func(replacement string) string {
		ph := placeholder(len(protected))
		protected = append(protected, replacement)
		return ph
	}

	text = boldSpan.ReplaceAllStringFunc(text, func(m string) string {
		inner := boldSpan.FindStringSubmatch(m)[1]
		return protect("*" + Escape(inner) + "*")
	})
	text = linkSpan.ReplaceAllStringFunc(text, func(m string) string {
		sub := linkSpan.FindStringSubmatch(m)
		return protect("[" + Escape(sub[1]) + "](" + sub[2] + ")")
	})

	text = Escape(text)

	// Later spans may wrap earlier placeholders, so restore newest first.
	for i := len(protected) - 1; i >= 0; i-- {
		text = strings.Replace(text, placeholder(i), protected[i], 1)
	}
	return text
}

// placeholder tokens are NUL-delimited so neither the escape pass nor
// ordinary message text can produce them.
func placeholder(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}
