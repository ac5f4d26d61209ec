package telegram

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the Bot API ceiling for a single message.
	MaxMessageLength = 4096

	// SafeMessageLength is the working limit used when splitting, leaving
	// headroom under MaxMessageLength.
	SafeMessageLength = 4000
)

const sectionSeparator = "\n\n"

// Split breaks text into parts of at most limit runes, cutting only at
// blank-line section boundaries. Sections are packed greedily in order. A
// section that alone exceeds limit is hard-truncated to limit and sent as its
// own part; the remainder of that section is dropped.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = SafeMessageLength
	}
	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var parts []string
	var current string
	flush := func() {
		if part := strings.TrimSpace(current); part != "" {
			parts = append(parts, part)
		}
		current = ""
	}

	for _, section := range strings.Split(text, sectionSeparator) {
		if utf8.RuneCountInString(section) > limit {
			flush()
			current = truncate(section, limit)
			flush()
			continue
		}

		candidate := section
		if current != "" {
			candidate = current + sectionSeparator + section
		}
		if utf8.RuneCountInString(candidate) <= limit {
			current = candidate
			continue
		}
		flush()
		current = section
	}
	flush()

	return parts
}

// truncate cuts s to at most limit runes. A trailing unpaired escape
// backslash is dropped so the part stays valid MarkdownV2.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	runes = runes[:limit]

	trailing := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
