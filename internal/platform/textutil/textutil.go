// Package textutil provides text measuring and cleanup helpers for Mastodon posts.
//
// The package handles:
//   - Mastodon length calculation (every URL counts as a fixed number of characters)
//   - HTML tag stripping for account bios
//   - Quoting multi-line posts for log output
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPostLength is the Mastodon status length cap.
	MaxPostLength = 500

	// URLLength is what Mastodon counts for any URL, regardless of its real length.
	URLLength = 23
)

var (
	urlRegex = regexp.MustCompile(`^https?://\S+$`)
	tagRegex = regexp.MustCompile(`<(/?)([a-zA-Z0-9-]+)([^>]*)>`)
)

// IsURL reports whether a single token is counted as a URL.
func IsURL(token string) bool {
	return urlRegex.MatchString(token)
}

// MastodonLength measures text the way Mastodon does: tokens are separated by whitespace,
// URL tokens count URLLength, all other tokens count their characters and every
// whitespace character counts one.
func MastodonLength(text string) int {
	length := 0
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}

		if token := text[start:end]; IsURL(token) {
			length += URLLength
		} else {
			length += utf8.RuneCountInString(token)
		}

		start = -1
	}

	for i, r := range text {
		if unicode.IsSpace(r) {
			flush(i)

			length++

			continue
		}

		if start < 0 {
			start = i
		}
	}

	flush(len(text))

	return length
}

// FitsPost reports whether the given lines, joined with newlines, fit within one post.
func FitsPost(lines []string) bool {
	return MastodonLength(strings.Join(lines, "\n")) <= MaxPostLength
}

// StripHTMLTags removes all HTML tags from text, keeping only the content.
func StripHTMLTags(text string) string {
	result := tagRegex.ReplaceAllString(text, " ")
	result = html.UnescapeString(result)

	return strings.TrimSpace(result)
}

// Quote prefixes every line with "  > " for log output.
func Quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "  > " + line
	}

	return strings.Join(lines, "\n")
}
