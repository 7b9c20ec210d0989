package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Slugify lowercases and trims title, then replaces each space with a hyphen.
// "this is a title" => "this-is-a-title"
func Slugify(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(title)), " ", "-")
}

// TitleCase upper-cases the first character of every whitespace-delimited word
// and leaves the rest of the string untouched.
func TitleCase(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	atWordStart := true
	for len(title) > 0 {
		r, size := utf8.DecodeRuneInString(title)
		title = title[size:]

		if unicode.IsSpace(r) {
			atWordStart = true
			b.WriteRune(r)
			continue
		}
		if atWordStart {
			r = unicode.ToUpper(r)
			atWordStart = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
