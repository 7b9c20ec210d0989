package service

import (
	"net/url"
	"strings"
)

// URLBuilder produces absolute URLs rooted at the site base URL.
type URLBuilder struct {
	base string
}

// NewURLBuilder returns a URLBuilder for baseURL, e.g. "https://blog.example.com".
func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// URLFor joins path segments, escaping each one.
func (b *URLBuilder) URLFor(segments ...string) string {
	return b.base + pathFor(segments...)
}

// PostURL returns the canonical URL of a post.
func (b *URLBuilder) PostURL(slug string) string {
	return b.base + PostPath(slug)
}

// PostPath returns the site-relative path of a post, e.g. "/posts/view/what%3F-now".
func PostPath(slug string) string {
	return pathFor("posts", "view", slug)
}

func pathFor(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, EscapeSegment(segment))
	}
	return "/" + strings.Join(escaped, "/")
}

// EscapeSegment percent-encodes a single path segment. Besides url.PathEscape
// it also encodes '+', because the router decodes raw path values with
// query rules whenever the path carries an escaped '/'.
func EscapeSegment(segment string) string {
	return strings.ReplaceAll(url.PathEscape(segment), "+", "%2B")
}
