package main

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	readability "codeberg.org/readeck/go-readability"
)

// maxExcerptRunes bounds the excerpt shown on the contents page.
const maxExcerptRunes = 280

// articleExcerpt runs readability over the raw page and returns a short
// plain-text excerpt, or "" when extraction fails.
func articleExcerpt(page []byte, pageURL *url.URL, logger *log.Logger) string {
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		logger.Debug("no excerpt", "url", pageURL, "err", err)
		return ""
	}
	return truncateRunes(strings.Join(strings.Fields(article.Excerpt), " "), maxExcerptRunes)
}

// truncateRunes shortens s to at most n runes, ending with an ellipsis
// when something was cut.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
