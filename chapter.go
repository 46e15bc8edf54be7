package main

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	// Word characters include letters and digits of any script.
	unsafeTitleRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	titleRunRe    = regexp.MustCompile(`[-\s]+`)
	pdfFilenameRe = regexp.MustCompile(`[^\p{L}\p{N} ._-]`)
)

const maxPDFNameRunes = 100

// articleRecord is one cleaned article, ready for assembly.
type articleRecord struct {
	Title   string
	Content string // cleaned HTML
	URL     string
	Excerpt string
}

// safeTitle turns an article title into a filesystem-safe identifier:
// characters other than word, space and hyphen are dropped and runs of
// whitespace or hyphens become a single underscore.
func safeTitle(title string) string {
	s := strings.TrimSpace(unsafeTitleRe.ReplaceAllString(title, ""))
	return titleRunRe.ReplaceAllString(s, "_")
}

// chapterFilename names the n-th (1-based) chapter document.
func chapterFilename(n int, title string) string {
	if safe := safeTitle(title); safe != "" {
		return fmt.Sprintf("chapter_%d_%s.xhtml", n, safe)
	}
	return fmt.Sprintf("chapter_%d.xhtml", n)
}

// displayURL strips the scheme and trailing slash for link text.
func displayURL(raw string) string {
	d := raw
	for _, prefix := range []string{"https://", "http://"} {
		d = strings.TrimPrefix(d, prefix)
	}
	return strings.TrimSuffix(d, "/")
}

// formatSource builds the "source" line under a chapter heading. Returns
// "" when the record has no URL.
func formatSource(rec articleRecord) string {
	if rec.URL == "" {
		return ""
	}
	return fmt.Sprintf(`<p class="source"><a href="%s">%s</a></p>`,
		html.EscapeString(rec.URL), html.EscapeString(displayURL(rec.URL)))
}

// chapterBody is the document shell for one article: the title as <h1>,
// the source line and the cleaned content.
func chapterBody(rec articleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(rec.Title))
	if src := formatSource(rec); src != "" {
		b.WriteString(src)
		b.WriteByte('\n')
	}
	b.WriteString(rec.Content)
	return b.String()
}

// pdfFilename names the intermediate PDF for the n-th (1-based) URL from
// its decoded /wiki/ title, keeping letters, digits, space, dot,
// underscore and hyphen.
func pdfFilename(n int, decodedTitle string) string {
	name := strings.ReplaceAll(decodedTitle, "/", "_")
	name = strings.TrimRight(pdfFilenameRe.ReplaceAllString(name, ""), " ")
	if r := []rune(name); len(r) > maxPDFNameRunes {
		name = string(r[:maxPDFNameRunes])
	}
	if name == "" {
		name = fmt.Sprintf("article_%d", n)
	}
	return fmt.Sprintf("%03d_wiki_%s.pdf", n, name)
}

// renderFullHTML wraps one chapter in a complete standalone HTML document.
func renderFullHTML(rec articleRecord) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>%s</title>
	<style>
%s
	</style>
</head>
<body>
%s
</body>
</html>
`, html.EscapeString(rec.Title), bookCSS, chapterBody(rec))
}
