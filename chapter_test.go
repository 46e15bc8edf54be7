package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeTitle(t *testing.T) {
	tests := map[string]string{
		"Off-by-one error":           "Off_by_one_error",
		"C++ (programming language)": "C_programming_language",
		"  Straße  ":                 "Straße",
		"A -- B":                     "A_B",
		"???":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeTitle(in), "safeTitle(%q)", in)
	}
}

func TestChapterFilename(t *testing.T) {
	assert.Equal(t, "chapter_1_Off_by_one_error.xhtml", chapterFilename(1, "Off-by-one error"))
	assert.Equal(t, "chapter_12_Go.xhtml", chapterFilename(12, "Go"))
	assert.Equal(t, "chapter_3.xhtml", chapterFilename(3, "!!!"))
}

func TestPDFFilename(t *testing.T) {
	assert.Equal(t, "001_wiki_Off-by-one error.pdf", pdfFilename(1, "Off-by-one error"))
	assert.Equal(t, "002_wiki_AC_DC.pdf", pdfFilename(2, "AC/DC"))
	assert.Equal(t, "010_wiki_Straße.pdf", pdfFilename(10, "Straße"))
	assert.Equal(t, "004_wiki_article_4.pdf", pdfFilename(4, "???"))

	long := pdfFilename(5, strings.Repeat("x", 300))
	assert.Equal(t, "005_wiki_"+strings.Repeat("x", maxPDFNameRunes)+".pdf", long)
}

func TestFormatSource(t *testing.T) {
	rec := articleRecord{URL: "https://en.wikipedia.org/wiki/Off-by-one_error"}
	assert.Equal(t,
		`<p class="source"><a href="https://en.wikipedia.org/wiki/Off-by-one_error">en.wikipedia.org/wiki/Off-by-one_error</a></p>`,
		formatSource(rec))
	assert.Empty(t, formatSource(articleRecord{}))
}

func TestChapterBody(t *testing.T) {
	body := chapterBody(articleRecord{
		Title:   "Tom & Jerry",
		Content: "<p>cat</p>",
		URL:     "https://en.wikipedia.org/wiki/Tom_and_Jerry",
	})
	assert.True(t, strings.HasPrefix(body, "<h1>Tom &amp; Jerry</h1>\n"))
	assert.Contains(t, body, `class="source"`)
	assert.True(t, strings.HasSuffix(body, "<p>cat</p>"))
}

func TestRenderFullHTML(t *testing.T) {
	page := renderFullHTML(articleRecord{Title: "Go", Content: "<p>gopher</p>"})
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Go</title>")
	assert.Contains(t, page, `<meta charset="utf-8">`)
	assert.Contains(t, page, "<h1>Go</h1>")
	assert.Contains(t, page, "<p>gopher</p>")
	assert.Contains(t, page, ".source")
	assert.NotContains(t, page, `class="source"`)
}
