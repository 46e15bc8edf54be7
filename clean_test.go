package main

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

var articleBase, _ = url.Parse("https://en.wikipedia.org/wiki/Off-by-one_error")

func parseDoc(t *testing.T, page string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func cleanContent(t *testing.T, content string) string {
	t.Helper()
	return newContentCleaner(discardLogger()).clean(parseDoc(t, wikiPage("Test", content)), articleBase)
}

func TestClean_OffByOne(t *testing.T) {
	out := cleanContent(t, offByOneContent)
	require.NotEmpty(t, out)

	assert.Contains(t, out, "off-by-one error")
	assert.Contains(t, out, "Looping over arrays")
	assert.Contains(t, out, "Loops that run one time too many.")
	assert.Contains(t, out, `href="https://en.wikipedia.org/wiki/Fencepost_error"`)

	for _, gone := range []string{
		"Not to be confused",     // hatnote
		"additional citations",   // ambox
		"[1]",                    // reference marker
		"[2]",                    // bracketed list item
		"editors note",           // comment
		"<img",                   // images
		"[edit]",                 // edit section link
		"Zero-based numbering",   // See also section
		"Moore, Fencepost",       // References section
		"Software bugs",          // navbox
		"mw-navigation",          // outside the container
		"Creative Commons",       // footer
	} {
		assert.NotContains(t, out, gone)
	}
}

func TestClean_NoUnwantedSelectorMatches(t *testing.T) {
	out := cleanContent(t, offByOneContent)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Zero(t, doc.Find(unwantedSelector).Length())
	assert.Zero(t, doc.Find("img").Length())
}

func TestClean_Idempotent(t *testing.T) {
	first := cleanContent(t, offByOneContent)
	require.NotEmpty(t, first)

	second := newContentCleaner(discardLogger()).clean(parseDoc(t, first), articleBase)
	assert.Equal(t, first, second)
}

func TestClean_IdempotentWithImageOnlyItems(t *testing.T) {
	content := `<p>Gallery follows.</p><ul><li><img src="a.png"></li><li>Caption kept</li></ul>`
	first := cleanContent(t, content)
	second := newContentCleaner(discardLogger()).clean(parseDoc(t, first), articleBase)
	assert.Equal(t, first, second)
	assert.NotContains(t, first, "<li></li>")
	assert.Contains(t, first, "Caption kept")
}

func TestClean_MissingContainer(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>No wiki here</p></body></html>`)
	assert.Empty(t, newContentCleaner(discardLogger()).clean(doc, articleBase))
}

func TestClean_NothingLeft(t *testing.T) {
	assert.Empty(t, cleanContent(t, `<div class="navbox">nav</div><p>  </p>`))
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	doc := parseDoc(t, wikiPage("Test", offByOneContent))
	newContentCleaner(discardLogger()).clean(doc, articleBase)
	assert.Equal(t, 1, goquery.NewDocumentFromNode(doc).Find(".navbox").Length())
}

func TestClean_SectionRemoval(t *testing.T) {
	tests := []struct {
		name    string
		content string
		keep    []string
		drop    []string
	}{
		{
			name:    "bare headings",
			content: `<h2>History</h2><p>kept</p><h2>External links</h2><p>gone</p><h3>Sub</h3><p>gone too</p><h2>Legacy</h2><p>after</p>`,
			keep:    []string{"History", "kept", "Legacy", "after"},
			drop:    []string{"External links", "gone", "Sub"},
		},
		{
			name:    "case insensitive",
			content: `<p>intro</p><h2>FURTHER READING</h2><ul><li>book</li></ul>`,
			keep:    []string{"intro"},
			drop:    []string{"FURTHER", "book"},
		},
		{
			name:    "deeper heading only covers its subsection",
			content: `<h2>Causes</h2><p>a</p><h3>Notes</h3><p>note body</p><h3>Examples</h3><p>b</p>`,
			keep:    []string{"Causes", "Examples", ">b<"},
			drop:    []string{"Notes", "note body"},
		},
		{
			name:    "every occurrence",
			content: `<p>x</p><h2>Notes</h2><p>first</p><h2>Body</h2><p>y</p><h2>Notes</h2><p>second</p>`,
			keep:    []string{"Body"},
			drop:    []string{"Notes", "first", "second"},
		},
		{
			name:    "wrapped heading with edit link",
			content: `<p>x</p><div class="mw-heading mw-heading2"><h2 id="Sources">Sources</h2><span class="mw-editsection"><a>edit</a></span></div><p>src</p><div class="mw-heading mw-heading2"><h2>Legacy</h2></div><p>y</p>`,
			keep:    []string{"Legacy", ">y<"},
			drop:    []string{"Sources", "src"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := cleanContent(t, tt.content)
			for _, k := range tt.keep {
				assert.Contains(t, out, k)
			}
			for _, d := range tt.drop {
				assert.NotContains(t, out, d)
			}
		})
	}
}

func TestClean_CitationOnlyListItems(t *testing.T) {
	content := `<ol>
<li><cite class="citation web">Someone (2001).</cite></li>
<li><span class="cs1">x</span> <!-- c --> </li>
<li><sup>[3]</sup></li>
<li>Real item <sup class="reference">[4]</sup></li>
</ol>`
	out := cleanContent(t, content)
	assert.Equal(t, 1, strings.Count(out, "<li>"))
	assert.Contains(t, out, "Real item")
	assert.NotContains(t, out, "[4]")
}

func TestClean_KeepsNonCitationBrackets(t *testing.T) {
	out := cleanContent(t, `<p>Array a[i] has <sup>2</sup> dims and <sup>[note]</sup>.</p>`)
	assert.Contains(t, out, "a[i]")
	assert.Contains(t, out, "<sup>2</sup>")
	assert.NotContains(t, out, "[note]")
}

func TestClean_LeavesOtherLinks(t *testing.T) {
	out := cleanContent(t, `<p><a href="https://example.org/x">ext</a> <a href="#Causes">frag</a> <a href="/w/index.php?title=X">w</a></p>`)
	assert.Contains(t, out, `href="https://example.org/x"`)
	assert.Contains(t, out, `href="#Causes"`)
	assert.Contains(t, out, `href="/w/index.php?title=X"`)
}
