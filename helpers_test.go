package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// testConfig returns a configuration that can talk to httptest servers:
// loopback is allowed and accepted as a wiki host, and there is no delay.
func testConfig() *Config {
	cfg := defaultConfig()
	cfg.AllowPrivateNetworks = true
	cfg.AllowedHosts = append(cfg.AllowedHosts, "127.0.0.1")
	cfg.Delay = 0
	cfg.PDFDelay = 0
	return cfg
}

// wikiPage wraps content in the skeleton of a MediaWiki article page.
func wikiPage(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><title>%s - Wikipedia</title></head>
<body>
<div id="mw-navigation"><a href="/wiki/Main_Page">Main page</a></div>
<div id="content">
<h1 id="firstHeading" class="firstHeading mw-first-heading"><span class="mw-page-title-main">%s</span></h1>
<div id="bodyContent">
<div id="mw-content-text" class="mw-body-content"><div class="mw-content-ltr mw-parser-output" lang="en" dir="ltr">
%s
</div></div>
</div>
</div>
<div id="footer"><p>Text is available under the Creative Commons Attribution-ShareAlike License.</p></div>
</body>
</html>`, title, title, content)
}

// offByOneContent is a trimmed rendition of a real article body, with the
// clutter the cleaner is expected to remove.
const offByOneContent = `<div class="hatnote navigation-not-searchable">Not to be confused with <a href="/wiki/Fencepost">Fencepost</a>.</div>
<table class="box-More_citations_needed plainlinks metadata ambox ambox-content"><tr><td>This article needs additional citations.</td></tr></table>
<p>An <b>off-by-one error</b> or <b>off-by-one bug</b> is a logic error that involves a number that differs from its intended value by 1.<sup id="cite_ref-1" class="reference"><a href="#cite_note-1">[1]</a></sup></p>
<p><!-- editors note --></p>
<figure><img src="//upload.wikimedia.org/fencepost.png" alt="Fence"></figure>
<div class="mw-heading mw-heading2"><h2 id="Looping_over_arrays">Looping over arrays</h2><span class="mw-editsection">[<a href="/w/index.php?action=edit">edit</a>]</span></div>
<p>Consider an array of items, and items <i>m</i> through <i>n</i> are to be processed. See <a href="/wiki/Fencepost_error">fencepost error</a>.</p>
<ul><li>Loops that run one time too many.</li><li><sup>[2]</sup></li></ul>
<div class="mw-heading mw-heading2"><h2 id="See_also">See also</h2></div>
<ul><li><a href="/wiki/Zero-based_numbering">Zero-based numbering</a></li></ul>
<div class="mw-heading mw-heading2"><h2 id="References">References</h2></div>
<div class="reflist"><ol class="references"><li id="cite_note-1"><cite class="citation book cs1">Moore, Fencepost.</cite></li></ol></div>
<div class="navbox"><a href="/wiki/Software_bugs">Software bugs</a></div>`

// newWikiServer serves the given article bodies under /wiki/<title>.
// Unknown paths, robots.txt included, answer 404.
func newWikiServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title, ok := strings.CutPrefix(r.URL.Path, "/wiki/")
		content, found := pages[title]
		if !ok || !found {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, wikiPage(strings.ReplaceAll(title, "_", " "), content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// makePDFBytes lays out a small document with gofpdf.
func makePDFBytes(t *testing.T, text string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, text, "", "L", false)
	var buf strings.Builder
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return []byte(buf.String())
}

// makePDFFile writes a gofpdf document into dir and returns its path.
func makePDFFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, makePDFBytes(t, text)); err != nil {
		t.Fatal(err)
	}
	return path
}
