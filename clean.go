// Wikipedia content cleaning: strips reference/navigation/metadata markup
// from an article's main content container so only reader-facing prose,
// lists and tables remain.
package main

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
)

var errEmptyContent = errors.New("no content left after cleaning")

// contentSelector locates the article body in MediaWiki output.
const contentSelector = "div.mw-parser-output"

// unwantedSections are dropped together with everything up to the next
// heading of the same or a shallower level. Matched case-insensitively.
var unwantedSections = []string{
	"References", "Bibliography", "External links", "See also",
	"Further reading", "Sources", "Notes", "Footnotes",
	"External sources", "Works cited", "Citations",
}

// unwantedSelectors is MediaWiki chrome and citation markup. Infoboxes are
// kept on purpose.
var unwantedSelectors = []string{
	".navbox",
	".ambox",
	".hatnote",
	".sistersitebox",
	".metadata",
	".printfooter",
	".catlinks",
	".mw-editsection",
	".reference",
	".mw-cite-backlink",
	"sup.reference",
	".portal",
	".navframe",
	".collapsible",
	".stub",
	".reflist",
	".refbegin",
	".references",
	"cite.citation",
	".cs1",
	".citation",
}

var unwantedSelector = strings.Join(unwantedSelectors, ", ")

// contentCleaner runs the cleaning pipeline over fetched articles.
type contentCleaner struct {
	log *log.Logger
}

func newContentCleaner(logger *log.Logger) *contentCleaner {
	return &contentCleaner{log: logger}
}

// findContentContainer returns the first MediaWiki content div, or nil.
func findContentContainer(doc *html.Node) *html.Node {
	sel := goquery.NewDocumentFromNode(doc).Find(contentSelector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// clean returns the cleaned content container as HTML, or "" when the
// container is missing or nothing readable is left. doc is not modified.
// base supplies the scheme and host for absolutized /wiki/ links.
func (c *contentCleaner) clean(doc *html.Node, base *url.URL) string {
	container := findContentContainer(doc)
	if container == nil {
		c.log.Warn("could not find main content area")
		return ""
	}

	// Work on a re-parsed copy so the caller's tree stays intact and a
	// second pass over our own output sees exactly the same structure.
	var buf bytes.Buffer
	if err := html.Render(&buf, container); err != nil {
		c.log.Warn("rendering content area failed", "err", err)
		return ""
	}
	copied, err := html.Parse(&buf)
	if err != nil {
		c.log.Warn("re-parsing content area failed", "err", err)
		return ""
	}
	rootNode := findContentContainer(copied)
	if rootNode == nil {
		return ""
	}
	root := wrapNode(rootNode)

	removeUnwantedSections(root)
	goquery.NewDocumentFromNode(rootNode).Find(unwantedSelector).Remove()
	removeCitationListItems(root)
	stripComments(root)
	removeAll(root, isBracketedMarker)
	removeAll(root, func(n docNode) bool { return isTag(n, "p") && isBlank(n) })
	removeAll(root, func(n docNode) bool { return isTag(n, "img") })
	// Items holding only images or emptied paragraphs are empty now.
	removeCitationListItems(root)
	absolutizeWikiLinks(root, base)

	if isBlank(root) {
		return ""
	}

	buf.Reset()
	if err := html.Render(&buf, rootNode); err != nil {
		c.log.Warn("rendering cleaned content failed", "err", err)
		return ""
	}
	return buf.String()
}

// removeUnwantedSections removes every unwanted section, one at a time,
// until none is left.
func removeUnwantedSections(root docNode) {
	for {
		heading := findUnwantedHeading(root)
		if heading == nil {
			return
		}
		removeSection(heading)
	}
}

func findUnwantedHeading(root docNode) docNode {
	var found docNode
	walkNodes(root, func(n docNode) {
		if found != nil {
			return
		}
		if lvl := headingLevel(n); lvl < 2 {
			return
		}
		if isUnwantedSectionName(headingText(n)) {
			found = n
		}
	})
	return found
}

func isUnwantedSectionName(name string) bool {
	for _, s := range unwantedSections {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// removeSection detaches heading and each following sibling element until
// the next heading of equal or shallower level. A heading wrapped in
// div.mw-heading is handled at the wrapper level.
func removeSection(heading docNode) {
	level := headingLevel(heading)
	start := heading
	if p := heading.Parent(); p != nil && sectionLevel(p) == level && hasClass(p, "mw-heading") {
		start = p
	}

	doomed := []docNode{start}
	for sib := start.NextElement(); sib != nil; sib = sib.NextElement() {
		if lvl := sectionLevel(sib); lvl > 0 && lvl <= level {
			break
		}
		doomed = append(doomed, sib)
	}
	for _, n := range doomed {
		n.Detach()
	}
}

// removeCitationListItems drops <li> elements with nothing but citation
// markup, whitespace and comments inside. Empty items go too.
func removeCitationListItems(root docNode) {
	removeAll(root, func(n docNode) bool {
		return isTag(n, "li") && onlyCitations(n)
	})
}

func onlyCitations(li docNode) bool {
	for _, c := range li.Children() {
		switch c.Kind() {
		case elementNode:
			if !isCitationMarkup(c) {
				return false
			}
		case textNode:
			if strings.TrimSpace(c.Text()) != "" {
				return false
			}
		}
	}
	return true
}

func stripComments(root docNode) {
	removeAll(root, func(n docNode) bool { return n.Kind() == commentNode })
}

// removeAll detaches every descendant of root matching pred. root itself
// is never removed.
func removeAll(root docNode, pred func(docNode) bool) {
	for _, n := range findAll(root, pred) {
		if n == root {
			continue
		}
		n.Detach()
	}
}

// absolutizeWikiLinks rewrites /wiki/... hrefs against base's origin.
func absolutizeWikiLinks(root docNode, base *url.URL) {
	if base == nil || base.Host == "" {
		return
	}
	origin := base.Scheme + "://" + base.Host
	for _, a := range findAll(root, func(n docNode) bool { return isTag(n, "a") }) {
		href, ok := a.Attr("href")
		if ok && strings.HasPrefix(href, "/wiki/") {
			a.SetAttr("href", origin+href)
		}
	}
}
