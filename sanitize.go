// HTML to XHTML sanitization for EPUB 3 chapters.
// Cleaned article markup is still HTML5 as served by MediaWiki; chapters
// must be well-formed XHTML with an EPUB-compatible content model.
package main

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// stripInvalidXMLChars removes characters not allowed in XML 1.0 content.
// Valid XML chars: #x9 | #xA | #xD | [#x20-#xD7FF] | [#xE000-#xFFFD] | [#x10000-#x10FFFF]
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0x9 || r == 0xA || r == 0xD ||
			(r >= 0x20 && r <= 0xD7FF) ||
			(r >= 0xE000 && r <= 0xFFFD) ||
			(r >= 0x10000 && r <= 0x10FFFF) {
			return r
		}
		return -1
	}, s)
}

// sanitizeDimensionAttr cleans width/height values to plain integers.
func sanitizeDimensionAttr(val string) string {
	val = strings.TrimSpace(val)
	for _, suffix := range []string{"px", "em", "rem", "%", "pt"} {
		val = strings.TrimSuffix(val, suffix)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return ""
	}
	return strconv.Itoa(int(math.Round(f)))
}

// sanitizeID makes an id attribute value valid in XHTML (no whitespace).
func sanitizeID(val string) string {
	val = strings.TrimSpace(val)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, val)
}

func isPhrasingElement(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "p",
		"span", "b", "strong", "i", "em", "a",
		"code", "samp", "kbd", "var", "sub", "sup",
		"small", "s", "u", "mark", "abbr", "dfn",
		"cite", "del", "ins", "bdi", "bdo", "time", "data", "q":
		return true
	}
	return false
}

// isStructuralBlock: blocks that are moved out of inline parents intact
// rather than unwrapped.
func isStructuralBlock(tag string) bool {
	switch tag {
	case "table", "pre", "ul", "ol", "dl", "blockquote", "figure":
		return true
	}
	return false
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"blockquote", "section", "article", "aside",
		"header", "footer", "main", "figure", "figcaption", "nav",
		"table", "pre", "hr", "address":
		return true
	}
	return false
}

func elemAllowsDimensions(tag string) bool {
	switch tag {
	case "td", "th", "col", "colgroup", "table":
		return true
	}
	return false
}

func isAllowedAttr(key string) bool {
	switch key {
	case "id", "class", "title", "lang", "dir",
		"href", "alt", "width", "height",
		"colspan", "rowspan", "scope", "headers",
		"cite", "datetime", "value", "type",
		"rel", "start", "reversed", "epub:type":
		return true
	}
	return false
}

// isAllowedElement lists the EPUB 3 XHTML elements kept as-is.
func isAllowedElement(tag string) bool {
	switch tag {
	case "html", "head", "body",
		"div", "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "dl", "dt", "dd",
		"address", "hr", "pre", "blockquote", "cite", "em", "strong", "small", "s", "dfn",
		"abbr", "data", "time", "code", "var", "samp", "kbd", "sub", "sup", "i", "b", "u", "q",
		"mark", "ruby", "rt", "rp", "bdi", "bdo", "span", "br", "wbr", "ins", "del",
		"table", "caption", "colgroup", "col", "tbody", "thead", "tfoot", "tr", "td", "th",
		"section", "article", "aside", "header", "footer", "main", "figure", "figcaption", "nav",
		"a":
		return true
	}
	return false
}

// isDroppedElement lists elements removed with their content. Anything
// else that is not allowed is unwrapped and its children kept.
func isDroppedElement(tag string) bool {
	switch tag {
	case "script", "style", "link", "meta", "noscript", "template",
		"iframe", "object", "embed", "svg", "canvas",
		"form", "input", "button", "select", "textarea",
		"img", "picture", "source", "track":
		return true
	}
	return false
}

// voidElements are HTML elements that must be self-closing in XHTML.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Wbr: true,
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// xhtmlSanitizer carries the id bookkeeping for one document.
type xhtmlSanitizer struct {
	ids     map[string]bool // ids present in the input, sanitized
	usedIDs map[string]bool
}

// sanitizeForXHTML converts HTML to XHTML for an epub chapter: filters
// attributes, drops or unwraps disallowed elements, repairs content-model
// violations and renders void elements self-closed.
func sanitizeForXHTML(htmlStr string) string {
	htmlStr = stripInvalidXMLChars(htmlStr)

	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	s := &xhtmlSanitizer{ids: map[string]bool{}, usedIDs: map[string]bool{}}
	s.collectIDs(doc)
	s.clean(doc)

	var buf bytes.Buffer
	renderXHTML(&buf, doc)
	result := buf.String()

	// html.Parse wraps in <html><head><body>; keep the body content only.
	if idx := strings.Index(result, "<body>"); idx >= 0 {
		result = result[idx+len("<body>"):]
		if end := strings.LastIndex(result, "</body>"); end >= 0 {
			result = result[:end]
		}
	}
	return result
}

func (s *xhtmlSanitizer) collectIDs(n *html.Node) {
	if n.Type == html.ElementNode {
		if id := sanitizeID(getAttr(n, "id")); id != "" {
			s.ids[id] = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.collectIDs(c)
	}
}

// clean sanitizes n's subtree in place. It returns the replacement for n:
// n itself, a new node, or nil to remove n.
func (s *xhtmlSanitizer) clean(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "video" || n.Data == "audio":
			return mediaLink(n)
		case n.Data == "math":
			return mathFallback(n)
		case isDroppedElement(n.Data):
			return nil
		}

		n.Attr = s.filterAttrs(n)
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && !isAllowedElement(c.Data) && !isDroppedElement(c.Data) &&
			c.Data != "video" && c.Data != "audio" && c.Data != "math" {
			// Unknown element: hoist its children, then revisit them.
			first := c.FirstChild
			unwrap(c)
			if first != nil {
				next = first
			}
			c = next
			continue
		}
		if result := s.clean(c); result == nil {
			n.RemoveChild(c)
		} else if result != c {
			n.InsertBefore(result, c)
			n.RemoveChild(c)
		}
		c = next
	}

	// Content-model repairs run on the cleaned subtree.
	if n.Type == html.ElementNode {
		if isPhrasingElement(n.Data) {
			fixPhrasingNesting(n)
		}
		if n.Data == "dl" {
			fixDefinitionList(n)
		}
		if n.Data == "figcaption" && (n.Parent == nil || n.Parent.Data != "figure") {
			n.Data = "p"
			n.DataAtom = atom.P
		}
	}
	return n
}

func (s *xhtmlSanitizer) filterAttrs(n *html.Node) []html.Attribute {
	var filtered []html.Attribute
	for _, a := range n.Attr {
		if a.Namespace != "" || !isAllowedAttr(a.Key) {
			continue
		}
		switch a.Key {
		case "href":
			if strings.HasPrefix(a.Val, "#") {
				if frag := a.Val[1:]; frag != "" && !s.ids[frag] {
					continue // dangling fragment link
				}
			}
		case "id":
			id := sanitizeID(a.Val)
			if id == "" {
				continue
			}
			if s.usedIDs[id] {
				for i := 2; ; i++ {
					candidate := fmt.Sprintf("%s-%d", id, i)
					if !s.usedIDs[candidate] {
						id = candidate
						break
					}
				}
			}
			s.usedIDs[id] = true
			a.Val = id
		case "width", "height":
			if !elemAllowsDimensions(n.Data) {
				continue
			}
			v := sanitizeDimensionAttr(a.Val)
			if v == "" || v == "0" {
				continue
			}
			a.Val = v
		}
		filtered = append(filtered, a)
	}
	return filtered
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

// mediaLink turns <video>/<audio> into a link to the media, or nil when
// there is no source.
func mediaLink(n *html.Node) *html.Node {
	src := getAttr(n, "src")
	for c := n.FirstChild; c != nil && src == ""; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "source" {
			src = getAttr(c, "src")
		}
	}
	if src == "" {
		return nil
	}
	link := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []html.Attribute{{Key: "href", Val: src}},
	}
	link.AppendChild(&html.Node{Type: html.TextNode, Data: "[Media: " + src + "]"})
	return link
}

// mathFallback replaces MathML with its TeX alttext in a <code> element.
func mathFallback(n *html.Node) *html.Node {
	alt := strings.TrimSpace(getAttr(n, "alttext"))
	if inner, ok := strings.CutPrefix(alt, `{\displaystyle`); ok {
		alt = strings.TrimSpace(strings.TrimSuffix(inner, "}"))
	}
	if alt == "" {
		return nil
	}
	code := &html.Node{Type: html.ElementNode, Data: "code", DataAtom: atom.Code,
		Attr: []html.Attribute{{Key: "class", Val: "math"}}}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: alt})
	return code
}

// fixPhrasingNesting moves block children out of phrasing element n:
// structural blocks go above all phrasing ancestors intact, simple
// wrappers are unwrapped in place.
func fixPhrasingNesting(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && isBlockElement(c.Data) {
			if isStructuralBlock(c.Data) && n.Parent != nil {
				n.RemoveChild(c)
				target := n
				for target.Parent != nil && target.Parent.Type == html.ElementNode && isPhrasingElement(target.Parent.Data) {
					target = target.Parent
				}
				if target.Parent != nil {
					target.Parent.InsertBefore(c, target)
				}
			} else {
				unwrap(c)
			}
		}
		c = next
	}
}

func newElement(tag string, a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: a}
}

// fixDefinitionList enforces the <dl> content model. MediaWiki uses bare
// <dd> runs for indentation, so a missing <dt> is common.
func fixDefinitionList(n *html.Node) {
	// Wrap bare text and disallowed children.
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) != "":
			dt := newElement("dt", atom.Dt)
			n.InsertBefore(dt, c)
			n.RemoveChild(c)
			dt.AppendChild(c)
		case c.Type == html.ElementNode && c.Data != "dt" && c.Data != "dd" && c.Data != "div":
			dd := newElement("dd", atom.Dd)
			n.InsertBefore(dd, c)
			n.RemoveChild(c)
			dd.AppendChild(c)
		}
		c = next
	}

	// A <dd> before any <dt> gets an empty <dt>.
	seenDt := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == "dt" {
			seenDt = true
		} else if c.Data == "dd" && !seenDt {
			n.InsertBefore(newElement("dt", atom.Dt), c)
			seenDt = true
		}
	}

	// A trailing <dt> gets an empty <dd>.
	var lastDt *html.Node
	hasDt, hasDd := false, false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "dt":
			lastDt, hasDt = c, true
		case "dd", "div":
			lastDt, hasDd = nil, true
		}
	}
	if lastDt != nil {
		dd := newElement("dd", atom.Dd)
		if lastDt.NextSibling != nil {
			n.InsertBefore(dd, lastDt.NextSibling)
		} else {
			n.AppendChild(dd)
		}
		hasDd = true
	}
	if !hasDt {
		dt := newElement("dt", atom.Dt)
		if n.FirstChild != nil {
			n.InsertBefore(dt, n.FirstChild)
		} else {
			n.AppendChild(dt)
		}
	}
	if !hasDd {
		n.AppendChild(newElement("dd", atom.Dd))
	}
}

// renderXHTML renders an html.Node tree as XHTML (self-closing void elements).
func renderXHTML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteString(`="`)
			buf.WriteString(html.EscapeString(a.Val))
			buf.WriteByte('"')
		}
		if voidElements[n.DataAtom] && n.FirstChild == nil {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(buf, c)
		}
	case html.RawNode:
		buf.WriteString(n.Data)
	}
}
