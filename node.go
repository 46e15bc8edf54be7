// Document node abstraction used by the cleaner's tree walks, plus the
// typed predicates the cleaning rules are written in.
package main

import (
	"strings"

	"golang.org/x/net/html"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	otherNode
)

// docNode is the capability set the cleaner needs from a parsed document.
type docNode interface {
	Kind() nodeKind
	// Tag is the lower-case element name, or "" for non-elements.
	Tag() string
	Attr(key string) (string, bool)
	Children() []docNode
	Parent() docNode
	// NextElement is the next sibling element, skipping text and comments.
	NextElement() docNode
	// Text is the concatenated text of all descendant text nodes.
	Text() string
	SetAttr(key, val string)
	// Detach removes the node from its parent. Detaching a root is a no-op.
	Detach()
}

// htmlNode adapts *html.Node to docNode.
type htmlNode struct {
	n *html.Node
}

func wrapNode(n *html.Node) docNode {
	if n == nil {
		return nil
	}
	return htmlNode{n: n}
}

func (h htmlNode) Kind() nodeKind {
	switch h.n.Type {
	case html.ElementNode:
		return elementNode
	case html.TextNode:
		return textNode
	case html.CommentNode:
		return commentNode
	}
	return otherNode
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(h.n.Data)
}

func (h htmlNode) Attr(key string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (h htmlNode) Children() []docNode {
	var out []docNode
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlNode{n: c})
	}
	return out
}

func (h htmlNode) Parent() docNode {
	return wrapNode(h.n.Parent)
}

func (h htmlNode) NextElement() docNode {
	for s := h.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return htmlNode{n: s}
		}
	}
	return nil
}

func (h htmlNode) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.n)
	return b.String()
}

func (h htmlNode) Detach() {
	if h.n.Parent != nil {
		h.n.Parent.RemoveChild(h.n)
	}
}

func (h htmlNode) SetAttr(key, val string) {
	for i, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == key {
			h.n.Attr[i].Val = val
			return
		}
	}
	h.n.Attr = append(h.n.Attr, html.Attribute{Key: key, Val: val})
}

// walkNodes visits n and its descendants depth-first. Children are
// snapshotted before visiting, so fn may detach the node it is given.
func walkNodes(n docNode, fn func(docNode)) {
	fn(n)
	for _, c := range n.Children() {
		walkNodes(c, fn)
	}
}

// findAll collects the descendants of n (n included) matching pred, in
// document order.
func findAll(n docNode, pred func(docNode) bool) []docNode {
	var out []docNode
	walkNodes(n, func(d docNode) {
		if pred(d) {
			out = append(out, d)
		}
	})
	return out
}

// ---------- predicates ----------

func classList(n docNode) []string {
	v, ok := n.Attr("class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

func hasClass(n docNode, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

func hasAnyClass(n docNode, classes ...string) bool {
	for _, c := range classes {
		if hasClass(n, c) {
			return true
		}
	}
	return false
}

func isTag(n docNode, tags ...string) bool {
	t := n.Tag()
	if t == "" {
		return false
	}
	for _, want := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// headingLevel returns 1-6 for h1-h6 and 0 otherwise.
func headingLevel(n docNode) int {
	t := n.Tag()
	if len(t) == 2 && t[0] == 'h' && t[1] >= '1' && t[1] <= '6' {
		return int(t[1] - '0')
	}
	return 0
}

// sectionLevel is the heading level a node opens in a sibling run: the
// level of a bare heading, or of the heading inside a div.mw-heading
// wrapper (current Wikipedia markup). 0 for anything else.
func sectionLevel(n docNode) int {
	if lvl := headingLevel(n); lvl > 0 {
		return lvl
	}
	if isTag(n, "div") && hasClass(n, "mw-heading") {
		for _, c := range n.Children() {
			if lvl := headingLevel(c); lvl > 0 {
				return lvl
			}
		}
	}
	return 0
}

// headingText is a heading's text without its edit-section links.
func headingText(n docNode) string {
	var b strings.Builder
	var walk func(docNode)
	walk = func(d docNode) {
		if d.Kind() == textNode {
			b.WriteString(d.Text())
			return
		}
		if d.Kind() == elementNode && hasClass(d, "mw-editsection") {
			return
		}
		for _, c := range d.Children() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

var citationClasses = []string{"citation", "cs1", "reference"}

// isCitationMarkup matches inline citation containers: cite/span/sup
// carrying a citation class, or a bracketed numeric marker.
func isCitationMarkup(n docNode) bool {
	if isTag(n, "cite", "span", "sup") && hasAnyClass(n, citationClasses...) {
		return true
	}
	return isBracketedMarker(n)
}

// isBracketedMarker matches <sup> elements whose text reads like "[12]".
func isBracketedMarker(n docNode) bool {
	if !isTag(n, "sup") {
		return false
	}
	text := strings.TrimSpace(n.Text())
	return strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")
}

// isBlank reports whether n has no visible text.
func isBlank(n docNode) bool {
	return strings.TrimSpace(n.Text()) == ""
}
