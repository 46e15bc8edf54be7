// Markdown export: converts cleaned articles to CommonMark Markdown.
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
)

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once
)

// getMarkdownConverter returns a shared converter. In-page fragment links
// are rendered as their text since anchors do not survive the join.
func getMarkdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
		// PriorityEarly (100) runs before the commonmark plugin (PriorityStandard 500).
		mdConverter.Register.RendererFor("a", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				href := dom.GetAttributeOr(n, "href", "")
				if !strings.HasPrefix(href, "#") {
					return converter.RenderTryNext
				}
				ctx.RenderChildNodes(ctx, w, n)
				return converter.RenderSuccess
			},
			converter.PriorityEarly,
		)
	})
	return mdConverter
}

// convertHTMLToMarkdown converts an HTML fragment to Markdown.
func convertHTMLToMarkdown(htmlStr string) (string, error) {
	md, err := getMarkdownConverter().ConvertString(htmlStr)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// articleMarkdown renders one record as "# Title", a source line and the
// converted content.
func articleMarkdown(rec articleRecord) (string, error) {
	body, err := convertHTMLToMarkdown(rec.Content)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Title)
	if rec.URL != "" {
		fmt.Fprintf(&b, "Source: <%s>\n\n", rec.URL)
	}
	b.WriteString(body)
	return b.String(), nil
}

// articlesToMarkdown joins records into one document separated by
// horizontal rules. Records that fail to convert are skipped.
func articlesToMarkdown(records []articleRecord, logger *log.Logger) (string, error) {
	var parts []string
	for _, rec := range records {
		md, err := articleMarkdown(rec)
		if err != nil {
			logger.Warn("markdown conversion failed", "title", rec.Title, "err", err)
			continue
		}
		parts = append(parts, md)
	}
	if len(parts) == 0 {
		return "", errNoArticles
	}
	return strings.Join(parts, "\n\n---\n\n") + "\n", nil
}
