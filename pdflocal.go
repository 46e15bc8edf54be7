// Client-side PDF renderers for when the wiki's render service is not
// available: headless Chrome, or a plain-text layout with gofpdf.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/jung-kurt/gofpdf"
)

// chromeRenderer prints the article's printable view with headless Chrome.
type chromeRenderer struct {
	s *session
}

// printableURL returns the article URL with printable=yes and no fragment.
func printableURL(articleURL string) (*url.URL, error) {
	u, err := url.Parse(articleURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", articleURL, err)
	}
	q := u.Query()
	q.Set("printable", "yes")
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u, nil
}

func (r *chromeRenderer) renderPDF(ctx context.Context, articleURL, outPath string) error {
	u, err := printableURL(articleURL)
	if err != nil {
		return err
	}
	if err := r.s.checkRobots(ctx, u); err != nil {
		return err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.s.cfg.UserAgent),
		chromedp.Flag("disable-gpu", true),
	)
	if r.s.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(r.s.cfg.Proxy))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	timeoutCtx, cancelTimeout := context.WithTimeout(allocCtx, r.s.cfg.RenderTimeout)
	defer cancelTimeout()
	browserCtx, cancelBrowser := chromedp.NewContext(timeoutCtx)
	defer cancelBrowser()

	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(u.String()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("chrome print: %w", err)
	}
	if len(buf) < minPDFBytes {
		r.s.log.Warn("printed PDF is suspiciously small", "path", outPath, "size", humanSize(int64(len(buf))))
	}
	return writeFileAtomic(outPath, buf)
}

// localRenderer fetches and cleans the article itself, converts it to
// Markdown and lays the text out with gofpdf.
type localRenderer struct {
	s       *session
	cleaner *contentCleaner
}

func (r *localRenderer) renderPDF(ctx context.Context, articleURL, outPath string) error {
	art, err := r.s.fetchArticle(ctx, articleURL)
	if err != nil {
		return err
	}
	content := r.cleaner.clean(art.Doc, art.URL)
	if content == "" {
		return fmt.Errorf("%w: %s", errEmptyContent, articleURL)
	}
	md, err := articleMarkdown(articleRecord{Title: art.Title, Content: content, URL: articleURL})
	if err != nil {
		return err
	}
	return writeAtomic(outPath, func(tmpPath string) error {
		return layoutMarkdownPDF(md, art.Title, tmpPath)
	})
}

var (
	mdLinkRe   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdAngleRe  = regexp.MustCompile(`<(https?://[^>]+)>`)
	mdEscapeRe = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|<>])")
	mdEmphRe   = regexp.MustCompile(`\*\*|__`)
)

// plainInline strips inline Markdown syntax down to readable text.
func plainInline(s string) string {
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = mdAngleRe.ReplaceAllString(s, "$1")
	s = mdEmphRe.ReplaceAllString(s, "")
	return mdEscapeRe.ReplaceAllString(s, "$1")
}

// layoutMarkdownPDF writes md as a simple A4 document: headings in bold,
// list items indented, code and tables in a monospaced face.
func layoutMarkdownPDF(md, title, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("wikibind", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	inFence := false
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		pdf.SetFont("Times", "", 11)
		pdf.MultiCell(0, 5.5, tr(plainInline(strings.Join(para, " "))), "", "L", false)
		pdf.Ln(2.5)
		para = para[:0]
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```"):
			flush()
			inFence = !inFence
		case inFence:
			pdf.SetFont("Courier", "", 9)
			pdf.MultiCell(0, 4.5, tr(line), "", "L", false)
		case trimmed == "":
			flush()
		case trimmed == "---" || trimmed == "* * *":
			flush()
			y := pdf.GetY() + 2
			pdf.Line(20, y, 190, y)
			pdf.Ln(5)
		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			size := 18.0 - float64(level-1)*2
			if size < 11 {
				size = 11
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, size*0.5, tr(plainInline(strings.TrimSpace(trimmed[level:]))), "", "L", false)
			pdf.Ln(2)
		case strings.HasPrefix(trimmed, "|"):
			flush()
			pdf.SetFont("Courier", "", 8)
			pdf.MultiCell(0, 4, tr(plainInline(trimmed)), "", "L", false)
		case isListLine(trimmed):
			flush()
			indent := float64(len(line)-len(strings.TrimLeft(line, " "))) * 1.5
			pdf.SetFont("Times", "", 11)
			pdf.SetX(25 + indent)
			pdf.MultiCell(0, 5.5, tr("• "+plainInline(listItemText(trimmed))), "", "L", false)
		default:
			para = append(para, trimmed)
		}
	}
	flush()

	if err := pdf.Error(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pdf.Output(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var orderedItemRe = regexp.MustCompile(`^\d+[.)] `)

func isListLine(s string) bool {
	return strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "+ ") ||
		orderedItemRe.MatchString(s)
}

func listItemText(s string) string {
	if loc := orderedItemRe.FindStringIndex(s); loc != nil {
		return s[loc[1]:]
	}
	return s[2:]
}
