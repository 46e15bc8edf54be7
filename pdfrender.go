// Two-step PDF download through the wiki's own renderer: request the
// render page, scrape its download form, submit it and save the PDF.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/PuerkitoBio/goquery"
)

var (
	errNotHTML = errors.New("render response is neither PDF nor HTML")
	errNoForm  = errors.New("no download form on render page")
	errNotPDF  = errors.New("download response is not a PDF")
)

const (
	// debugSnippetBytes bounds the saved copy of an unexpected download response.
	debugSnippetBytes = 5000
	// minPDFBytes is the size below which a saved PDF is suspicious.
	minPDFBytes = 1000
)

// pdfRenderer turns one article URL into a PDF file at outPath.
type pdfRenderer interface {
	renderPDF(ctx context.Context, articleURL, outPath string) error
}

// newRenderer returns the renderer selected by name.
func newRenderer(name string, s *session, p *progress) (pdfRenderer, error) {
	switch name {
	case rendererServer:
		return &serverRenderer{s: s, progress: p}, nil
	case rendererChrome:
		return &chromeRenderer{s: s}, nil
	case rendererLocal:
		return &localRenderer{s: s, cleaner: newContentCleaner(s.log)}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", name)
}

// renderURL builds the server-side PDF endpoint for an article URL:
// scheme://host/w/index.php?title=Special:DownloadAsPdf&page=<title>.
// The fragment is dropped.
func renderURL(articleURL string) (string, error) {
	u, err := url.Parse(articleURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", articleURL, err)
	}
	title := articleTitleFromPath(u.Path)
	if title == "" {
		return "", fmt.Errorf("no /wiki/ title in %q", articleURL)
	}
	return fmt.Sprintf("%s://%s/w/index.php?title=Special:DownloadAsPdf&page=%s",
		u.Scheme, u.Host, url.QueryEscape(title)), nil
}

// serverRenderer drives the render/download exchange on one session so
// cookies set by the render page accompany the download.
type serverRenderer struct {
	s        *session
	progress *progress
}

func (r *serverRenderer) renderPDF(ctx context.Context, articleURL, outPath string) error {
	article, err := url.Parse(articleURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", articleURL, err)
	}
	if err := r.s.checkRobots(ctx, article); err != nil {
		return err
	}
	target, err := renderURL(articleURL)
	if err != nil {
		return err
	}

	stop := r.progress.spin("rendering " + shortURL(articleURL))
	page, done, err := r.requestRender(ctx, target, outPath)
	stop()
	if err != nil || done {
		return err
	}

	form, err := findDownloadForm(page)
	if err != nil {
		debugPath := outPath + ".render.html"
		if werr := os.WriteFile(debugPath, page, 0o644); werr != nil {
			r.s.log.Warn("could not save render page", "path", debugPath, "err", werr)
		} else {
			r.s.log.Info("saved render page for inspection", "path", debugPath)
		}
		return err
	}

	download, err := formURL(form, target)
	if err != nil {
		return err
	}
	r.s.log.Debug("submitting download form", "url", download)
	return r.download(ctx, download, outPath)
}

// requestRender performs the first step. When the server answers with a
// PDF straight away it is saved and done is true; otherwise the HTML
// render page is returned.
func (r *serverRenderer) requestRender(ctx context.Context, target, outPath string) (page []byte, done bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.s.cfg.RenderTimeout)
	defer cancel()

	req, err := r.s.newRequest(ctx, target, "text/html,application/pdf;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, false, err
	}
	resp, err := r.s.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("render request: HTTP %d for %s", resp.StatusCode, target)
	}

	switch ct := mediaType(resp.Header.Get("Content-Type")); ct {
	case "application/pdf":
		return nil, true, r.save(resp.Body, outPath)
	case "text/html":
		body, err := readLimited(resp.Body, r.s.cfg.MaxResponseBytes)
		if err != nil {
			return nil, false, fmt.Errorf("reading render page: %w", err)
		}
		return body, false, nil
	default:
		return nil, false, fmt.Errorf("%w: got %q", errNotHTML, ct)
	}
}

// findDownloadForm locates the form that triggers the PDF download. When
// the page has a hidden "page" input only its enclosing form counts; the
// form around a submit button is used only when that input is absent.
func findDownloadForm(page []byte) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing render page: %w", err)
	}
	anchor := doc.Find(`input[type="hidden"][name="page"]`).First()
	if anchor.Length() == 0 {
		anchor = doc.Find(`button[type="submit"]`).First()
	}
	if form := anchor.Closest("form"); form.Length() > 0 {
		return form, nil
	}
	return nil, errNoForm
}

// formURL resolves the form action against base and sets every named
// hidden input that carries a value as a query parameter.
func formURL(form *goquery.Selection, base string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	action, err := baseURL.Parse(form.AttrOr("action", ""))
	if err != nil {
		return "", fmt.Errorf("invalid form action: %w", err)
	}

	q := action.Query()
	form.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
		name := in.AttrOr("name", "")
		value, ok := in.Attr("value")
		if name != "" && ok {
			q.Set(name, value)
		}
	})
	action.RawQuery = q.Encode()
	action.Fragment = ""
	return action.String(), nil
}

// download performs the form submission and saves the PDF.
func (r *serverRenderer) download(ctx context.Context, target, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, r.s.cfg.DownloadTimeout)
	defer cancel()

	req, err := r.s.newRequest(ctx, target, "application/pdf,*/*;q=0.8")
	if err != nil {
		return err
	}
	resp, err := r.s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download: HTTP %d for %s", resp.StatusCode, target)
	}

	if ct := mediaType(resp.Header.Get("Content-Type")); ct != "application/pdf" {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, debugSnippetBytes))
		debugPath := outPath + ".download.html"
		if werr := os.WriteFile(debugPath, snippet, 0o644); werr != nil {
			r.s.log.Warn("could not save download response", "path", debugPath, "err", werr)
		} else {
			r.s.log.Info("saved download response for inspection", "path", debugPath)
		}
		return fmt.Errorf("%w: got %q", errNotPDF, ct)
	}
	return r.save(resp.Body, outPath)
}

// save streams a PDF body to outPath.
func (r *serverRenderer) save(body io.Reader, outPath string) error {
	n, err := savePDF(body, outPath, r.s.cfg.MaxResponseBytes)
	if err != nil {
		return err
	}
	if n < minPDFBytes {
		r.s.log.Warn("downloaded PDF is suspiciously small", "path", outPath, "size", humanSize(n))
	}
	r.s.log.Debug("saved PDF", "path", outPath, "size", humanSize(n))
	return nil
}

// savePDF copies r to path, failing when more than limit bytes arrive
// (limit 0 means unlimited). It returns the number of bytes written.
func savePDF(r io.Reader, path string, limit int64) (int64, error) {
	var n int64
	err := writeAtomic(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		src := r
		if limit > 0 {
			src = io.LimitReader(r, limit+1)
		}
		n, err = io.Copy(f, src)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if limit > 0 && n > limit {
			return fmt.Errorf("PDF exceeds maximum allowed size (%s)", humanSize(limit))
		}
		return nil
	})
	return n, err
}
