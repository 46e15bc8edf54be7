// Run orchestration: URL collection, the sequential fetch/clean loop and
// the per-format assembly steps.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const (
	defaultEpubOutput     = "wiki_compilation.epub"
	defaultPDFOutput      = "wiki_compilation.pdf"
	defaultMarkdownOutput = "wiki_compilation.md"
)

// runner carries what every mode needs. Progress goes to progressOut;
// article mode writes its document to stdout when no output is set.
type runner struct {
	cfg         *Config
	log         *log.Logger
	stdin       io.Reader
	stdout      io.Writer
	progressOut io.Writer
}

// urls resolves command-line inputs to validated article URLs.
func (r *runner) urls(inputs []string) ([]string, error) {
	urls := newURLLoader(r.cfg, r.log).collectURLs(inputs, r.stdin)
	if len(urls) == 0 {
		return nil, errNoURLs
	}
	r.log.Info("loaded article URLs", "count", len(urls))
	return urls, nil
}

// collectArticles fetches and cleans each URL in order, one at a time.
// Failed articles are logged and skipped; only cancellation aborts.
func (r *runner) collectArticles(ctx context.Context, urls []string) ([]articleRecord, error) {
	s, err := newSession(r.cfg, r.log, r.cfg.Delay)
	if err != nil {
		return nil, err
	}
	cleaner := newContentCleaner(r.log)
	prog := newProgress(r.progressOut, len(urls), "articles")
	defer prog.finish()

	var records []articleRecord
	failed := 0
	for i, rawURL := range urls {
		if err := s.throttle.wait(ctx); err != nil {
			return nil, err
		}
		prog.start(rawURL)
		rec, err := r.processArticle(ctx, s, cleaner, rawURL)
		s.throttle.done()
		prog.done()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			r.log.Error("skipping article", "n", i+1, "url", rawURL, "err", err)
			continue
		}
		r.log.Info("processed article", "n", i+1, "of", len(urls), "title", rec.Title)
		records = append(records, rec)
	}
	r.log.Info("fetch complete", "processed", len(records), "failed", failed)
	return records, nil
}

func (r *runner) processArticle(ctx context.Context, s *session, cleaner *contentCleaner, rawURL string) (articleRecord, error) {
	art, err := s.fetchArticle(ctx, rawURL)
	if err != nil {
		return articleRecord{}, err
	}
	content := cleaner.clean(art.Doc, art.URL)
	if content == "" {
		return articleRecord{}, fmt.Errorf("%w after cleaning: %s", errEmptyContent, rawURL)
	}
	return articleRecord{
		Title:   art.Title,
		Content: content,
		URL:     rawURL,
		Excerpt: art.Excerpt,
	}, nil
}

func outputPath(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

// logOutput reports the final document and its size.
func (r *runner) logOutput(path string) {
	if info, err := os.Stat(path); err == nil {
		r.log.Info("wrote output", "path", path, "size", humanSize(info.Size()))
	}
}

func (r *runner) runEPUB(ctx context.Context, inputs []string) error {
	urls, err := r.urls(inputs)
	if err != nil {
		return err
	}
	records, err := r.collectArticles(ctx, urls)
	if err != nil {
		return err
	}
	out := outputPath(r.cfg.Output, defaultEpubOutput)
	r.log.Info("building epub", "articles", len(records), "path", out)
	if err := buildEpub(records, r.cfg.Book, out, r.log); err != nil {
		return fmt.Errorf("building epub: %w", err)
	}
	r.logOutput(out)
	return nil
}

func (r *runner) runMarkdown(ctx context.Context, inputs []string) error {
	urls, err := r.urls(inputs)
	if err != nil {
		return err
	}
	records, err := r.collectArticles(ctx, urls)
	if err != nil {
		return err
	}
	md, err := articlesToMarkdown(records, r.log)
	if err != nil {
		return fmt.Errorf("building markdown: %w", err)
	}
	out := outputPath(r.cfg.Output, defaultMarkdownOutput)
	if err := writeFileAtomic(out, []byte(md)); err != nil {
		return err
	}
	r.logOutput(out)
	return nil
}

// runArticle fetches one article and writes it as a standalone HTML
// document to the output file or stdout.
func (r *runner) runArticle(ctx context.Context, rawURL string) error {
	loader := newURLLoader(r.cfg, r.log)
	if !loader.isArticleURL(rawURL) {
		return fmt.Errorf("%w: %s is not a wiki article URL", errNoURLs, rawURL)
	}
	s, err := newSession(r.cfg, r.log, 0)
	if err != nil {
		return err
	}
	rec, err := r.processArticle(ctx, s, newContentCleaner(r.log), rawURL)
	if err != nil {
		return err
	}
	doc := renderFullHTML(rec)
	if r.cfg.Output == "" {
		_, err := io.WriteString(r.stdout, doc)
		return err
	}
	if err := writeFileAtomic(r.cfg.Output, []byte(doc)); err != nil {
		return err
	}
	r.logOutput(r.cfg.Output)
	return nil
}

// runPDF renders each article to an intermediate PDF in a per-run
// directory and merges the results. The directory is removed afterwards
// unless KeepTemp is set.
func (r *runner) runPDF(ctx context.Context, inputs []string) error {
	urls, err := r.urls(inputs)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp(r.cfg.PDF.TempDir, "wikibind-pdf-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	if r.cfg.PDF.KeepTemp {
		r.log.Info("keeping intermediate files", "dir", tempDir)
	} else {
		defer func() {
			if err := os.RemoveAll(tempDir); err != nil {
				r.log.Warn("could not remove temp dir", "dir", tempDir, "err", err)
			}
		}()
	}

	s, err := newSession(r.cfg, r.log, r.cfg.PDFDelay)
	if err != nil {
		return err
	}
	prog := newProgress(r.progressOut, len(urls), "pdfs")
	renderer, err := newRenderer(r.cfg.PDF.Renderer, s, prog)
	if err != nil {
		return err
	}

	var downloaded []string
	failed := 0
	for i, rawURL := range urls {
		if err := s.throttle.wait(ctx); err != nil {
			prog.finish()
			return err
		}
		prog.start(rawURL)
		path, err := r.renderOne(ctx, renderer, tempDir, i+1, rawURL)
		s.throttle.done()
		prog.done()
		if err != nil {
			if ctx.Err() != nil {
				prog.finish()
				return ctx.Err()
			}
			failed++
			r.log.Error("skipping article", "n", i+1, "url", rawURL, "err", err)
			continue
		}
		downloaded = append(downloaded, path)
	}
	prog.finish()
	r.log.Info("downloads complete", "downloaded", len(downloaded), "failed", failed)

	out := outputPath(r.cfg.Output, defaultPDFOutput)
	if err := mergePDFs(downloaded, out, r.log); err != nil {
		return fmt.Errorf("merging PDFs: %w", err)
	}
	r.logOutput(out)
	return nil
}

// renderOne renders the n-th article into tempDir and returns the path of
// a non-empty PDF.
func (r *runner) renderOne(ctx context.Context, renderer pdfRenderer, tempDir string, n int, rawURL string) (string, error) {
	target, err := renderURL(rawURL)
	if err != nil {
		return "", err
	}
	r.log.Debug("render endpoint", "url", target)

	title := articleTitleFromURL(rawURL)
	path := filepath.Join(tempDir, pdfFilename(n, title))
	if err := renderer.renderPDF(ctx, rawURL, path); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("renderer reported success but %s is missing: %w", path, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("renderer reported success but %s is empty", path)
	}
	r.log.Info("saved PDF", "n", n, "title", title, "size", humanSize(info.Size()))
	return path, nil
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
