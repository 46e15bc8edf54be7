// Epub generation from cleaned articles using go-epub.
// One navigation page followed by one chapter per article, in input order.
package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	gohtml "html"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	epub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"
)

var errNoArticles = errors.New("no articles to assemble")

const contentsFilename = "contents.xhtml"

// bookCSS is shared by every chapter and by standalone HTML output.
const bookCSS = `body { margin: 1em; line-height: 1.5; font-family: serif; }
h1 { font-size: 1.6em; margin-bottom: 0.2em; }
h2 { font-size: 1.3em; border-bottom: 1px solid #aaa; }
h3 { font-size: 1.1em; }
pre, code { font-size: 0.85em; }
code.math { font-style: italic; }
blockquote { margin-left: 1em; padding-left: 0.5em; border-left: 2px solid #999; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #aaa; padding: 0.2em 0.4em; }
.source { font-size: 0.85em; color: #666; margin-top: 0; margin-bottom: 1.5em; }
.source a { color: #666; }
.toc { list-style-type: none; padding-left: 0; }
.toc li { margin-bottom: 1.2em; }
.toc a { text-decoration: none; }
.toc-meta { font-size: 0.85em; color: #666; margin-top: 0.1em; }
.toc-meta a { color: #666; }`

// buildTOCBody generates the navigation page: a linked list of chapters
// with their source URLs and excerpts.
func buildTOCBody(records []articleRecord) string {
	var b strings.Builder
	b.WriteString("<h1>Contents</h1>\n<ol class=\"toc\">\n")
	for i, rec := range records {
		b.WriteString("<li>\n")
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, chapterFilename(i+1, rec.Title), gohtml.EscapeString(rec.Title))
		b.WriteByte('\n')

		var meta []string
		if rec.URL != "" {
			meta = append(meta, fmt.Sprintf(`<a href="%s">%s</a>`,
				gohtml.EscapeString(rec.URL), gohtml.EscapeString(displayURL(rec.URL))))
		}
		if rec.Excerpt != "" {
			meta = append(meta, gohtml.EscapeString(rec.Excerpt))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "<p class=\"toc-meta\">%s</p>\n", strings.Join(meta, "<br/>"))
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ol>\n")
	return b.String()
}

// buildEpub assembles records into an EPUB 3 file at outputPath. The file
// only appears under outputPath once it has been written completely.
func buildEpub(records []articleRecord, book bookConfig, outputPath string, logger *log.Logger) error {
	if len(records) == 0 {
		return errNoArticles
	}

	e, err := epub.NewEpub(book.Title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetIdentifier("urn:uuid:" + uuid.NewString())
	e.SetAuthor(book.Author)
	e.SetLang(book.Language)
	noun := "articles"
	if len(records) == 1 {
		noun = "article"
	}
	e.SetDescription(fmt.Sprintf("A compilation of %d Wikipedia %s.", len(records), noun))

	cssDataURI := "data:text/css;base64," + base64.StdEncoding.EncodeToString([]byte(bookCSS))
	cssPath, err := e.AddCSS(cssDataURI, "styles.css")
	if err != nil {
		logger.Warn("could not add stylesheet", "err", err)
		cssPath = ""
	}

	if book.Cover {
		if err := addCover(e, book.Title, len(records), cssPath); err != nil {
			logger.Warn("could not add cover", "err", err)
		}
	}

	if _, err := e.AddSection(buildTOCBody(records), "Contents", contentsFilename, cssPath); err != nil {
		return fmt.Errorf("adding contents page: %w", err)
	}

	for i, rec := range records {
		body := sanitizeForXHTML(chapterBody(rec))
		if _, err := e.AddSection(body, rec.Title, chapterFilename(i+1, rec.Title), cssPath); err != nil {
			return fmt.Errorf("adding chapter %q: %w", rec.Title, err)
		}
		logger.Debug("added chapter", "n", i+1, "title", rec.Title)
	}

	return writeAtomic(outputPath, e.Write)
}

// addCover draws a cover image and registers it with the book.
func addCover(e *epub.Epub, title string, articleCount int, cssPath string) error {
	png, err := generateCover(title, articleCount)
	if err != nil {
		return err
	}
	imgPath, err := e.AddImage("data:image/png;base64,"+base64.StdEncoding.EncodeToString(png), "cover.png")
	if err != nil {
		return fmt.Errorf("adding cover image: %w", err)
	}
	e.SetCover(imgPath, cssPath)
	return nil
}

// writeAtomic calls write with a temporary sibling of path and renames the
// result into place. On failure the temporary file is removed.
func writeAtomic(path string, write func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := write(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// CreateTemp uses 0600.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to path through writeAtomic.
func writeFileAtomic(path string, data []byte) error {
	return writeAtomic(path, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0o644)
	})
}
