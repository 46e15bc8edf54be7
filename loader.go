package main

import (
	"bufio"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var errNoURLs = errors.New("no valid article URLs found")

// urlLoader turns URL lists into validated article URLs.
type urlLoader struct {
	hosts []string
	log   *log.Logger
}

func newURLLoader(cfg *Config, logger *log.Logger) *urlLoader {
	return &urlLoader{hosts: cfg.AllowedHosts, log: logger}
}

// loadFile reads one URL per line from path. A missing or unreadable file
// is logged and yields no URLs.
func (l *urlLoader) loadFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		l.log.Error("cannot read URL list", "path", path, "err", err)
		return nil
	}
	defer f.Close()

	urls, err := l.load(f)
	if err != nil {
		l.log.Error("error reading URL list", "path", path, "err", err)
		return nil
	}
	return urls
}

// parseText validates a literal block of URLs, one per line.
func (l *urlLoader) parseText(text string) []string {
	urls, _ := l.load(strings.NewReader(text))
	return urls
}

func (l *urlLoader) load(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !l.isArticleURL(line) {
			l.log.Warn("skipping non-wiki URL", "url", line)
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// isArticleURL reports whether raw points at an article on an allowed wiki
// host: http(s) scheme, allowed host suffix, /wiki/<title> path.
func (l *urlLoader) isArticleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if articleTitleFromPath(u.Path) == "" {
		return false
	}
	return hostAllowed(u.Hostname(), l.hosts)
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, suffix := range allowed {
		suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// articleTitleFromPath returns the title segment of a decoded /wiki/ path,
// or "" when the path is not an article path.
func articleTitleFromPath(p string) string {
	title, ok := strings.CutPrefix(p, "/wiki/")
	if !ok {
		return ""
	}
	return title
}

// articleTitleFromURL returns the decoded article title of a wiki URL.
func articleTitleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return articleTitleFromPath(u.Path)
}

// isURLArg reports whether a command-line argument is a literal URL rather
// than a file name.
func isURLArg(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// collectURLs resolves command-line inputs (files, literal URLs, "-" for
// stdin) into one ordered list. With no inputs the default file is read.
func (l *urlLoader) collectURLs(args []string, stdin io.Reader) []string {
	if len(args) == 0 {
		args = []string{defaultURLFile}
	}
	var urls []string
	for _, arg := range args {
		switch {
		case arg == "-":
			text, err := io.ReadAll(stdin)
			if err != nil {
				l.log.Error("reading stdin", "err", err)
				continue
			}
			urls = append(urls, l.parseText(string(text))...)
		case isURLArg(arg):
			urls = append(urls, l.parseText(arg)...)
		default:
			urls = append(urls, l.loadFile(arg)...)
		}
	}
	return urls
}
