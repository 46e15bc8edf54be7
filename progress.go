// Progress indicators for stdout when output goes to a file.
// When -o is specified, stdout is free for user-facing progress display.
package main

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// progress reports per-article progress. The zero writer (io.Discard)
// turns every method into a no-op.
type progress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgress(out io.Writer, total int, label string) *progress {
	if out == nil || out == io.Discard {
		return &progress{out: io.Discard}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &progress{out: out, bar: bar}
}

// start describes the article about to be processed.
func (p *progress) start(rawURL string) {
	if p.bar != nil {
		p.bar.Describe(shortURL(rawURL))
	}
}

// done advances the bar by one article.
func (p *progress) done() {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// spin shows a spinner with msg until the returned stop function is called.
func (p *progress) spin(msg string) (stop func()) {
	if p.bar == nil {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(p.out))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

// shortURL returns a compact display form of a URL: host + trimmed path,
// no scheme. Truncated to 60 characters with "..." if needed.
func shortURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	display := u.Host + u.Path
	display = strings.TrimSuffix(display, "/")
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	return display
}

// humanSize formats a byte count with a binary unit suffix.
func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}
