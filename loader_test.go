package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestLoader() *urlLoader {
	return newURLLoader(defaultConfig(), discardLogger())
}

func TestLoad_FiltersLines(t *testing.T) {
	input := `# bugs to read about

https://en.wikipedia.org/wiki/Off-by-one_error
  https://en.wikipedia.org/wiki/Buffer_overflow
https://example.com/wiki/Not_a_wiki
ftp://en.wikipedia.org/wiki/Wrong_scheme
https://en.wikipedia.org/w/index.php?title=Not_an_article
https://en.wikipedia.org/wiki/
https://de.wikipedia.org/wiki/Stra%C3%9Fe
`
	got, err := newTestLoader().load(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"https://en.wikipedia.org/wiki/Off-by-one_error",
		"https://en.wikipedia.org/wiki/Buffer_overflow",
		"https://de.wikipedia.org/wiki/Stra%C3%9Fe",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("load =\n%q\nwant\n%q", got, want)
	}
}

func TestIsArticleURL(t *testing.T) {
	l := newTestLoader()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://en.wikipedia.org/wiki/Go", true},
		{"http://en.m.wikipedia.org/wiki/Go", true},
		{"https://wikipedia.org/wiki/Go", true},
		{"https://www.mediawiki.org/wiki/Help:Contents", true},
		{"https://en.wikipedia.org:443/wiki/Go", true},
		{"https://notwikipedia.org/wiki/Go", false},
		{"https://wikipedia.org.evil.com/wiki/Go", false},
		{"https://en.wikipedia.org/Go", false},
		{"javascript:alert(1)", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := l.isArticleURL(tt.url); got != tt.want {
			t.Errorf("isArticleURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestArticleTitleFromURL(t *testing.T) {
	tests := map[string]string{
		"https://en.wikipedia.org/wiki/Off-by-one_error": "Off-by-one_error",
		"https://de.wikipedia.org/wiki/Stra%C3%9Fe":      "Straße",
		"https://en.wikipedia.org/wiki/AC/DC":            "AC/DC",
		"https://en.wikipedia.org/w/index.php":           "",
	}
	for in, want := range tests {
		if got := articleTitleFromURL(in); got != want {
			t.Errorf("articleTitleFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollectURLs_MixedInputs(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	body := "https://en.wikipedia.org/wiki/A\nhttps://en.wikipedia.org/wiki/B\n"
	if err := os.WriteFile(list, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	stdin := strings.NewReader("https://en.wikipedia.org/wiki/D\n")

	got := newTestLoader().collectURLs([]string{
		list,
		"https://en.wikipedia.org/wiki/C",
		"-",
		filepath.Join(dir, "missing.txt"),
	}, stdin)

	want := []string{
		"https://en.wikipedia.org/wiki/A",
		"https://en.wikipedia.org/wiki/B",
		"https://en.wikipedia.org/wiki/C",
		"https://en.wikipedia.org/wiki/D",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectURLs = %q, want %q", got, want)
	}
}

func TestCollectURLs_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	body := "https://en.wikipedia.org/wiki/Default\n"
	if err := os.WriteFile(filepath.Join(dir, defaultURLFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	got := newTestLoader().collectURLs(nil, strings.NewReader(""))
	if len(got) != 1 || got[0] != "https://en.wikipedia.org/wiki/Default" {
		t.Errorf("collectURLs(nil) = %q", got)
	}
}

func TestCollectURLs_LiteralNonWikiURL(t *testing.T) {
	if got := newTestLoader().collectURLs([]string{"https://example.com/page"}, nil); len(got) != 0 {
		t.Errorf("got %q, want nothing", got)
	}
}
