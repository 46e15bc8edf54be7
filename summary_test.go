package main

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestArticleExcerpt(t *testing.T) {
	page := wikiPage("Off-by-one error", `<p>An <b>off-by-one error</b> or <b>off-by-one bug</b> is a logic error that
involves a number that differs from its intended value by 1. It often occurs in computer programming
when a loop iterates one time too many or too few.</p>
<p>This problem could arise when a programmer makes mistakes such as using "is less than or equal to"
where "is less than" should have been used in a comparison, or fails to take into account that a
sequence starts at zero rather than one.</p>`)

	u, _ := url.Parse("https://en.wikipedia.org/wiki/Off-by-one_error")
	got := articleExcerpt([]byte(page), u, discardLogger())
	if got == "" {
		t.Fatal("expected an excerpt")
	}
	if utf8.RuneCountInString(got) > maxExcerptRunes {
		t.Errorf("excerpt has %d runes, want at most %d", utf8.RuneCountInString(got), maxExcerptRunes)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("excerpt should be a single line: %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer sentence", 9, "a longer…"},
		{"Zürich Straße", 8, "Zürich…"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
