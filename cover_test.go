package main

import (
	"archive/zip"
	"bytes"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestGenerateCover_Basic(t *testing.T) {
	data, err := generateCover("Weekly Reads", 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("cover PNG is empty")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != coverWidth || bounds.Dy() != coverHeight {
		t.Errorf("cover size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), coverWidth, coverHeight)
	}
}

func TestGenerateCover_Deterministic(t *testing.T) {
	a, err := generateCover("Same Title", 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateCover("Same Title", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same inputs should produce identical covers")
	}
}

func TestGenerateCover_DifferentTitles(t *testing.T) {
	a, err := generateCover("Title A", 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := generateCover("Title B", 3)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("different titles should produce different covers")
	}
}

func TestGenerateCover_LongTitle(t *testing.T) {
	title := "Wikipedia Article Compilation on Numerical Analysis and Floating Point Arithmetic"
	data, err := generateCover(title, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
}

func TestWrapText(t *testing.T) {
	face, err := loadFace(goregular.TTF, 32)
	if err != nil {
		t.Fatal(err)
	}

	if lines := wrapText("Hello World", face, 10000); len(lines) != 1 {
		t.Errorf("short text should be 1 line, got %d", len(lines))
	}
	if lines := wrapText("This is a much longer piece of text that definitely needs wrapping", face, 200); len(lines) < 2 {
		t.Errorf("long text with narrow width should wrap, got %d lines", len(lines))
	}
	if lines := wrapText("", face, 500); len(lines) != 1 {
		t.Errorf("empty string should produce 1 line, got %d", len(lines))
	}
}

func TestLoadFace(t *testing.T) {
	face, err := loadFace(gobold.TTF, 48)
	if err != nil {
		t.Fatal(err)
	}
	if face.Metrics().Height <= 0 {
		t.Error("font face should have positive height")
	}
}

func TestBuildEpub_HasCover(t *testing.T) {
	records := []articleRecord{{
		Title:   "Off-by-one error",
		Content: `<div class="mw-parser-output"><p>Content.</p></div>`,
		URL:     "https://en.wikipedia.org/wiki/Off-by-one_error",
	}}
	book := defaultConfig().Book
	book.Cover = true

	outPath := filepath.Join(t.TempDir(), "cover_test.epub")
	if err := buildEpub(records, book, outPath, discardLogger()); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if strings.Contains(f.Name, "cover.png") {
			return
		}
	}
	t.Error("epub should contain cover.png")
	for _, f := range zr.File {
		t.Logf("  %s", f.Name)
	}
}
