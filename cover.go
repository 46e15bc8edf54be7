// Cover image generation for epub output.
// Produces a deterministic pattern of bars seeded from the book title,
// with the title and article count overlaid as text.
package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1200
	coverHeight = 1800
)

// generateCover creates a PNG cover: a band of hash-derived vertical bars
// above and below a white title block.
func generateCover(title string, articleCount int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{0xFF}), image.Point{}, draw.Src)

	hash := sha256.Sum256([]byte(title))
	drawBars(img, hash, 0, 600)
	drawBars(img, hash, 1200, coverHeight)

	boldFace, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return nil, fmt.Errorf("loading bold font: %w", err)
	}
	regularFace, err := loadFace(goregular.TTF, 32)
	if err != nil {
		return nil, fmt.Errorf("loading regular font: %w", err)
	}

	drawTitleBlock(img, title, articleCount, boldFace, regularFace)

	label := "wikibind"
	w := font.MeasureString(regularFace, label).Ceil()
	drawString(img, label, regularFace, coverWidth-40-w, coverHeight-40)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBars fills rows [top, bottom) with vertical bars whose width and
// shade come from the hash, like the spines on a shelf.
func drawBars(img *image.Gray, hash [32]byte, top, bottom int) {
	x, i := 40, 0
	for x < coverWidth-40 {
		b := hash[i%len(hash)] ^ byte(i*29+top)
		width := 14 + int(b)%46
		if x+width > coverWidth-40 {
			width = coverWidth - 40 - x
		}
		// 0x30..0xD0 reads well on e-ink.
		shade := uint8(0x30 + int(b)*(0xD0-0x30)/255)
		inset := int(hash[(i+11)%len(hash)]) % 120
		draw.Draw(img,
			image.Rect(x, top+40+inset, x+width-4, bottom-40),
			image.NewUniform(color.Gray{shade}),
			image.Point{},
			draw.Src,
		)
		x += width
		i++
	}
}

// drawTitleBlock renders the word-wrapped title and article count centred
// between the two bar bands.
func drawTitleBlock(img *image.Gray, title string, articleCount int, titleFace, metaFace font.Face) {
	const (
		bandTop    = 650
		bandBottom = 1150
		padX       = 80
		maxWidth   = coverWidth - padX*2
	)

	for x := padX; x < coverWidth-padX; x++ {
		img.SetGray(x, bandTop+20, color.Gray{0x99})
		img.SetGray(x, bandBottom-20, color.Gray{0x99})
	}

	lines := wrapText(title, titleFace, maxWidth)
	lineHeight := titleFace.Metrics().Height.Ceil() + 8
	metaHeight := metaFace.Metrics().Height.Ceil() + 16
	totalHeight := len(lines)*lineHeight + metaHeight
	y := bandTop + (bandBottom-bandTop-totalHeight)/2 + titleFace.Metrics().Ascent.Ceil()

	for _, line := range lines {
		lineW := font.MeasureString(titleFace, line).Ceil()
		drawString(img, line, titleFace, (coverWidth-lineW)/2, y)
		y += lineHeight
	}

	y += 16
	meta := fmt.Sprintf("%d articles", articleCount)
	if articleCount == 1 {
		meta = "1 article"
	}
	metaW := font.MeasureString(metaFace, meta).Ceil()
	drawString(img, meta, metaFace, (coverWidth-metaW)/2, y)
}

// drawString renders a string onto a grayscale image in black.
func drawString(img *image.Gray, s string, face font.Face, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{0x00}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText splits text into lines that fit within maxWidth pixels.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

// loadFace parses an OpenType font and returns a Face at the given size in points.
func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
