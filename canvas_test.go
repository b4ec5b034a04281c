package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestLayoutTextLineOffset(t *testing.T) {
	a := &Annotation{Kind: KindText, Rect: Rect{10, 40, 200, 50}, Text: "A\nB", FontSize: 20}
	lines := layoutText(a)
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0].Text != "A" || lines[1].Text != "B" {
		t.Errorf("lines = %+v", lines)
	}
	if lines[0].X != 10 || lines[0].Y != 40 {
		t.Errorf("first line at (%v, %v), want (10, 40)", lines[0].X, lines[0].Y)
	}
	if got, want := lines[1].Y-lines[0].Y, a.FontSize*lineHeight; got != want {
		t.Errorf("line offset = %v, want %v", got, want)
	}
}

func countNonWhite(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R != 0xff || c.G != 0xff || c.B != 0xff {
				n++
			}
		}
	}
	return n
}

func TestRendererDrawsObjects(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	s := newTestSlide(400, 300)
	s.Add(Annotation{Kind: KindMask, Rect: Rect{10, 10, 50, 50}, Color: "#ff0000"})
	text := s.Add(Annotation{Kind: KindText, Rect: Rect{100, 100, 200, 100}, Text: "MMM\nMMM", FontSize: 32, Color: "#000000"})
	lineStep := int(text.FontSize * lineHeight)

	img := r.Image(s, Overlay{})
	if got := colorToHex(img.At(30, 30)); got != "#ff0000" {
		t.Errorf("mask pixel = %s, want #ff0000", got)
	}
	textArea := image.Rect(100, 100, 300, 200)
	if countNonWhite(img, textArea) == 0 {
		t.Error("text was not drawn")
	}
	secondLine := image.Rect(100, 100+lineStep, 300, 200)
	if countNonWhite(img, secondLine) == 0 {
		t.Error("second line was not drawn below the first")
	}

	editing := r.Image(s, Overlay{Editing: text.ID})
	if n := countNonWhite(editing, textArea); n != 0 {
		t.Errorf("object under edit painted %d pixels", n)
	}
}

func TestRendererOverlays(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	s := newTestSlide(400, 300)
	obj := s.Add(Annotation{Kind: KindMask, Rect: Rect{100, 100, 100, 100}, Color: "#ffffff"})

	plain := r.Image(s, Overlay{})
	if n := countNonWhite(plain, plain.Bounds()); n != 0 {
		t.Fatalf("white mask on white base painted %d pixels", n)
	}
	selected := r.Image(s, Overlay{Selected: obj.ID})
	if countNonWhite(selected, image.Rect(90, 90, 110, 110)) == 0 {
		t.Error("selection handles not drawn")
	}
	draft := r.Image(s, Overlay{Draft: &Draft{Kind: draftScan, Rect: Rect{250, 50, 100, 100}, Color: scanMarkerColor}})
	if countNonWhite(draft, image.Rect(250, 50, 350, 150)) == 0 {
		t.Error("scan draft not drawn")
	}
}

func TestLoadFontFile(t *testing.T) {
	data, err := loadFontFile("")
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRendererFromTTF(data)
	if err != nil {
		t.Fatal(err)
	}
	if def, _ := NewRenderer(); !bytes.Equal(r.TTF(), def.TTF()) {
		t.Error("empty path did not select the default font")
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "regular.ttf")
	if err := os.WriteFile(good, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	data, err = loadFontFile(good)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, goregular.TTF) {
		t.Error("font file contents not returned")
	}

	bad := filepath.Join(dir, "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{bad, filepath.Join(dir, "missing.ttf")} {
		if _, err := loadFontFile(p); err == nil {
			t.Errorf("%s: accepted", filepath.Base(p))
		}
	}
}

// cjkFontCandidates are common locations of TrueType fonts with CJK glyphs.
var cjkFontCandidates = []string{
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/opentype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
	"/usr/share/fonts/truetype/takao-gothic/TakaoPGothic.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

func TestRendererDrawsCJKWithConfiguredFont(t *testing.T) {
	var data []byte
	for _, p := range cjkFontCandidates {
		if d, err := loadFontFile(p); err == nil {
			data = d
			break
		}
	}
	if data == nil {
		t.Skip("no CJK TrueType font installed")
	}
	r, err := NewRendererFromTTF(data)
	if err != nil {
		t.Fatal(err)
	}
	glyph := func(text string) []byte {
		s := NewSlide(uniformImage(64, 64, color.White), nil)
		s.Add(Annotation{Kind: KindText, Rect: Rect{0, 0, 64, 64}, Text: text, FontSize: 32, Color: "#000000"})
		return r.Image(s, Overlay{}).Pix
	}
	if bytes.Equal(glyph("日"), glyph("語")) {
		t.Error("distinct CJK characters render identically")
	}
}
