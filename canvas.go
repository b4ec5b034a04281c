package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

type draftKind int

const (
	draftMask draftKind = iota
	draftScan
)

// Draft is an uncommitted rectangle shown while a draw or scan gesture is
// in progress.
type Draft struct {
	Kind  draftKind
	Rect  Rect
	Color string
}

// Overlay carries the session state the renderer paints on top of a slide.
// The zero Overlay renders the committed document only.
type Overlay struct {
	Selected ObjectID
	Editing  ObjectID
	Draft    *Draft
}

// Renderer projects a slide and its annotations onto a gg context. A
// Renderer caches font faces and is not safe for concurrent use.
type Renderer struct {
	font  *truetype.Font
	ttf   []byte
	faces map[float64]font.Face
}

// NewRenderer draws text with the built-in Go Bold face.
func NewRenderer() (*Renderer, error) {
	return NewRendererFromTTF(gobold.TTF)
}

// NewRendererFromTTF draws text with the given TrueType font. Empty data
// selects Go Bold.
func NewRendererFromTTF(ttf []byte) (*Renderer, error) {
	if len(ttf) == 0 {
		ttf = gobold.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{font: f, ttf: ttf, faces: make(map[float64]font.Face)}, nil
}

// TTF returns the font data the renderer draws with, so exports can embed
// the same face.
func (r *Renderer) TTF() []byte { return r.ttf }

// loadFontFile reads the TrueType font used for text. Go Bold has no CJK
// glyphs, so decks in those scripts need a font set here. An empty path
// selects Go Bold.
func loadFontFile(path string) ([]byte, error) {
	if path == "" {
		return gobold.TTF, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	if _, err := truetype.Parse(data); err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func (r *Renderer) face(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[size] = f
	return f
}

// Image renders s at its native raster resolution.
func (r *Renderer) Image(s *Slide, o Overlay) *image.RGBA {
	dc := gg.NewContext(s.Width(), s.Height())
	r.Draw(dc, s, o)
	return dc.Image().(*image.RGBA)
}

// Draw paints the raster base, the annotations in paint order, and then the
// selection and draft overlays. The object under in-place edit is skipped.
func (r *Renderer) Draw(dc *gg.Context, s *Slide, o Overlay) {
	b := s.Base.Bounds()
	dc.DrawImage(s.Base, -b.Min.X, -b.Min.Y)

	for _, obj := range s.Objects() {
		switch obj.Kind {
		case KindMask:
			dc.SetColor(mustColor(obj.Color))
			dc.DrawRectangle(obj.Rect.X, obj.Rect.Y, obj.Rect.W, obj.Rect.H)
			dc.Fill()
		case KindText:
			if obj.ID == o.Editing {
				continue
			}
			r.drawText(dc, obj)
		}
	}

	if sel := s.Object(o.Selected); sel != nil {
		drawSelection(dc, sel.Rect)
	}
	if o.Draft != nil {
		drawDraft(dc, o.Draft)
	}
}

type textLine struct {
	Text string
	X, Y float64 // top-left of the line box
}

// layoutText splits the content on newlines; each line sits one
// fontSize*lineHeight below the previous one.
func layoutText(a *Annotation) []textLine {
	parts := strings.Split(a.Text, "\n")
	lines := make([]textLine, 0, len(parts))
	for i, p := range parts {
		lines = append(lines, textLine{
			Text: p,
			X:    a.Rect.X,
			Y:    a.Rect.Y + float64(i)*a.FontSize*lineHeight,
		})
	}
	return lines
}

func (r *Renderer) drawText(dc *gg.Context, a *Annotation) {
	if a.Text == "" || a.FontSize <= 0 {
		return
	}
	face := r.face(a.FontSize)
	ascent := float64(face.Metrics().Ascent) / 64
	dc.SetFontFace(face)
	dc.SetColor(mustColor(a.Color))
	for _, l := range layoutText(a) {
		dc.DrawString(l.Text, l.X, l.Y+ascent)
	}
}

func drawSelection(dc *gg.Context, rect Rect) {
	dc.SetColor(mustColor(selectionColor))
	dc.SetLineWidth(2)
	dc.DrawRectangle(rect.X, rect.Y, rect.W, rect.H)
	dc.Stroke()

	dc.SetLineWidth(1)
	for _, a := range handleAnchors(rect) {
		hb := handleBox(a, handleSize)
		dc.DrawRectangle(hb.X, hb.Y, hb.W, hb.H)
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(mustColor(selectionColor))
		dc.Stroke()
	}
}

func drawDraft(dc *gg.Context, d *Draft) {
	c := mustColor(d.Color)
	switch d.Kind {
	case draftMask:
		c.A = 0x80
		dc.SetColor(c)
		dc.DrawRectangle(d.Rect.X, d.Rect.Y, d.Rect.W, d.Rect.H)
		dc.Fill()
	case draftScan:
		fill := c
		fill.A = 0x20
		dc.SetColor(fill)
		dc.DrawRectangle(d.Rect.X, d.Rect.Y, d.Rect.W, d.Rect.H)
		dc.Fill()
		dc.SetColor(c)
		dc.SetLineWidth(2)
		dc.SetDash(6, 4)
		dc.DrawRectangle(d.Rect.X, d.Rect.Y, d.Rect.W, d.Rect.H)
		dc.Stroke()
		dc.SetDash()
	}
}
