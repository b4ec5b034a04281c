package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var (
	errNothingToExport   = errors.New("nothing to export")
	errBusy              = errors.New("another operation is running")
	errUnsupportedFormat = errors.New("unsupported export format")
	errUnsupportedInput  = errors.New("unsupported input file")
)

// parseExportFormat accepts a format name or a file extension.
func parseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "pptx":
		return FormatPPTX, nil
	case "pdf":
		return FormatPDF, nil
	case "png":
		return FormatPNG, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnsupportedFormat, s)
}

// PlacedShape is an annotation mapped into the target's units.
type PlacedShape struct {
	Kind     ObjectKind
	Rect     Rect
	Color    string
	Text     string
	FontSize float64
}

// ExportPage is one slide ready for an encoder: the full-bleed base plus its
// shapes in paint order.
type ExportPage struct {
	Image  image.Image
	Width  float64
	Height float64
	Shapes []PlacedShape
}

// placeSlide maps s onto a page targetWidth units wide. Geometry is scaled
// uniformly by targetWidth over the raster width; font sizes are scaled
// again by fontFactor to reach the target's font unit.
func placeSlide(s *Slide, targetWidth, fontFactor float64) ExportPage {
	scale := targetWidth / float64(s.Width())
	page := ExportPage{
		Image:  s.Base,
		Width:  targetWidth,
		Height: float64(s.Height()) * scale,
	}
	for _, a := range s.Objects() {
		shape := PlacedShape{
			Kind:  a.Kind,
			Rect:  a.Rect.Scale(scale),
			Color: a.Color,
		}
		if a.Kind == KindText {
			shape.Text = a.Text
			shape.FontSize = a.FontSize * scale * fontFactor
			shape.Rect.H = max(shape.Rect.H, a.FontSize*scale*lineHeight)
		}
		page.Shapes = append(page.Shapes, shape)
	}
	return page
}

type ExportOptions struct {
	// FontScale corrects PPTX font sizes to match the proportions seen in
	// the editor. PDF and PNG draw with the editor's own font and need no
	// correction.
	FontScale float64
	// FontData is the TrueType font for text in PDF and PNG output. Empty
	// selects Go Bold.
	FontData []byte
}

// ExportSlides encodes slides into path. Nothing is written unless every
// slide encodes successfully.
func ExportSlides(ctx context.Context, slides []*Slide, format ExportFormat, path string, opts ExportOptions) error {
	if len(slides) == 0 {
		return errNothingToExport
	}
	if opts.FontScale <= 0 {
		opts.FontScale = exportFontScale
	}

	var data []byte
	var err error
	switch format {
	case FormatPPTX:
		data, err = encodePPTX(ctx, slides, opts)
	case FormatPDF:
		data, err = encodePDF(ctx, slides, opts.FontData)
	case FormatPNG:
		return encodePNGs(ctx, slides, path, opts.FontData)
	default:
		return fmt.Errorf("%w: %v", errUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// pngPaths names one output file per slide. A single slide keeps path as
// is; several slides get a two-digit suffix.
func pngPaths(path string, n int) []string {
	if n == 1 {
		return []string{path}
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".png"
	}
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s-%02d%s", stem, i+1, ext)
	}
	return paths
}

// encodePNGs rasterizes every slide without overlays at its native size.
func encodePNGs(ctx context.Context, slides []*Slide, path string, ttf []byte) error {
	r, err := NewRendererFromTTF(ttf)
	if err != nil {
		return err
	}
	encoded := make([][]byte, len(slides))
	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, r.Image(s, Overlay{})); err != nil {
			return fmt.Errorf("encode slide %d: %w", i+1, err)
		}
		encoded[i] = buf.Bytes()
	}

	paths := pngPaths(path, len(slides))
	for i, p := range paths {
		if err := writeFileAtomic(p, encoded[i]); err != nil {
			for _, written := range paths[:i] {
				os.Remove(written)
			}
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}

// ExportJob is an export captured from the editor. Its slides are copies,
// so it can run while editing continues.
type ExportJob struct {
	Slides  []*Slide
	Format  ExportFormat
	Path    string
	Options ExportOptions
}

func (j *ExportJob) Run(ctx context.Context) (string, error) {
	log.Printf("export: %d slide(s) as %s to %s", len(j.Slides), j.Format, j.Path)
	if err := ExportSlides(ctx, j.Slides, j.Format, j.Path, j.Options); err != nil {
		return j.Path, err
	}
	return j.Path, nil
}

// encodeImagePNG is shared by the container encoders, which embed bases as
// PNG.
func encodeImagePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
