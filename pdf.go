package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
)

const pdfFontFamily = "slidemask"

// pdfPlacement maps s at 0.75 pt per pixel. Text is set in the editor's
// own font, so the font size maps by the page scale alone.
func pdfPlacement(s *Slide) ExportPage {
	return placeSlide(s, float64(s.Width())*pdfPointsPerPixel, 1)
}

// encodePDF writes one page per slide, sized to the raster at 0.75 pt per
// pixel, with the base as a full-bleed image and the annotations on top.
// ttf is embedded for the text; empty selects Go Bold.
func encodePDF(ctx context.Context, slides []*Slide, ttf []byte) ([]byte, error) {
	if len(ttf) == 0 {
		ttf = gobold.TTF
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: 612, Ht: 792},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(0)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", ttf)

	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := pdfPlacement(s)
		if err := addPDFPage(pdf, fmt.Sprintf("slide%d", i+1), page); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPDFPage(pdf *gofpdf.Fpdf, name string, page ExportPage) error {
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.Width, Ht: page.Height})

	data, err := encodeImagePNG(page.Image)
	if err != nil {
		return fmt.Errorf("encode base: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	pdf.ImageOptions(name, 0, 0, page.Width, page.Height, false, opts, 0, "")

	for _, sh := range page.Shapes {
		c := mustColor(sh.Color)
		switch sh.Kind {
		case KindMask:
			pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
			pdf.Rect(sh.Rect.X, sh.Rect.Y, sh.Rect.W, sh.Rect.H, "F")
		case KindText:
			if sh.Text == "" || sh.FontSize <= 0 {
				continue
			}
			pdf.SetFont(pdfFontFamily, "", sh.FontSize)
			pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
			pdf.SetXY(sh.Rect.X, sh.Rect.Y)
			pdf.MultiCell(sh.Rect.W, sh.FontSize*lineHeight, sh.Text, "", "L", false)
		}
	}
	return pdf.Error()
}
