package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"regexp"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/text/unicode/norm"
)

// Recognition is what an OCR engine returns for one region: the text and,
// when the engine provides them, per-line bounding boxes in region pixels.
type Recognition struct {
	Text  string
	Lines []image.Rectangle
}

// Recognizer runs OCR over an isolated image. Calls are independent of each
// other.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, languages []string) (Recognition, error)
}

// ScanJob is a cropped region waiting for OCR. It holds its own copy of the
// pixels so it can run off the interaction thread.
type ScanJob struct {
	SlideID   SlideID
	Region    Rect
	Languages []string
	FontScale float64
	crop      *image.RGBA
}

// ScanResult is the post-processed outcome of a ScanJob, ready to be
// committed as a text object.
type ScanResult struct {
	SlideID  SlideID
	Region   Rect
	Text     string
	Color    string
	FontSize float64
}

func (j *ScanJob) Run(ctx context.Context, rec Recognizer) (ScanResult, error) {
	res := ScanResult{SlideID: j.SlideID, Region: j.Region}
	out, err := rec.Recognize(ctx, j.crop, j.Languages)
	if err != nil {
		return res, fmt.Errorf("recognize region: %w", err)
	}
	res.Text = normalizeOCRText(out.Text)
	if res.Text == "" {
		return res, nil
	}
	res.FontSize = calibrateFontSize(out.Lines, j.FontScale)
	res.Color = estimateTextColor(j.crop)
	return res, nil
}

// cropRegion copies r out of base into a new image whose origin is the
// region's top-left corner.
func cropRegion(base image.Image, r Rect) *image.RGBA {
	b := base.Bounds()
	src := image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)),
		int(math.Ceil(r.Y+r.H)),
	).Add(b.Min).Intersect(b)
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), base, src.Min, draw.Src)
	return dst
}

// Japanese and Chinese text carries no spaces between characters, but OCR
// engines insert them. ー is listed separately as it belongs to the Common
// script.
const cjkClass = `[\p{Han}\p{Hiragana}\p{Katakana}\x{3001}-\x{303F}\x{30FC}\x{FF01}-\x{FF60}]`

var (
	cjkCJKSpace   = regexp.MustCompile(`(` + cjkClass + `)[ \t\x{3000}]+(` + cjkClass + `)`)
	cjkLatinSpace = regexp.MustCompile(`(` + cjkClass + `)[ \t\x{3000}]+([A-Za-z0-9])`)
	latinCJKSpace = regexp.MustCompile(`([A-Za-z0-9])[ \t\x{3000}]+(` + cjkClass + `)`)
)

// normalizeOCRText removes spaces between CJK characters and reduces runs of
// spaces between CJK and Latin characters to a single space. Line breaks are
// kept.
func normalizeOCRText(s string) string {
	s = norm.NFC.String(s)
	for {
		next := cjkCJKSpace.ReplaceAllString(s, "${1}${2}")
		if next == s {
			break
		}
		s = next
	}
	s = cjkLatinSpace.ReplaceAllString(s, "${1} ${2}")
	s = latinCJKSpace.ReplaceAllString(s, "${1} ${2}")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\u3000")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// calibrateFontSize derives a font size from the mean OCR line height.
// Line boxes hug the glyphs, so they are scaled up by scale.
func calibrateFontSize(lines []image.Rectangle, scale float64) float64 {
	if len(lines) == 0 {
		return ocrFallbackFontSize
	}
	if scale <= 0 {
		scale = ocrFontScale
	}
	var sum float64
	for _, l := range lines {
		sum += float64(l.Dy())
	}
	size := math.Round(sum / float64(len(lines)) * scale)
	return math.Max(ocrMinFontSize, size)
}

type colorBucket struct{ r, g, b uint8 }

func bucketOf(c color.Color) colorBucket {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return colorBucket{n.R / colorBucketSize, n.G / colorBucketSize, n.B / colorBucketSize}
}

type colorTally struct {
	r, g, b, n int
}

// estimateTextColor treats every color seen on the border of img as
// background and returns the average of the most populated remaining color
// bucket. A region with no foreground pixels yields black.
func estimateTextColor(img image.Image) string {
	b := img.Bounds()
	if b.Empty() {
		return defaultTextColor
	}

	background := make(map[colorBucket]bool)
	for x := b.Min.X; x < b.Max.X; x++ {
		background[bucketOf(img.At(x, b.Min.Y))] = true
		background[bucketOf(img.At(x, b.Max.Y-1))] = true
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		background[bucketOf(img.At(b.Min.X, y))] = true
		background[bucketOf(img.At(b.Max.X-1, y))] = true
	}

	tallies := make(map[colorBucket]*colorTally)
	var order []colorBucket
	for y := b.Min.Y; y < b.Max.Y; y += colorSampleStride {
		for x := b.Min.X; x < b.Max.X; x += colorSampleStride {
			c := img.At(x, y)
			k := bucketOf(c)
			if background[k] {
				continue
			}
			t := tallies[k]
			if t == nil {
				t = &colorTally{}
				tallies[k] = t
				order = append(order, k)
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			t.r += int(n.R)
			t.g += int(n.G)
			t.b += int(n.B)
			t.n++
		}
	}

	var best *colorTally
	for _, k := range order {
		if t := tallies[k]; best == nil || t.n > best.n {
			best = t
		}
	}
	if best == nil {
		return defaultTextColor
	}
	return colorToHex(color.NRGBA{
		R: uint8(best.r / best.n),
		G: uint8(best.g / best.n),
		B: uint8(best.b / best.n),
		A: 0xff,
	})
}
