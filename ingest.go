package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Ingester turns a source file into slide pages. PDFs are rasterized with
// pdftoppm; images are decoded directly.
type Ingester struct {
	MaxDimension int
	ThumbWidth   int
	PdftoppmPath string
	DPI          int
}

func NewIngester(c *Config) *Ingester {
	return &Ingester{
		MaxDimension: c.MaxDimension,
		ThumbWidth:   c.ThumbnailWidth,
		PdftoppmPath: c.PdftoppmPath,
		DPI:          c.PDFDPI,
	}
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Load returns one page per PDF page, or a single page for an image.
func (in *Ingester) Load(ctx context.Context, path string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return in.loadPDF(ctx, path)
	case imageExtensions[ext]:
		img, err := decodeImageFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{in.page(img)}, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnsupportedInput, filepath.Base(path))
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (in *Ingester) page(img image.Image) Page {
	base := capDimension(img, in.MaxDimension)
	return Page{Base: base, Thumb: thumbnail(base, in.ThumbWidth)}
}

func (in *Ingester) loadPDF(ctx context.Context, path string) ([]Page, error) {
	dir, err := os.MkdirTemp("", "slidemask-pdf-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dpi := in.DPI
	if dpi <= 0 {
		dpi = 150
	}
	cmd := exec.CommandContext(ctx, in.PdftoppmPath, "-png", "-r", strconv.Itoa(dpi), path, filepath.Join(dir, "page"))
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Printf("pdftoppm: %s", strings.TrimSpace(string(output)))
		return nil, fmt.Errorf("rasterize %s: %w", filepath.Base(path), err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sortPageFiles(files)

	pages := make([]Page, 0, len(files))
	for _, f := range files {
		img, err := decodeImageFile(f)
		if err != nil {
			return nil, err
		}
		pages = append(pages, in.page(img))
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("rasterize %s: no pages produced", filepath.Base(path))
	}
	return pages, nil
}

// sortPageFiles orders pdftoppm output by page number. The zero padding of
// the numbers depends on the page count, so a plain string sort is not
// enough.
func sortPageFiles(files []string) {
	num := func(f string) int {
		base := strings.TrimSuffix(filepath.Base(f), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.Slice(files, func(i, j int) bool { return num(files[i]) < num(files[j]) })
}

// capDimension downscales img so neither side exceeds limit and converts it
// to RGBA. Images are never upscaled.
func capDimension(img image.Image, limit int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit > 0 && (w > limit || h > limit) {
		if w >= h {
			w, h = limit, max(1, h*limit/w)
		} else {
			w, h = max(1, w*limit/h), limit
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func thumbnail(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || b.Dx() <= width {
		return img
	}
	h := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
