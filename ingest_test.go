package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestIngestImage(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
		thumbW       int
	}{
		{"landscape capped", 3000, 1500, 2000, 1000, 160},
		{"portrait capped", 1000, 4000, 500, 2000, 160},
		{"small kept", 800, 600, 800, 600, 160},
		{"smaller than thumb", 100, 50, 100, 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "page.png")
			writePNG(t, path, uniformImage(tt.w, tt.h, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))

			in := NewIngester(defaultConfig())
			pages, err := in.Load(context.Background(), path)
			if err != nil {
				t.Fatal(err)
			}
			if len(pages) != 1 {
				t.Fatalf("pages = %d, want 1", len(pages))
			}
			b := pages[0].Base.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("base = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if _, ok := pages[0].Base.(*image.RGBA); !ok {
				t.Errorf("base is %T, want *image.RGBA", pages[0].Base)
			}
			if tb := pages[0].Thumb.Bounds(); tb.Dx() != tt.thumbW {
				t.Errorf("thumb width = %d, want %d", tb.Dx(), tt.thumbW)
			}
		})
	}
}

func TestIngestRejects(t *testing.T) {
	in := NewIngester(defaultConfig())
	if _, err := in.Load(context.Background(), "notes.docx"); !errors.Is(err, errUnsupportedInput) {
		t.Errorf("docx err = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Load(context.Background(), bad); err == nil {
		t.Error("corrupt image accepted")
	}
}

func TestSortPageFiles(t *testing.T) {
	files := []string{"d/page-10.png", "d/page-2.png", "d/page-1.png", "d/page-03.png"}
	sortPageFiles(files)
	want := []string{"d/page-1.png", "d/page-2.png", "d/page-03.png", "d/page-10.png"}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestIngestPDF(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "deck.pdf")
	slides := []*Slide{newTestSlide(400, 300), newTestSlide(300, 400)}
	if err := ExportSlides(context.Background(), slides, FormatPDF, src, ExportOptions{}); err != nil {
		t.Fatal(err)
	}

	// 0.75 pt per pixel at 96 dpi maps every page back to its raster size.
	in := &Ingester{MaxDimension: 2000, ThumbWidth: 80, PdftoppmPath: "pdftoppm", DPI: 96}
	pages, err := in.Load(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	for i, p := range pages {
		b := p.Base.Bounds()
		if abs(b.Dx()-slides[i].Width()) > 1 || abs(b.Dy()-slides[i].Height()) > 1 {
			t.Errorf("page %d = %v, want about %dx%d", i+1, b, slides[i].Width(), slides[i].Height())
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
