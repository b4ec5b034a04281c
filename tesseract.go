package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs OCR through the gosseract client. A new client is
// created per call so invocations share no state.
type TesseractRecognizer struct {
	clientFactory func() *gosseract.Client
}

func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{clientFactory: gosseract.NewClient}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image, languages []string) (Recognition, error) {
	select {
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Recognition{}, fmt.Errorf("encode region: %w", err)
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return Recognition{}, fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}

	out := Recognition{Text: strings.TrimSpace(text)}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil {
		for _, b := range boxes {
			if !b.Box.Empty() {
				out.Lines = append(out.Lines, b.Box)
			}
		}
	}
	return out, nil
}

// splitLanguages turns a tesseract style "jpn+eng" list into its parts.
func splitLanguages(s string) []string {
	var langs []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
		langs = append(langs, l)
	}
	return langs
}
