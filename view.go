package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e5e5e5")).
			Background(lipgloss.Color("#303030"))
	toolStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color(selectionColor)).
			Padding(0, 1)
	busyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ffcc00")).
			Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff453a")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#30d158"))
	activeSlide  = lipgloss.NewStyle().Bold(true).Reverse(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	surfaceBg    = color.NRGBA{R: 0x1c, G: 0x1c, B: 0x1e, A: 0xff}
)

// renderSurface draws the slide through the viewport onto a w by h surface.
// The renderer paints in raster coordinates; the context's transform does
// the mapping.
func renderSurface(r *Renderer, s *Slide, o Overlay, v Viewport, w, h int) *image.RGBA {
	dc := gg.NewContext(max(1, w), max(1, h))
	dc.SetColor(surfaceBg)
	dc.Clear()
	if s != nil {
		scale := v.Scale(s.Width(), s.Height())
		dc.Translate(v.PanX, v.PanY)
		dc.Scale(scale, scale)
		r.Draw(dc, s, o)
	}
	return dc.Image().(*image.RGBA)
}

// halfBlocks turns img into terminal rows. Every cell shows two vertically
// stacked pixels: the upper one as the foreground of '▀', the lower one as
// its background. Runs of identical cells share one style.
func halfBlocks(img image.Image, cols, rows int) []string {
	b := img.Bounds()
	at := func(x, y int) string {
		if x >= b.Dx() || y >= b.Dy() {
			return colorToHex(surfaceBg)
		}
		return colorToHex(img.At(b.Min.X+x, b.Min.Y+y))
	}

	lines := make([]string, rows)
	for row := 0; row < rows; row++ {
		var sb strings.Builder
		runFg, runBg, runLen := "", "", 0
		flush := func() {
			if runLen == 0 {
				return
			}
			st := lipgloss.NewStyle().
				Foreground(lipgloss.Color(runFg)).
				Background(lipgloss.Color(runBg))
			sb.WriteString(st.Render(strings.Repeat("▀", runLen)))
			runLen = 0
		}
		for col := 0; col < cols; col++ {
			fg, bg := at(col, row*2), at(col, row*2+1)
			if fg != runFg || bg != runBg {
				flush()
				runFg, runBg = fg, bg
			}
			runLen++
		}
		flush()
		lines[row] = sb.String()
	}
	return lines
}

// slideStrip renders every thumbnail side by side, each scaled into a box
// of cellW columns and rows terminal rows.
func slideStrip(doc *Document, active, width, rows int) []string {
	n := doc.Len()
	if n == 0 || rows <= 0 {
		return nil
	}
	cellW := min(24, max(6, width/n-1))
	out := make([]string, rows+1)
	for i, s := range doc.Slides() {
		if (i+1)*(cellW+1) > width {
			break
		}
		thumb := image.NewRGBA(image.Rect(0, 0, cellW, rows*2))
		draw.Draw(thumb, thumb.Bounds(), image.NewUniform(surfaceBg), image.Point{}, draw.Src)
		if s.Thumb != nil {
			fitInto(thumb, s.Thumb)
		}
		for r, line := range halfBlocks(thumb, cellW, rows) {
			out[r] += line + " "
		}
		label := fmt.Sprintf("%-*d", cellW, i+1)
		if i == active {
			label = activeSlide.Render(label)
		}
		out[rows] += label + " "
	}
	return out
}

func fitInto(dst *image.RGBA, src image.Image) {
	db, sb := dst.Bounds(), src.Bounds()
	scale := min(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	w, h := max(1, int(float64(sb.Dx())*scale)), max(1, int(float64(sb.Dy())*scale))
	target := image.Rect(0, 0, w, h).Add(image.Pt((db.Dx()-w)/2, (db.Dy()-h)/2))
	draw.ApproxBiLinear.Scale(dst, target, src, sb, draw.Over, nil)
}

// busyLabels names every background job still running.
func busyLabels(e *Editor) []string {
	var labels []string
	if e.Scanning() {
		labels = append(labels, busyStyle.Render("SCANNING"))
	}
	if e.Exporting() {
		labels = append(labels, busyStyle.Render("EXPORTING"))
	}
	return labels
}

func (m model) statusLine() string {
	e := m.editor
	parts := []string{toolStyle.Render(strings.ToUpper(m.modeString()))}
	parts = append(parts, busyLabels(e)...)
	if m.loading {
		parts = append(parts, busyStyle.Render("LOADING"))
	}

	if doc := e.Document(); doc.Len() > 0 {
		s := e.Slide()
		parts = append(parts,
			fmt.Sprintf("Slide %d/%d", e.ActiveIndex()+1, doc.Len()),
			fmt.Sprintf("%.0f%%", e.View().Scale(s.Width(), s.Height())*100),
			fmt.Sprintf("Objects %d", s.Len()),
		)
		if sel := s.Object(e.Selected()); sel != nil {
			parts = append(parts, fmt.Sprintf("Selected: %s %.0fx%.0f", sel.Kind, sel.Rect.W, sel.Rect.H))
		}
		parts = append(parts, fmt.Sprintf("Mask %s Text %s", e.MaskColor(), e.TextColor()))
		if e.SpaceHeld() {
			parts = append(parts, "PAN")
		}
	}

	n := e.Notice()
	switch {
	case n.Text != "" && n.Error:
		parts = append(parts, errorStyle.Render("ERROR: "+n.Text))
	case n.Text != "":
		parts = append(parts, successStyle.Render(n.Text))
	default:
		parts = append(parts, "? for help | q to quit")
	}
	return statusStyle.Width(max(1, m.width)).Render(strings.Join(parts, " | "))
}

// promptLine shows the pending input prompt, or the text under edit.
func (m model) promptLine() string {
	switch m.mode {
	case ModeInput:
		return fmt.Sprintf("%s: %s█", m.inputOp.prompt(), m.input)
	case ModeConfirm:
		return m.confirmAction.prompt() + " (y/n)"
	case ModeTextEdit:
		text, _ := m.editor.EditingText()
		return "Editing: " + strings.ReplaceAll(text, "\n", "⏎") + "█  (Esc to finish)"
	}
	return ""
}
