package main

import "math"

// Viewport maps raster pixels of the active slide onto the view surface.
// Zoom zero is the fit sentinel: the slide is scaled to fit the surface.
type Viewport struct {
	Zoom   float64
	PanX   float64
	PanY   float64
	Width  int
	Height int
}

// Scale returns the effective screen pixels per raster pixel.
func (v Viewport) Scale(imgW, imgH int) float64 {
	if v.Zoom > 0 {
		return v.Zoom
	}
	if imgW <= 0 || imgH <= 0 || v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return math.Min(float64(v.Width)/float64(imgW), float64(v.Height)/float64(imgH))
}

func (v Viewport) ScreenToRaster(p Point, imgW, imgH int) Point {
	s := v.Scale(imgW, imgH)
	return Point{X: (p.X - v.PanX) / s, Y: (p.Y - v.PanY) / s}
}

func (v Viewport) RasterToScreen(p Point, imgW, imgH int) Point {
	s := v.Scale(imgW, imgH)
	return Point{X: p.X*s + v.PanX, Y: p.Y*s + v.PanY}
}

func (v *Viewport) ZoomIn(imgW, imgH int) {
	v.setZoom(v.Scale(imgW, imgH) * zoomStep)
}

func (v *Viewport) ZoomOut(imgW, imgH int) {
	v.setZoom(v.Scale(imgW, imgH) / zoomStep)
}

func (v *Viewport) setZoom(z float64) {
	v.Zoom = math.Max(minZoom, math.Min(maxZoom, z))
}

// Fit returns to the fit sentinel and clears the pan offset.
func (v *Viewport) Fit() {
	v.Zoom = 0
	v.PanX, v.PanY = 0, 0
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// handlePanKey pans the view with the direction keys. Shifted keys move
// twice as far.
func (v *Viewport) handlePanKey(key string) bool {
	step := 4.0
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		step = 8
	}
	switch key {
	case "left", "shift+left", "H":
		v.PanBy(step, 0)
	case "right", "shift+right", "L":
		v.PanBy(-step, 0)
	case "up", "shift+up", "K":
		v.PanBy(0, step)
	case "down", "shift+down", "J":
		v.PanBy(0, -step)
	default:
		return false
	}
	return true
}
