package main

import "math"

type Point struct {
	X, Y float64
}

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Degenerate reports whether r is too small to be committed as an object.
func (r Rect) Degenerate(limit float64) bool {
	return r.W < limit || r.H < limit
}

func (r Rect) Scale(s float64) Rect {
	return Rect{X: r.X * s, Y: r.Y * s, W: r.W * s, H: r.H * s}
}

// normalizeRect builds a non-negative rectangle spanning a and b regardless
// of drag direction.
func normalizeRect(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

var allHandles = [...]Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// handleAnchors returns the centre of each of the eight resize handles, in
// the order of allHandles.
func handleAnchors(r Rect) [8]Point {
	cx := r.X + r.W/2
	cy := r.Y + r.H/2
	return [8]Point{
		{r.X, r.Y},
		{cx, r.Y},
		{r.Right(), r.Y},
		{r.Right(), cy},
		{r.Right(), r.Bottom()},
		{cx, r.Bottom()},
		{r.X, r.Bottom()},
		{r.X, cy},
	}
}

func handleBox(anchor Point, size float64) Rect {
	return Rect{X: anchor.X - size/2, Y: anchor.Y - size/2, W: size, H: size}
}

// hitHandle returns the first handle of r whose hit box of the given size
// contains p, or HandleNone.
func hitHandle(r Rect, p Point, size float64) Handle {
	for i, a := range handleAnchors(r) {
		if handleBox(a, size).Contains(p) {
			return allHandles[i]
		}
	}
	return HandleNone
}

// resizeRect moves the edges named by h to p. The edge opposite to a moving
// edge stays fixed and the result never shrinks below floor on either axis.
func resizeRect(r Rect, h Handle, p Point, floor float64) Rect {
	out := r
	switch h {
	case HandleE, HandleNE, HandleSE:
		out.W = math.Max(floor, p.X-r.X)
	case HandleW, HandleNW, HandleSW:
		right := r.Right()
		x := math.Min(p.X, right-floor)
		out.X = x
		out.W = right - x
	}
	switch h {
	case HandleS, HandleSE, HandleSW:
		out.H = math.Max(floor, p.Y-r.Y)
	case HandleN, HandleNW, HandleNE:
		bottom := r.Bottom()
		y := math.Min(p.Y, bottom-floor)
		out.Y = y
		out.H = bottom - y
	}
	return out
}
