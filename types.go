package main

import (
	"image"

	"github.com/google/uuid"
)

type SlideID string

type ObjectID string

func newSlideID() SlideID   { return SlideID(uuid.NewString()) }
func newObjectID() ObjectID { return ObjectID(uuid.NewString()) }

// Annotation is a mask or text overlay. Geometry is in raster pixels of the
// slide that owns it.
type Annotation struct {
	ID       ObjectID   `json:"id"`
	Kind     ObjectKind `json:"kind"`
	Rect     Rect       `json:"rect"`
	Color    string     `json:"color"`
	Text     string     `json:"text,omitempty"`
	FontSize float64    `json:"fontSize,omitempty"`
}

// Slide owns an immutable raster base and an ordered set of annotations.
// Objects live in an arena keyed by identity; order holds the paint order,
// back to front.
type Slide struct {
	ID    SlideID
	Base  image.Image
	Thumb image.Image

	order   []ObjectID
	objects map[ObjectID]*Annotation
}

type Document struct {
	slides []*Slide
}

// Notice is the single human-readable message surfaced after a collaborator
// failure or a finished long-running operation.
type Notice struct {
	Text  string
	Error bool
}

// Page is one ingested page or image.
type Page struct {
	Base  image.Image
	Thumb image.Image
}
