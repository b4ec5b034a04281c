package main

import (
	"image"
	"slices"
)

func NewSlide(base, thumb image.Image) *Slide {
	return &Slide{
		ID:      newSlideID(),
		Base:    base,
		Thumb:   thumb,
		objects: make(map[ObjectID]*Annotation),
	}
}

func NewDocument(pages []Page) *Document {
	d := &Document{}
	for _, p := range pages {
		d.AppendSlide(NewSlide(p.Base, p.Thumb))
	}
	return d
}

func (d *Document) Len() int { return len(d.slides) }

func (d *Document) Slides() []*Slide { return d.slides }

// Slide returns the slide at index i, or nil when i is out of range.
func (d *Document) Slide(i int) *Slide {
	if i < 0 || i >= len(d.slides) {
		return nil
	}
	return d.slides[i]
}

func (d *Document) SlideByID(id SlideID) *Slide {
	if i := d.IndexOf(id); i >= 0 {
		return d.slides[i]
	}
	return nil
}

func (d *Document) IndexOf(id SlideID) int {
	return slices.IndexFunc(d.slides, func(s *Slide) bool { return s.ID == id })
}

func (d *Document) AppendSlide(s *Slide) {
	d.slides = append(d.slides, s)
}

func (d *Document) InsertSlide(i int, s *Slide) {
	i = max(0, min(i, len(d.slides)))
	d.slides = slices.Insert(d.slides, i, s)
}

func (d *Document) RemoveSlide(id SlideID) bool {
	i := d.IndexOf(id)
	if i < 0 {
		return false
	}
	d.slides = slices.Delete(d.slides, i, i+1)
	return true
}

// MoveSlide relocates the slide with the given id to index to.
func (d *Document) MoveSlide(id SlideID, to int) bool {
	i := d.IndexOf(id)
	if i < 0 {
		return false
	}
	s := d.slides[i]
	d.slides = slices.Delete(d.slides, i, i+1)
	to = max(0, min(to, len(d.slides)))
	d.slides = slices.Insert(d.slides, to, s)
	return true
}

func (s *Slide) Width() int  { return s.Base.Bounds().Dx() }
func (s *Slide) Height() int { return s.Base.Bounds().Dy() }

func (s *Slide) Len() int { return len(s.order) }

// Object returns the live object with the given id, or nil.
func (s *Slide) Object(id ObjectID) *Annotation {
	return s.objects[id]
}

// Objects returns the live objects in paint order.
func (s *Slide) Objects() []*Annotation {
	out := make([]*Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.objects[id])
	}
	return out
}

func (s *Slide) indexOf(id ObjectID) int {
	return slices.Index(s.order, id)
}

// Add appends a copy of a to the slide, assigning a fresh identity when a has
// none, and returns the stored object.
func (s *Slide) Add(a Annotation) *Annotation {
	if a.ID == "" || s.objects[a.ID] != nil {
		a.ID = newObjectID()
	}
	obj := &a
	s.objects[obj.ID] = obj
	s.order = append(s.order, obj.ID)
	return obj
}

// Update applies fn to the object with the given id.
func (s *Slide) Update(id ObjectID, fn func(*Annotation)) bool {
	obj := s.objects[id]
	if obj == nil {
		return false
	}
	fn(obj)
	return true
}

func (s *Slide) Delete(id ObjectID) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.order = slices.Delete(s.order, i, i+1)
	delete(s.objects, id)
	return true
}

// BringToFront moves the object to the end of the paint order. It reports
// whether the order changed.
func (s *Slide) BringToFront(id ObjectID) bool {
	i := s.indexOf(id)
	if i < 0 || i == len(s.order)-1 {
		return false
	}
	s.order = append(slices.Delete(s.order, i, i+1), id)
	return true
}

// Duplicate copies the object under a new identity and places the copy
// directly after the original in paint order.
func (s *Slide) Duplicate(id ObjectID) *Annotation {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	dup := *s.objects[id]
	dup.ID = newObjectID()
	obj := &dup
	s.objects[obj.ID] = obj
	s.order = slices.Insert(s.order, i+1, obj.ID)
	return obj
}

// HitTest returns the topmost object containing p.
func (s *Slide) HitTest(p Point) *Annotation {
	for i := len(s.order) - 1; i >= 0; i-- {
		obj := s.objects[s.order[i]]
		if obj.Rect.Contains(p) {
			return obj
		}
	}
	return nil
}

// annotations returns a deep copy of the annotation layer in paint order.
func (s *Slide) annotations() []Annotation {
	out := make([]Annotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.objects[id])
	}
	return out
}

// setAnnotations replaces the annotation layer with copies of objs.
func (s *Slide) setAnnotations(objs []Annotation) {
	s.order = make([]ObjectID, 0, len(objs))
	s.objects = make(map[ObjectID]*Annotation, len(objs))
	for _, a := range objs {
		obj := a
		s.objects[obj.ID] = &obj
		s.order = append(s.order, obj.ID)
	}
}

// clone copies the annotation layer; the raster base is shared since it is
// never mutated.
func (s *Slide) clone() *Slide {
	c := &Slide{ID: s.ID, Base: s.Base, Thumb: s.Thumb}
	c.setAnnotations(s.annotations())
	return c
}
