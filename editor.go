package main

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"
)

// PointerEvent is a pointer position in view-surface pixels. Duplicate is
// set when the duplicate modifier is held.
type PointerEvent struct {
	X, Y      float64
	Duplicate bool
}

func (ev PointerEvent) point() Point { return Point{X: ev.X, Y: ev.Y} }

// A gesture is the transient state of one pointer interaction. Each variant
// carries only what its tool needs.
type gesture interface{ isGesture() }

type dragGesture struct {
	id     ObjectID
	offset Point
	dirty  bool
}

type resizeGesture struct {
	id     ObjectID
	handle Handle
	dirty  bool
}

type draftGesture struct {
	tool  Tool
	start Point
	rect  Rect
	color string
}

type panGesture struct {
	origin     Point
	panX, panY float64
}

func (*dragGesture) isGesture()   {}
func (*resizeGesture) isGesture() {}
func (*draftGesture) isGesture()  {}
func (*panGesture) isGesture()    {}

// Editor is the editing session: the document, its history, and the
// ephemeral tool state. Every mutation goes through its methods and runs on
// the single interaction thread.
type Editor struct {
	doc      *Document
	history  *History
	renderer *Renderer
	config   *Config

	active    int
	tool      Tool
	spaceHeld bool
	selected  ObjectID
	editing   ObjectID
	editStart string
	maskColor string
	textColor string
	family    ObjectKind
	gesture   gesture
	view      Viewport

	scanning  bool
	scanSlide SlideID
	exporting bool
	notice    Notice
}

func NewEditor(config *Config, renderer *Renderer) *Editor {
	if config == nil {
		config = defaultConfig()
	}
	e := &Editor{
		doc:       &Document{},
		history:   NewHistory(config.MaxHistory),
		renderer:  renderer,
		config:    config,
		maskColor: defaultMaskColor,
		textColor: defaultTextColor,
	}
	e.history.Reset(e.doc, 0)
	return e
}

// Load replaces the document with freshly ingested pages. The state right
// after loading is the floor of the undo history.
func (e *Editor) Load(pages []Page) {
	e.doc = NewDocument(pages)
	e.active = 0
	e.gesture = nil
	e.clearFocus()
	e.tool = ToolSelect
	e.view.Fit()
	e.history.Reset(e.doc, e.active)
}

// FinishLoad applies the outcome of an asynchronous ingestion. A failure
// leaves the current document untouched.
func (e *Editor) FinishLoad(pages []Page, err error) {
	if err != nil {
		log.Printf("ingest: %v", err)
		e.notify(true, "Could not load file: %v", err)
		return
	}
	if len(pages) == 0 {
		e.notify(true, "Could not load file: no pages found")
		return
	}
	e.Load(pages)
	e.notify(false, "Loaded %d slide(s)", len(pages))
}

func (e *Editor) Document() *Document { return e.doc }
func (e *Editor) History() *History   { return e.history }
func (e *Editor) Tool() Tool          { return e.tool }
func (e *Editor) Selected() ObjectID  { return e.selected }
func (e *Editor) Editing() ObjectID   { return e.editing }
func (e *Editor) ActiveIndex() int    { return e.active }
func (e *Editor) View() *Viewport     { return &e.view }
func (e *Editor) Notice() Notice      { return e.notice }
func (e *Editor) Scanning() bool      { return e.scanning }
func (e *Editor) Exporting() bool     { return e.exporting }
func (e *Editor) Busy() bool          { return e.scanning || e.exporting }
func (e *Editor) MaskColor() string   { return e.maskColor }
func (e *Editor) TextColor() string   { return e.textColor }

// Slide returns the active slide, or nil when nothing is loaded.
func (e *Editor) Slide() *Slide { return e.doc.Slide(e.active) }

// effectiveTool is the tool pointer input is interpreted with; a held space
// bar forces panning.
func (e *Editor) effectiveTool() Tool {
	if e.spaceHeld {
		return ToolPan
	}
	return e.tool
}

func (e *Editor) notify(isErr bool, format string, args ...any) {
	e.notice = Notice{Text: fmt.Sprintf(format, args...), Error: isErr}
}

func (e *Editor) ClearNotice() { e.notice = Notice{} }

func (e *Editor) snapshot() {
	e.history.Snapshot(e.doc, e.active)
}

func (e *Editor) clearFocus() {
	e.selected = ""
	e.editing = ""
	e.editStart = ""
}

func (e *Editor) toRaster(ev PointerEvent) Point {
	s := e.Slide()
	if s == nil {
		return ev.point()
	}
	return e.view.ScreenToRaster(ev.point(), s.Width(), s.Height())
}

// Overlay returns the session state the renderer shows on top of the
// active slide.
func (e *Editor) Overlay() Overlay {
	o := Overlay{Selected: e.selected, Editing: e.editing}
	if g, ok := e.gesture.(*draftGesture); ok {
		d := &Draft{Kind: draftMask, Rect: g.rect, Color: g.color}
		if g.tool == ToolScan {
			d.Kind = draftScan
		}
		o.Draft = d
	}
	return o
}

// SetTool switches the tool. A pending text edit is committed and any
// unfinished draft is dropped.
func (e *Editor) SetTool(t Tool) {
	e.CommitTextEdit()
	e.cancelGesture()
	e.tool = t
	switch t {
	case ToolDrawMask:
		e.family = KindMask
	case ToolDrawText:
		e.family = KindText
	}
}

// PointerDown starts a gesture according to the effective tool. A scan job
// is never returned here; scans start on PointerUp.
func (e *Editor) PointerDown(ev PointerEvent) {
	e.CommitTextEdit()
	slide := e.Slide()
	if slide == nil {
		return
	}
	p := e.toRaster(ev)

	switch e.effectiveTool() {
	case ToolPan:
		e.gesture = &panGesture{origin: ev.point(), panX: e.view.PanX, panY: e.view.PanY}
	case ToolSelect:
		e.pointerDownSelect(slide, p, ev.Duplicate)
	case ToolDrawMask:
		e.gesture = &draftGesture{tool: ToolDrawMask, start: p, rect: Rect{X: p.X, Y: p.Y}, color: e.maskColor}
	case ToolScan:
		if e.scanning {
			return
		}
		e.gesture = &draftGesture{tool: ToolScan, start: p, rect: Rect{X: p.X, Y: p.Y}, color: scanMarkerColor}
	case ToolDrawText:
		obj := slide.Add(Annotation{
			Kind:     KindText,
			Rect:     Rect{X: p.X, Y: p.Y, W: defaultTextWidth, H: defaultTextHeight},
			Color:    e.textColor,
			FontSize: defaultFontSize,
		})
		e.tool = ToolSelect
		e.snapshot()
		e.BeginTextEdit(obj.ID)
	case ToolEyedropper:
		e.pickColor(slide, p)
	}
}

func (e *Editor) pointerDownSelect(slide *Slide, p Point, duplicate bool) {
	if sel := slide.Object(e.selected); sel != nil {
		if h := hitHandle(sel.Rect, p, handleHitSize); h != HandleNone {
			e.gesture = &resizeGesture{id: sel.ID, handle: h}
			return
		}
	}

	hit := slide.HitTest(p)
	if hit == nil {
		e.clearFocus()
		return
	}
	g := &dragGesture{}
	if duplicate {
		hit = slide.Duplicate(hit.ID)
		g.dirty = true
	} else {
		g.dirty = slide.BringToFront(hit.ID)
	}
	g.id = hit.ID
	g.offset = Point{X: p.X - hit.Rect.X, Y: p.Y - hit.Rect.Y}
	e.selected = hit.ID
	e.gesture = g
}

// PointerMove advances the active gesture. Drag and resize mutate the live
// model directly; history is only touched when the gesture ends.
func (e *Editor) PointerMove(ev PointerEvent) {
	slide := e.Slide()
	if slide == nil || e.gesture == nil {
		return
	}
	p := e.toRaster(ev)

	switch g := e.gesture.(type) {
	case *panGesture:
		e.view.PanX = g.panX + ev.X - g.origin.X
		e.view.PanY = g.panY + ev.Y - g.origin.Y
	case *resizeGesture:
		slide.Update(g.id, func(a *Annotation) {
			if r := resizeRect(a.Rect, g.handle, p, minResizeSize); r != a.Rect {
				a.Rect = r
				g.dirty = true
			}
		})
	case *dragGesture:
		slide.Update(g.id, func(a *Annotation) {
			x, y := p.X-g.offset.X, p.Y-g.offset.Y
			if x != a.Rect.X || y != a.Rect.Y {
				a.Rect.X, a.Rect.Y = x, y
				g.dirty = true
			}
		})
	case *draftGesture:
		g.rect = normalizeRect(g.start, p)
	}
}

// PointerUp ends the active gesture. When it completes a scan region the
// returned job must be run and handed back through FinishScan.
func (e *Editor) PointerUp(ev PointerEvent) *ScanJob {
	e.PointerMove(ev)
	return e.finishGesture()
}

// PointerLeave ends the gesture exactly like PointerUp, without a final
// position update.
func (e *Editor) PointerLeave() *ScanJob {
	return e.finishGesture()
}

func (e *Editor) finishGesture() *ScanJob {
	g := e.gesture
	e.gesture = nil
	slide := e.Slide()
	if slide == nil {
		return nil
	}

	switch g := g.(type) {
	case *dragGesture:
		if g.dirty {
			e.snapshot()
		}
	case *resizeGesture:
		if g.dirty {
			e.snapshot()
		}
	case *draftGesture:
		switch g.tool {
		case ToolDrawMask:
			if g.rect.Degenerate(minObjectSize) {
				return nil
			}
			obj := slide.Add(Annotation{Kind: KindMask, Rect: g.rect, Color: g.color})
			e.selected = obj.ID
			e.snapshot()
		case ToolScan:
			return e.BeginScan(g.rect)
		}
	}
	return nil
}

// cancelGesture ends drags and resizes normally but drops drafts.
func (e *Editor) cancelGesture() {
	if _, ok := e.gesture.(*draftGesture); ok {
		e.gesture = nil
		return
	}
	e.finishGesture()
}

// DoubleClick opens in-place editing of the text object under the pointer.
func (e *Editor) DoubleClick(ev PointerEvent) {
	if e.effectiveTool() != ToolSelect {
		return
	}
	slide := e.Slide()
	if slide == nil {
		return
	}
	if hit := slide.HitTest(e.toRaster(ev)); hit != nil && hit.Kind == KindText {
		e.BeginTextEdit(hit.ID)
	}
}

func (e *Editor) pickColor(slide *Slide, p Point) {
	e.tool = ToolSelect
	x, y := int(p.X), int(p.Y)
	if x < 0 || y < 0 || x >= slide.Width() || y >= slide.Height() {
		return
	}
	surface := e.renderer.Image(slide, e.Overlay())
	e.SetColor(colorToHex(surface.At(x, y)))
}

// currentFamily is the color family a color change applies to: the kind of
// the selection, otherwise the last drawing tool used.
func (e *Editor) currentFamily() ObjectKind {
	if s := e.Slide(); s != nil {
		if sel := s.Object(e.selected); sel != nil {
			return sel.Kind
		}
	}
	return e.family
}

// SetColor remembers hex for the current family and applies it to the
// selection. Applying to a selection is one history step.
func (e *Editor) SetColor(hex string) error {
	c, err := normalizeHex(hex)
	if err != nil {
		return err
	}
	if e.currentFamily() == KindText {
		e.textColor = c
	} else {
		e.maskColor = c
	}
	slide := e.Slide()
	if slide == nil {
		return nil
	}
	changed := false
	slide.Update(e.selected, func(a *Annotation) {
		if a.Color != c {
			a.Color = c
			changed = true
		}
	})
	if changed {
		e.snapshot()
	}
	return nil
}

// SetFontSize changes the font size of the selected text object.
func (e *Editor) SetFontSize(size float64) bool {
	slide := e.Slide()
	if slide == nil || size <= 0 {
		return false
	}
	changed := false
	slide.Update(e.selected, func(a *Annotation) {
		if a.Kind == KindText && a.FontSize != size {
			a.FontSize = size
			changed = true
		}
	})
	if changed {
		e.snapshot()
	}
	return changed
}

// AdjustFontSize nudges the selected text object's font size by delta.
func (e *Editor) AdjustFontSize(delta float64) bool {
	slide := e.Slide()
	if slide == nil {
		return false
	}
	sel := slide.Object(e.selected)
	if sel == nil || sel.Kind != KindText {
		return false
	}
	return e.SetFontSize(max(1, sel.FontSize+delta))
}

// slideLocked reports whether destructive edits on the slide must wait for
// a running scan.
func (e *Editor) slideLocked(s *Slide) bool {
	return e.scanning && s != nil && s.ID == e.scanSlide
}

func (e *Editor) DeleteSelection() bool {
	slide := e.Slide()
	if slide == nil || e.selected == "" || e.slideLocked(slide) {
		return false
	}
	if !slide.Delete(e.selected) {
		return false
	}
	e.clearFocus()
	e.snapshot()
	return true
}

func (e *Editor) DuplicateSelection() bool {
	slide := e.Slide()
	if slide == nil {
		return false
	}
	dup := slide.Duplicate(e.selected)
	if dup == nil {
		return false
	}
	e.selected = dup.ID
	e.snapshot()
	return true
}

func (e *Editor) BringSelectionToFront() bool {
	slide := e.Slide()
	if slide == nil || !slide.BringToFront(e.selected) {
		return false
	}
	e.snapshot()
	return true
}

// BeginTextEdit opens in-place editing of a text object on the active
// slide.
func (e *Editor) BeginTextEdit(id ObjectID) bool {
	slide := e.Slide()
	if slide == nil {
		return false
	}
	obj := slide.Object(id)
	if obj == nil || obj.Kind != KindText {
		return false
	}
	e.selected = id
	e.editing = id
	e.editStart = obj.Text
	return true
}

// InsertText appends s to the object under edit. Typing mutates the live
// object; the session is recorded once, on commit.
func (e *Editor) InsertText(s string) {
	if slide := e.Slide(); slide != nil && e.editing != "" {
		slide.Update(e.editing, func(a *Annotation) { a.Text += s })
	}
}

func (e *Editor) DeleteBackward() {
	if slide := e.Slide(); slide != nil && e.editing != "" {
		slide.Update(e.editing, func(a *Annotation) {
			if _, size := utf8.DecodeLastRuneInString(a.Text); size > 0 {
				a.Text = a.Text[:len(a.Text)-size]
			}
		})
	}
}

// EditingText returns the content of the object under edit.
func (e *Editor) EditingText() (string, bool) {
	if slide := e.Slide(); slide != nil {
		if obj := slide.Object(e.editing); obj != nil {
			return obj.Text, true
		}
	}
	return "", false
}

// CommitTextEdit closes the in-place edit. A changed text is one history
// step. The object stays selected.
func (e *Editor) CommitTextEdit() {
	if e.editing == "" {
		return
	}
	text, ok := e.EditingText()
	changed := ok && text != e.editStart
	e.editing = ""
	e.editStart = ""
	if changed {
		e.snapshot()
	}
}

func (e *Editor) Undo() bool {
	e.CommitTextEdit()
	e.cancelGesture()
	active, ok := e.history.Undo(e.doc)
	if ok {
		e.afterRestore(active)
	}
	return ok
}

func (e *Editor) Redo() bool {
	e.CommitTextEdit()
	e.cancelGesture()
	active, ok := e.history.Redo(e.doc)
	if ok {
		e.afterRestore(active)
	}
	return ok
}

func (e *Editor) afterRestore(active int) {
	e.clearFocus()
	if active >= 0 && active < e.doc.Len() {
		e.active = active
	}
}

// SelectSlide makes slide i active. Selection and text edit do not carry
// over between slides.
func (e *Editor) SelectSlide(i int) bool {
	if i < 0 || i >= e.doc.Len() || i == e.active {
		return false
	}
	e.CommitTextEdit()
	e.cancelGesture()
	e.clearFocus()
	e.active = i
	e.view.Fit()
	return true
}

func (e *Editor) NextSlide() bool { return e.SelectSlide(e.active + 1) }
func (e *Editor) PrevSlide() bool { return e.SelectSlide(e.active - 1) }

// RemoveActiveSlide drops the active slide. Slides are not part of the
// annotation history, so this cannot be undone.
func (e *Editor) RemoveActiveSlide() bool {
	slide := e.Slide()
	if slide == nil || e.slideLocked(slide) {
		return false
	}
	e.CommitTextEdit()
	e.cancelGesture()
	e.clearFocus()
	e.doc.RemoveSlide(slide.ID)
	if e.active >= e.doc.Len() {
		e.active = max(0, e.doc.Len()-1)
	}
	return true
}

func (e *Editor) ZoomIn() {
	if s := e.Slide(); s != nil {
		e.view.ZoomIn(s.Width(), s.Height())
	}
}

func (e *Editor) ZoomOut() {
	if s := e.Slide(); s != nil {
		e.view.ZoomOut(s.Width(), s.Height())
	}
}

func (e *Editor) ZoomFit() { e.view.Fit() }

func (e *Editor) SetViewSize(w, h int) {
	e.view.Width, e.view.Height = w, h
}

// KeyDown handles an editing shortcut. It is inert while a text edit is
// open; the caller routes keys to the text instead. It reports whether the
// key was consumed.
func (e *Editor) KeyDown(key string) bool {
	if e.editing != "" {
		return false
	}
	switch key {
	case " ":
		e.spaceHeld = true
	case "delete", "backspace":
		e.DeleteSelection()
	case "ctrl+z", "u":
		e.Undo()
	case "ctrl+y", "ctrl+shift+z", "U":
		e.Redo()
	case "v":
		e.SetTool(ToolSelect)
	case "m":
		e.SetTool(ToolDrawMask)
	case "t":
		e.SetTool(ToolDrawText)
	case "i":
		e.SetTool(ToolEyedropper)
	case "s":
		e.SetTool(ToolScan)
	case "h":
		e.SetTool(ToolPan)
	case "+", "=":
		e.ZoomIn()
	case "-":
		e.ZoomOut()
	case "0":
		e.ZoomFit()
	case "f":
		e.BringSelectionToFront()
	case "ctrl+d":
		e.DuplicateSelection()
	case ">", ".":
		e.AdjustFontSize(2)
	case "<", ",":
		e.AdjustFontSize(-2)
	case "pgdown", "]":
		e.NextSlide()
	case "pgup", "[":
		e.PrevSlide()
	case "esc":
		e.cancelGesture()
		e.clearFocus()
	default:
		return false
	}
	return true
}

// KeyUp releases the temporary pan forced by the space bar.
func (e *Editor) KeyUp(key string) {
	if key == " " {
		e.spaceHeld = false
	}
}

func (e *Editor) SpaceHeld() bool { return e.spaceHeld }

// BeginScan crops region from the active slide and marks a scan as running.
// It returns nil when the region is too small or a scan is already running.
func (e *Editor) BeginScan(region Rect) *ScanJob {
	slide := e.Slide()
	if slide == nil || e.scanning || region.Degenerate(minScanSize) {
		return nil
	}
	e.scanning = true
	e.scanSlide = slide.ID
	return &ScanJob{
		SlideID:   slide.ID,
		Region:    region,
		Languages: e.config.OCRLanguages,
		FontScale: e.config.OCRFontScale,
		crop:      cropRegion(slide.Base, region),
	}
}

// FinishScan commits the outcome of a scan in one step. Empty text commits
// nothing; errors leave the document as it was.
func (e *Editor) FinishScan(res ScanResult, err error) {
	e.scanning = false
	e.scanSlide = ""
	if err != nil {
		log.Printf("ocr: %v", err)
		e.notify(true, "Text recognition failed: %v", err)
		return
	}
	if res.Text == "" {
		e.notify(false, "No text recognized")
		return
	}
	slide := e.doc.SlideByID(res.SlideID)
	if slide == nil {
		return
	}
	// A pending text edit gets its own entry before the scan result lands.
	e.CommitTextEdit()
	obj := slide.Add(Annotation{
		Kind:     KindText,
		Rect:     res.Region,
		Color:    res.Color,
		Text:     res.Text,
		FontSize: res.FontSize,
	})
	if slide == e.Slide() {
		e.selected = obj.ID
	}
	e.tool = ToolSelect
	e.snapshot()
}

// ScanRegion runs the whole OCR pipeline synchronously.
func (e *Editor) ScanRegion(ctx context.Context, region Rect, rec Recognizer) bool {
	job := e.BeginScan(region)
	if job == nil {
		return false
	}
	e.FinishScan(job.Run(ctx, rec))
	return true
}

// BeginExport captures the slides to export. The copies are independent of
// later edits so the job can run off the interaction thread.
func (e *Editor) BeginExport(format ExportFormat, path string, activeOnly bool) *ExportJob {
	if e.exporting || e.doc.Len() == 0 {
		return nil
	}
	var slides []*Slide
	if activeOnly {
		if s := e.Slide(); s != nil {
			slides = append(slides, s.clone())
		}
	} else {
		for _, s := range e.doc.Slides() {
			slides = append(slides, s.clone())
		}
	}
	e.exporting = true
	return &ExportJob{
		Slides: slides,
		Format: format,
		Path:   path,
		Options: ExportOptions{
			FontScale: e.config.ExportFontScale,
			FontData:  e.fontData(),
		},
	}
}

func (e *Editor) fontData() []byte {
	if e.renderer == nil {
		return nil
	}
	return e.renderer.TTF()
}

func (e *Editor) FinishExport(path string, err error) {
	e.exporting = false
	if err != nil {
		log.Printf("export: %v", err)
		e.notify(true, "Export failed: %v", err)
		return
	}
	e.notify(false, "Exported %s", path)
}
