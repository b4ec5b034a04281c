package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeRecognizer struct {
	out   Recognition
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, languages []string) (Recognition, error) {
	f.calls++
	return f.out, f.err
}

func newTestEditor(t *testing.T, base image.Image) *Editor {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEditor(defaultConfig(), r)
	e.Load([]Page{{Base: base}})
	return e
}

func drag(e *Editor, x0, y0, x1, y1 float64) *ScanJob {
	e.PointerDown(PointerEvent{X: x0, Y: y0})
	e.PointerMove(PointerEvent{X: (x0 + x1) / 2, Y: (y0 + y1) / 2})
	return e.PointerUp(PointerEvent{X: x1, Y: y1})
}

func drawMask(t *testing.T, e *Editor, x0, y0, x1, y1 float64) *Annotation {
	t.Helper()
	e.SetTool(ToolDrawMask)
	drag(e, x0, y0, x1, y1)
	obj := e.Slide().Object(e.Selected())
	if obj == nil {
		t.Fatal("no mask committed")
	}
	e.SetTool(ToolSelect)
	return obj
}

func TestDrawBelowThresholdCommitsNothing(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	e.SetTool(ToolDrawMask)
	drag(e, 10, 10, 14, 80)
	drag(e, 10, 10, 80, 12)

	if n := e.Slide().Len(); n != 0 {
		t.Errorf("objects = %d, want 0", n)
	}
	if n := e.History().Len(); n != 1 {
		t.Errorf("history entries = %d, want 1", n)
	}
}

func TestDrawMask(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	e.SetTool(ToolDrawMask)
	if o := e.Overlay(); o.Draft != nil {
		t.Fatal("draft before any gesture")
	}
	e.PointerDown(PointerEvent{X: 300, Y: 200})
	e.PointerMove(PointerEvent{X: 100, Y: 100})
	if d := e.Overlay().Draft; d == nil || d.Rect != (Rect{100, 100, 200, 100}) {
		t.Fatalf("draft = %+v", d)
	}
	e.PointerUp(PointerEvent{X: 100, Y: 100})

	objs := e.Slide().Objects()
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	want := Annotation{ID: objs[0].ID, Kind: KindMask, Rect: Rect{100, 100, 200, 100}, Color: defaultMaskColor}
	if diff := cmp.Diff(want, *objs[0]); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
	if e.Selected() != objs[0].ID {
		t.Error("new mask is not selected")
	}
	if e.Overlay().Draft != nil {
		t.Error("draft survived pointer up")
	}
	if e.History().Len() != 2 {
		t.Errorf("history entries = %d, want 2", e.History().Len())
	}
}

func TestResizeWestHandleKeepsRightEdge(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	obj := drawMask(t, e, 100, 100, 300, 200)
	entries := e.History().Len()

	e.PointerDown(PointerEvent{X: 100, Y: 150})
	for _, x := range []float64{250, 400, 20, 295} {
		e.PointerMove(PointerEvent{X: x, Y: 170})
		if r := obj.Rect.Right(); r != 300 {
			t.Fatalf("x=%v: right edge moved to %v", x, r)
		}
		if obj.Rect.W < minResizeSize {
			t.Fatalf("x=%v: width %v below floor", x, obj.Rect.W)
		}
		if obj.Rect.Y != 100 || obj.Rect.H != 100 {
			t.Fatalf("x=%v: vertical geometry changed: %+v", x, obj.Rect)
		}
	}
	e.PointerUp(PointerEvent{X: 295, Y: 170})
	if e.History().Len() != entries+1 {
		t.Errorf("history entries = %d, want %d", e.History().Len(), entries+1)
	}
}

func TestDragMovesObject(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	obj := drawMask(t, e, 100, 100, 300, 200)
	entries := e.History().Len()

	drag(e, 150, 150, 170, 160)
	if want := (Rect{120, 110, 200, 100}); obj.Rect != want {
		t.Errorf("rect = %+v, want %+v", obj.Rect, want)
	}
	if e.History().Len() != entries+1 {
		t.Errorf("history entries = %d, want %d", e.History().Len(), entries+1)
	}

	e.Undo()
	got := e.Slide().Objects()[0].Rect
	if want := (Rect{100, 100, 200, 100}); got != want {
		t.Errorf("after undo rect = %+v, want %+v", got, want)
	}
	if e.Selected() != "" {
		t.Error("undo kept the selection")
	}
}

func TestPointerLeaveEndsDrag(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	obj := drawMask(t, e, 100, 100, 300, 200)
	entries := e.History().Len()

	e.PointerDown(PointerEvent{X: 150, Y: 150})
	e.PointerMove(PointerEvent{X: 170, Y: 160})
	if job := e.PointerLeave(); job != nil {
		t.Error("drag produced a scan job")
	}
	if e.gesture != nil {
		t.Errorf("gesture %T survived pointer leave", e.gesture)
	}
	if got := e.History().Len(); got != entries+1 {
		t.Errorf("history entries = %d, want %d", got, entries+1)
	}

	want := obj.Rect
	e.PointerMove(PointerEvent{X: 500, Y: 400})
	if obj.Rect != want {
		t.Errorf("object moved after pointer leave: %+v, want %+v", obj.Rect, want)
	}
	if got := e.History().Len(); got != entries+1 {
		t.Errorf("history entries after stray move = %d, want %d", got, entries+1)
	}
}

func TestClickWithoutMoveTakesNoSnapshot(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	drawMask(t, e, 100, 100, 300, 200)
	entries := e.History().Len()

	e.PointerDown(PointerEvent{X: 150, Y: 150})
	e.PointerUp(PointerEvent{X: 150, Y: 150})
	if e.History().Len() != entries {
		t.Errorf("history entries = %d, want %d", e.History().Len(), entries)
	}

	e.PointerDown(PointerEvent{X: 900, Y: 500})
	e.PointerUp(PointerEvent{X: 900, Y: 500})
	if e.Selected() != "" {
		t.Error("clicking empty space kept the selection")
	}
}

func TestDuplicateDrag(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	orig := drawMask(t, e, 100, 100, 300, 200)

	e.PointerDown(PointerEvent{X: 150, Y: 150, Duplicate: true})
	e.PointerUp(PointerEvent{X: 250, Y: 350})

	objs := e.Slide().Objects()
	if len(objs) != 2 {
		t.Fatalf("objects = %d, want 2", len(objs))
	}
	if orig.Rect != (Rect{100, 100, 200, 100}) {
		t.Errorf("original moved to %+v", orig.Rect)
	}
	if objs[1].Rect != (Rect{200, 300, 200, 100}) {
		t.Errorf("copy at %+v", objs[1].Rect)
	}
	if e.Selected() != objs[1].ID {
		t.Error("copy is not selected")
	}
}

func TestUndoRoundTrip(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	initial := e.Slide().annotations()

	drawMask(t, e, 100, 100, 300, 200)
	drag(e, 150, 150, 160, 170)
	e.SetColor("#123456")
	e.DuplicateSelection()
	e.BringSelectionToFront()
	e.DeleteSelection()

	var states [][]Annotation
	for e.History().CanUndo() {
		states = append(states, e.Slide().annotations())
		e.Undo()
	}
	if diff := cmp.Diff(initial, e.Slide().annotations()); diff != "" {
		t.Fatalf("after full undo (-want +got):\n%s", diff)
	}

	for i := len(states) - 1; i >= 0; i-- {
		if !e.Redo() {
			t.Fatal("Redo failed")
		}
		if diff := cmp.Diff(states[i], e.Slide().annotations()); diff != "" {
			t.Fatalf("redo step mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestNewEditDropsRedo(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	drawMask(t, e, 10, 10, 100, 100)
	drawMask(t, e, 200, 200, 300, 300)
	e.Undo()
	e.Undo()
	drawMask(t, e, 400, 400, 500, 500)

	if e.Redo() {
		t.Error("Redo succeeded after a new edit")
	}
	if n := e.Slide().Len(); n != 1 {
		t.Errorf("objects = %d, want 1", n)
	}
}

func TestTextEdit(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	e.SetTool(ToolDrawText)
	e.PointerDown(PointerEvent{X: 50, Y: 60})
	e.PointerUp(PointerEvent{X: 50, Y: 60})

	id := e.Editing()
	if id == "" {
		t.Fatal("text tool did not open an edit")
	}
	obj := e.Slide().Object(id)
	if obj.Rect != (Rect{50, 60, defaultTextWidth, defaultTextHeight}) || obj.FontSize != defaultFontSize {
		t.Errorf("new text object = %+v", obj)
	}
	if e.KeyDown("delete") {
		t.Error("shortcut handled during text edit")
	}

	entries := e.History().Len()
	e.InsertText("A")
	e.InsertText("\nBx")
	e.DeleteBackward()
	e.CommitTextEdit()
	if obj.Text != "A\nB" {
		t.Errorf("text = %q, want %q", obj.Text, "A\nB")
	}
	if e.History().Len() != entries+1 {
		t.Errorf("history entries = %d, want %d", e.History().Len(), entries+1)
	}
	if e.Editing() != "" || e.Selected() != id {
		t.Error("commit should close the edit and keep the selection")
	}

	e.Undo()
	if got := e.Slide().Object(id).Text; got != "" {
		t.Errorf("after undo text = %q, want empty", got)
	}
	e.Undo()
	if e.Slide().Len() != 0 {
		t.Error("second undo did not remove the text object")
	}
}

func TestUnchangedTextEditTakesNoSnapshot(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	s := e.Slide()
	obj := s.Add(Annotation{Kind: KindText, Rect: Rect{10, 10, 200, 50}, Text: "same", FontSize: 24, Color: "#000000"})
	e.History().Reset(e.Document(), 0)

	e.DoubleClick(PointerEvent{X: 20, Y: 20})
	if e.Editing() != obj.ID {
		t.Fatal("double click did not open the edit")
	}
	e.InsertText("!")
	e.DeleteBackward()
	e.CommitTextEdit()
	if e.History().Len() != 1 {
		t.Errorf("history entries = %d, want 1", e.History().Len())
	}
}

func TestEyedropperAppliesToSelection(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.NRGBA{R: 0xff, A: 0xff}))
	obj := drawMask(t, e, 100, 100, 300, 200)
	entries := e.History().Len()

	e.SetTool(ToolEyedropper)
	e.PointerDown(PointerEvent{X: 800, Y: 500})
	e.PointerUp(PointerEvent{X: 800, Y: 500})

	if obj.Color != "#ff0000" {
		t.Errorf("mask color = %q, want #ff0000", obj.Color)
	}
	if e.MaskColor() != "#ff0000" {
		t.Errorf("mask tool color = %q", e.MaskColor())
	}
	if e.Tool() != ToolSelect {
		t.Errorf("tool = %v, want select", e.Tool())
	}
	if e.History().Len() != entries+1 {
		t.Errorf("history entries = %d, want %d", e.History().Len(), entries+1)
	}
}

func TestSetColorFollowsFamily(t *testing.T) {
	e := newTestEditor(t, uniformImage(100, 100, color.White))
	e.SetTool(ToolDrawText)
	if err := e.SetColor("#abc"); err != nil {
		t.Fatal(err)
	}
	if e.TextColor() != "#aabbcc" || e.MaskColor() != defaultMaskColor {
		t.Errorf("colors = %s/%s", e.MaskColor(), e.TextColor())
	}
	if err := e.SetColor("nope"); err == nil {
		t.Error("invalid color accepted")
	}
}

func TestScan(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	rec := &fakeRecognizer{out: Recognition{
		Text:  "日本 語 テキスト\n",
		Lines: []image.Rectangle{image.Rect(0, 0, 100, 20), image.Rect(0, 30, 100, 50)},
	}}

	e.SetTool(ToolScan)
	job := drag(e, 10, 10, 210, 110)
	if job == nil {
		t.Fatal("no scan job")
	}
	if !e.Scanning() {
		t.Error("editor not marked as scanning")
	}
	if b := job.crop.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("crop = %v", b)
	}
	if drag(e, 10, 10, 210, 110) != nil {
		t.Error("second scan started while one is running")
	}

	e.FinishScan(job.Run(context.Background(), rec))
	if e.Scanning() {
		t.Error("still scanning")
	}
	objs := e.Slide().Objects()
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	want := Annotation{
		ID:       objs[0].ID,
		Kind:     KindText,
		Rect:     Rect{10, 10, 200, 100},
		Color:    "#000000",
		Text:     "日本語テキスト",
		FontSize: 25,
	}
	if diff := cmp.Diff(want, *objs[0]); diff != "" {
		t.Errorf("scan result mismatch (-want +got):\n%s", diff)
	}
	if e.Tool() != ToolSelect {
		t.Errorf("tool = %v, want select", e.Tool())
	}
	if e.History().Len() != 2 {
		t.Errorf("history entries = %d, want 2", e.History().Len())
	}
}

func TestScanFinishingDuringTextEdit(t *testing.T) {
	e := newTestEditor(t, uniformImage(1000, 600, color.White))
	rec := &fakeRecognizer{out: Recognition{Text: "OCR"}}

	e.SetTool(ToolScan)
	job := drag(e, 10, 10, 210, 110)
	if job == nil {
		t.Fatal("no scan job")
	}
	e.SetTool(ToolDrawText)
	e.PointerDown(PointerEvent{X: 400, Y: 300})
	e.InsertText("hi")
	if e.Editing() == "" {
		t.Fatal("text edit not open")
	}
	entries := e.History().Len()

	e.FinishScan(job.Run(context.Background(), rec))
	if e.Editing() != "" {
		t.Error("text edit still open after the scan landed")
	}
	if got := e.History().Len(); got != entries+2 {
		t.Errorf("history entries = %d, want %d (text commit + scan)", got, entries+2)
	}
	if n := e.Slide().Len(); n != 2 {
		t.Fatalf("objects = %d, want 2", n)
	}

	e.Undo()
	objs := e.Slide().Objects()
	if len(objs) != 1 || objs[0].Text != "hi" {
		t.Errorf("after one undo objects = %+v, want only the typed text", objs)
	}
}

func TestScanFailuresLeaveDocument(t *testing.T) {
	tests := []struct {
		name    string
		rec     *fakeRecognizer
		wantErr bool
	}{
		{"empty", &fakeRecognizer{out: Recognition{Text: "  \n "}}, false},
		{"error", &fakeRecognizer{err: errors.New("engine down")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t, uniformImage(400, 400, color.White))
			e.SetTool(ToolScan)
			if !e.ScanRegion(context.Background(), Rect{10, 10, 100, 100}, tt.rec) {
				t.Fatal("scan did not run")
			}
			if e.Slide().Len() != 0 || e.History().Len() != 1 {
				t.Error("failed scan changed the document")
			}
			if e.Tool() != ToolScan {
				t.Errorf("tool = %v, want scan", e.Tool())
			}
			n := e.Notice()
			if n.Text == "" || n.Error != tt.wantErr {
				t.Errorf("notice = %+v", n)
			}
		})
	}
}

func TestScanRegionTooSmall(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	e.SetTool(ToolScan)
	if job := drag(e, 10, 10, 15, 200); job != nil {
		t.Error("scan job for a sub-threshold region")
	}
	if e.Scanning() {
		t.Error("editor marked as scanning")
	}
}

func TestScanBlocksDestructiveEdits(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	drawMask(t, e, 10, 10, 100, 100)
	job := e.BeginScan(Rect{200, 200, 100, 100})
	if job == nil {
		t.Fatal("no scan job")
	}
	if e.DeleteSelection() {
		t.Error("deleted an object on the slide under scan")
	}
	if e.RemoveActiveSlide() {
		t.Error("removed the slide under scan")
	}
	e.SetTool(ToolPan)
	if e.Tool() != ToolPan {
		t.Error("tool switch refused while scanning")
	}
	e.FinishScan(ScanResult{}, nil)
	if !e.DeleteSelection() {
		t.Error("delete refused after the scan finished")
	}
}

func TestSetToolDropsDraft(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	e.SetTool(ToolDrawMask)
	e.PointerDown(PointerEvent{X: 10, Y: 10})
	e.PointerMove(PointerEvent{X: 100, Y: 100})
	e.SetTool(ToolSelect)
	e.PointerUp(PointerEvent{X: 100, Y: 100})
	if e.Slide().Len() != 0 {
		t.Error("draft committed after tool switch")
	}
}

func TestSpaceForcesPan(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	e.SetTool(ToolDrawMask)
	e.KeyDown(" ")
	drag(e, 10, 10, 40, 30)
	e.KeyUp(" ")

	if e.Slide().Len() != 0 {
		t.Error("pan gesture drew a mask")
	}
	if v := e.View(); v.PanX != 30 || v.PanY != 20 {
		t.Errorf("pan = (%v, %v), want (30, 20)", v.PanX, v.PanY)
	}
	if e.Tool() != ToolDrawMask {
		t.Errorf("tool = %v after releasing space", e.Tool())
	}
}

func TestSlideSwitchClearsFocus(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	e.Load([]Page{{Base: uniformImage(400, 400, color.White)}, {Base: uniformImage(300, 200, color.White)}})
	drawMask(t, e, 10, 10, 100, 100)
	if !e.NextSlide() {
		t.Fatal("NextSlide failed")
	}
	if e.Selected() != "" {
		t.Error("selection carried over to another slide")
	}
	if e.NextSlide() {
		t.Error("NextSlide past the end")
	}

	e.Undo()
	if e.ActiveIndex() != 0 {
		t.Errorf("active = %d after undo, want 0", e.ActiveIndex())
	}
}

func TestExportJobIsIndependent(t *testing.T) {
	e := newTestEditor(t, uniformImage(400, 400, color.White))
	obj := drawMask(t, e, 10, 10, 100, 100)
	job := e.BeginExport(FormatPNG, "out.png", false)
	if job == nil {
		t.Fatal("no export job")
	}
	if e.BeginExport(FormatPNG, "out.png", false) != nil {
		t.Error("second export started")
	}
	obj.Color = "#00ff00"
	if got := job.Slides[0].Objects()[0].Color; got != defaultMaskColor {
		t.Errorf("job sees live edit: %q", got)
	}
	e.FinishExport("out.png", nil)
	if e.Exporting() || e.Notice().Error {
		t.Errorf("after finish: exporting=%v notice=%+v", e.Exporting(), e.Notice())
	}
}
