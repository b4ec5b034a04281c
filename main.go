package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type Mode int

const (
	ModeStartup Mode = iota
	ModeNormal
	ModeTextEdit
	ModeInput
	ModeConfirm
)

type InputOperation int

const (
	InputOpen InputOperation = iota
	InputExport
	InputExportSlide
	InputColor
	InputFontSize
)

func (op InputOperation) prompt() string {
	switch op {
	case InputOpen:
		return "Open file"
	case InputExport:
		return "Export all slides to (.pptx/.pdf/.png)"
	case InputExportSlide:
		return "Export this slide to (.pptx/.pdf/.png)"
	case InputColor:
		return "Color (#rrggbb)"
	case InputFontSize:
		return "Font size"
	}
	return ""
}

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmRemoveSlide
	ConfirmOverwrite
)

func (c ConfirmAction) prompt() string {
	switch c {
	case ConfirmQuit:
		return "Quit slidemask?"
	case ConfirmRemoveSlide:
		return "Remove this slide? This cannot be undone"
	case ConfirmOverwrite:
		return "File exists. Overwrite?"
	}
	return ""
}

const doubleClickInterval = 400 * time.Millisecond

// Messages delivered by background commands.
type (
	loadedMsg struct {
		path  string
		pages []Page
		err   error
	}
	scanDoneMsg struct {
		result ScanResult
		err    error
	}
	exportDoneMsg struct {
		path string
		err  error
	}
)

type model struct {
	width      int
	height     int
	editor     *Editor
	renderer   *Renderer
	recognizer Recognizer
	ingester   *Ingester
	config     *Config

	source        string
	mode          Mode
	help          bool
	helpScroll    int
	showStrip     bool
	loading       bool
	input         string
	inputOp       InputOperation
	fileList      []string
	fileIndex     int
	confirmAction ConfirmAction
	pendingExport *ExportJob

	dragging    bool
	lastPress   time.Time
	lastPressX  int
	lastPressY  int
	doubleClick bool
}

func initialModel(config *Config, source string) (model, error) {
	ttf, err := loadFontFile(config.FontPath)
	if err != nil {
		return model{}, err
	}
	r, err := NewRendererFromTTF(ttf)
	if err != nil {
		return model{}, err
	}
	return model{
		editor:     NewEditor(config, r),
		renderer:   r,
		recognizer: NewTesseractRecognizer(),
		ingester:   NewIngester(config),
		config:     config,
		source:     source,
		mode:       ModeStartup,
	}, nil
}

func (m model) Init() tea.Cmd {
	if m.source != "" {
		return loadSource(m.ingester, m.source)
	}
	return nil
}

func loadSource(in *Ingester, path string) tea.Cmd {
	return func() tea.Msg {
		pages, err := in.Load(context.Background(), path)
		return loadedMsg{path: path, pages: pages, err: err}
	}
}

func runScanJob(job *ScanJob, rec Recognizer) tea.Cmd {
	return func() tea.Msg {
		res, err := job.Run(context.Background(), rec)
		return scanDoneMsg{result: res, err: err}
	}
}

func runExportJob(job *ExportJob) tea.Cmd {
	return func() tea.Msg {
		path, err := job.Run(context.Background())
		return exportDoneMsg{path: path, err: err}
	}
}

// surfaceSize is the view surface in pixels: one column and two pixel rows
// per terminal cell, minus the status lines.
func (m model) surfaceSize() (int, int) {
	return max(1, m.width), max(1, m.surfaceRows()) * 2
}

func (m model) surfaceRows() int {
	rows := m.height - 2
	if m.showStrip {
		rows -= stripRows + 1
	}
	return max(1, rows)
}

const stripRows = 4

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetViewSize(m.surfaceSize())
		return m, nil

	case loadedMsg:
		m.loading = false
		m.editor.FinishLoad(msg.pages, msg.err)
		if msg.err == nil && len(msg.pages) > 0 {
			m.source = msg.path
			m.mode = ModeNormal
			m.editor.SetViewSize(m.surfaceSize())
		}
		return m, nil

	case scanDoneMsg:
		m.editor.FinishScan(msg.result, msg.err)
		return m, nil

	case exportDoneMsg:
		m.editor.FinishExport(msg.path, msg.err)
		return m, nil

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		if m.help {
			return m.updateHelp(msg)
		}
		switch m.mode {
		case ModeStartup:
			return m.updateStartup(msg)
		case ModeInput:
			return m.updateInput(msg)
		case ModeConfirm:
			return m.updateConfirm(msg)
		case ModeTextEdit:
			return m.updateTextEdit(msg)
		default:
			return m.updateNormal(msg)
		}
	}
	return m, nil
}

func (m model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.help || (m.mode != ModeNormal && m.mode != ModeTextEdit) {
		return m, nil
	}
	ev := PointerEvent{
		X:         float64(msg.X) + 0.5,
		Y:         float64(msg.Y)*2 + 1,
		Duplicate: msg.Alt,
	}
	inside := msg.Y < m.surfaceRows()
	e := m.editor

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		e.ZoomIn()
	case msg.Button == tea.MouseButtonWheelDown:
		e.ZoomOut()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return m, nil
		}
		now := time.Now()
		m.doubleClick = now.Sub(m.lastPress) < doubleClickInterval && msg.X == m.lastPressX && msg.Y == m.lastPressY
		m.lastPress, m.lastPressX, m.lastPressY = now, msg.X, msg.Y
		e.ClearNotice()
		e.PointerDown(ev)
		m.dragging = true
	case msg.Action == tea.MouseActionMotion && m.dragging:
		if !inside {
			m.dragging = false
			return m.afterPointer(e.PointerLeave())
		}
		e.PointerMove(ev)
	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		job := e.PointerUp(ev)
		if m.doubleClick {
			m.doubleClick = false
			e.DoubleClick(ev)
		}
		return m.afterPointer(job)
	}
	m.syncMode()
	return m, nil
}

func (m model) afterPointer(job *ScanJob) (tea.Model, tea.Cmd) {
	m.syncMode()
	if job == nil {
		return m, nil
	}
	return m, runScanJob(job, m.recognizer)
}

// syncMode follows the editor into and out of in-place text editing.
func (m *model) syncMode() {
	switch {
	case m.editor.Editing() != "" && m.mode == ModeNormal:
		m.mode = ModeTextEdit
	case m.editor.Editing() == "" && m.mode == ModeTextEdit:
		m.mode = ModeNormal
	}
}

func (m model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		maxScroll := max(0, len(helpLines)-max(1, m.height-1))
		if m.helpScroll < maxScroll {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	default:
		m.help = false
		m.helpScroll = 0
	}
	return m, nil
}

func (m model) updateStartup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "o", "enter":
		m.startInput(InputOpen)
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	key := msg.String()
	e.ClearNotice()

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.config.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.help = true
		return m, nil
	case " ":
		if e.SpaceHeld() {
			e.KeyUp(" ")
		} else {
			e.KeyDown(" ")
		}
		return m, nil
	case "o":
		m.startInput(InputOpen)
		return m, nil
	case "e", "E":
		if e.Exporting() {
			e.notify(true, "%v", errBusy)
			return m, nil
		}
		m.startInput(InputExport)
		if key == "E" {
			m.inputOp = InputExportSlide
		}
		return m, nil
	case "c":
		m.startInput(InputColor)
		return m, nil
	case "z":
		m.startInput(InputFontSize)
		return m, nil
	case "ctrl+s":
		m.saveProject()
		return m, nil
	case "ctrl+o":
		m.loadProject()
		return m, nil
	case "y":
		m.copySelection()
		return m, nil
	case "g":
		m.showStrip = !m.showStrip
		e.SetViewSize(m.surfaceSize())
		return m, nil
	case "x":
		if e.Document().Len() > 0 {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmRemoveSlide
		}
		return m, nil
	case "enter":
		if sel := e.Selected(); sel != "" {
			e.BeginTextEdit(sel)
			m.syncMode()
		}
		return m, nil
	}

	if e.View().handlePanKey(key) {
		return m, nil
	}
	e.KeyDown(key)
	m.syncMode()
	return m, nil
}

func (m model) updateTextEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	switch msg.Type {
	case tea.KeyEsc:
		e.CommitTextEdit()
	case tea.KeyEnter:
		e.InsertText("\n")
	case tea.KeyBackspace:
		e.DeleteBackward()
	case tea.KeyCtrlV:
		text, err := readClipboardText()
		if err != nil {
			e.notify(true, "Clipboard: %v", err)
			break
		}
		e.InsertText(cleanClipboardText(text))
	case tea.KeyTab:
		e.InsertText("\t")
	case tea.KeyRunes, tea.KeySpace:
		e.InsertText(string(msg.Runes))
	case tea.KeyCtrlC:
		e.CommitTextEdit()
		return m, tea.Quit
	}
	m.syncMode()
	return m, nil
}

func (m *model) startInput(op InputOperation) {
	m.mode = ModeInput
	m.inputOp = op
	m.input = ""
	m.fileList = nil
	m.fileIndex = -1
	switch op {
	case InputOpen:
		m.scanSourceFiles()
	case InputExport, InputExportSlide:
		if m.source != "" {
			m.input = strings.TrimSuffix(filepath.Base(m.source), filepath.Ext(m.source)) + "-masked.pptx"
		}
	case InputColor:
		m.input = m.editor.MaskColor()
		if m.editor.currentFamily() == KindText {
			m.input = m.editor.TextColor()
		}
	}
}

// scanSourceFiles lists openable files in the working directory.
func (m *model) scanSourceFiles() {
	entries, err := os.ReadDir(".")
	if err != nil {
		return
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".pdf" || imageExtensions[ext]) {
			m.fileList = append(m.fileList, entry.Name())
		}
	}
	sort.Strings(m.fileList)
	if len(m.fileList) > 0 {
		m.fileIndex = 0
		m.input = m.fileList[0]
	}
}

func (m model) leaveInput() model {
	if m.editor.Document().Len() == 0 {
		m.mode = ModeStartup
	} else {
		m.mode = ModeNormal
	}
	m.input = ""
	return m
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.leaveInput(), nil
	case tea.KeyUp, tea.KeyDown:
		if n := len(m.fileList); n > 0 {
			if msg.Type == tea.KeyUp {
				m.fileIndex = (m.fileIndex - 1 + n) % n
			} else {
				m.fileIndex = (m.fileIndex + 1) % n
			}
			m.input = m.fileList[m.fileIndex]
		}
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		m.fileIndex = -1
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
		m.fileIndex = -1
		return m, nil
	case tea.KeyEnter:
		return m.submitInput()
	}
	return m, nil
}

func (m model) submitInput() (tea.Model, tea.Cmd) {
	e := m.editor
	value := strings.TrimSpace(m.input)
	if value == "" {
		e.notify(true, "Please enter a value")
		return m, nil
	}

	switch m.inputOp {
	case InputOpen:
		m = m.leaveInput()
		m.loading = true
		return m, loadSource(m.ingester, expandPath(value, homeDir()))
	case InputExport, InputExportSlide:
		path := m.config.GetSavePath(expandPath(value, homeDir()))
		format, err := exportFormatFor("", path)
		if err != nil {
			e.notify(true, "%v", err)
			return m, nil
		}
		job := e.BeginExport(format, path, m.inputOp == InputExportSlide)
		if job == nil {
			e.notify(true, "%v", errNothingToExport)
			return m.leaveInput(), nil
		}
		if _, err := os.Stat(path); err == nil && m.config.Confirmations {
			m.pendingExport = job
			m.mode = ModeConfirm
			m.confirmAction = ConfirmOverwrite
			return m, nil
		}
		return m.leaveInput(), runExportJob(job)
	case InputColor:
		if err := e.SetColor(value); err != nil {
			e.notify(true, "%v", err)
			return m, nil
		}
	case InputFontSize:
		size, err := parseFontSize(value)
		if err != nil {
			e.notify(true, "%v", err)
			return m, nil
		}
		if !e.SetFontSize(size) {
			e.notify(true, "Select a text object first")
		}
	}
	return m.leaveInput(), nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	switch msg.String() {
	case "y", "Y":
		switch m.confirmAction {
		case ConfirmQuit:
			return m, tea.Quit
		case ConfirmRemoveSlide:
			if !e.RemoveActiveSlide() {
				e.notify(true, "Slide is busy")
			}
		case ConfirmOverwrite:
			job := m.pendingExport
			m.pendingExport = nil
			m = m.leaveInput()
			return m, runExportJob(job)
		}
	case "n", "N", "esc":
		if m.confirmAction == ConfirmOverwrite && m.pendingExport != nil {
			m.pendingExport = nil
			e.FinishExport("", fmt.Errorf("cancelled"))
		}
	default:
		return m, nil
	}
	return m.leaveInput(), nil
}

func (m *model) saveProject() {
	e := m.editor
	if m.source == "" || e.Document().Len() == 0 {
		e.notify(true, "%v", errNothingToExport)
		return
	}
	path := projectPath(m.source)
	if err := SaveProject(path, NewProject(m.source, e.Document())); err != nil {
		e.notify(true, "Error saving project: %v", err)
		return
	}
	absPath, _ := filepath.Abs(path)
	e.notify(false, "Saved to %s", absPath)
}

func (m *model) loadProject() {
	e := m.editor
	if m.source == "" {
		e.notify(true, "Open a file first")
		return
	}
	p, err := LoadProject(projectPath(m.source))
	if err != nil {
		e.notify(true, "Error opening project: %v", err)
		return
	}
	e.ApplyProject(p)
	e.notify(false, "Restored annotations for %d slide(s)", len(p.Slides))
}

func (m *model) copySelection() {
	e := m.editor
	s := e.Slide()
	if s == nil {
		return
	}
	obj := s.Object(e.Selected())
	if obj == nil || obj.Kind != KindText {
		e.notify(true, "Select a text object to copy")
		return
	}
	if err := writeClipboardText(obj.Text); err != nil {
		e.notify(true, "Clipboard: %v", err)
		return
	}
	e.notify(false, "Copied %d characters", len([]rune(obj.Text)))
}

func homeDir() string {
	dir, _ := os.UserHomeDir()
	return dir
}

func (m model) View() string {
	if m.help {
		return m.helpView()
	}
	if m.editor.Document().Len() == 0 {
		return m.startupView()
	}

	w, h := m.surfaceSize()
	e := m.editor
	surface := renderSurface(m.renderer, e.Slide(), e.Overlay(), *e.View(), w, h)

	var result strings.Builder
	result.WriteString(strings.Join(halfBlocks(surface, w, h/2), "\n"))
	if m.showStrip {
		for _, line := range slideStrip(e.Document(), e.ActiveIndex(), m.width, stripRows) {
			result.WriteString("\n")
			result.WriteString(line)
		}
	}
	result.WriteString("\n")
	result.WriteString(m.promptLine())
	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

func (m model) startupView() string {
	lines := []string{
		"slidemask",
		"",
		"Open a PDF or image to start masking slides.",
		"",
		"  o  Open file",
		"  q  Quit",
	}
	if m.loading {
		lines = append(lines, "", "Loading...")
	}
	if m.mode == ModeInput {
		lines = append(lines, "", m.promptLine())
		for i, f := range m.fileList {
			marker := "  "
			if i == m.fileIndex {
				marker = "> "
			}
			lines = append(lines, marker+f)
		}
	}
	if n := m.editor.Notice(); n.Text != "" {
		lines = append(lines, "", n.Text)
	}
	return strings.Join(lines, "\n")
}

func (m model) modeString() string {
	switch m.mode {
	case ModeStartup:
		return "startup"
	case ModeTextEdit:
		return "edit"
	case ModeInput:
		return "input"
	case ModeConfirm:
		return "confirm"
	}
	if m.editor.SpaceHeld() {
		return ToolPan.String()
	}
	return m.editor.Tool().String()
}

var helpLines = []string{
	"slidemask Help",
	"==============",
	"",
	"Tools:",
	"------",
	"  v                Select: click to select, drag to move, drag a handle to resize",
	"                   Alt+drag duplicates the object under the pointer",
	"  m                Mask: drag to cover a region",
	"  t                Text: click to place a text box and type",
	"  i                Eyedropper: click to pick a color for the selection",
	"  s                Scan: drag over text to recognize it as a text object",
	"  h                Pan: drag to move the view",
	"  Space            Toggle temporary pan",
	"",
	"Objects:",
	"--------",
	"  Enter            Edit the selected text object (or double-click it)",
	"  Esc              Finish editing / clear selection",
	"  Delete/Backspace Delete the selected object",
	"  Ctrl+D           Duplicate the selected object",
	"  f                Bring the selected object to front",
	"  c                Set color for the selection or current tool",
	"  z                Set font size of the selected text",
	"  > / <            Grow / shrink the selected text",
	"  y                Copy the selected text to the clipboard",
	"  Ctrl+V           Paste clipboard text while editing",
	"",
	"View:",
	"-----",
	"  + / -            Zoom in / out (or mouse wheel)",
	"  0                Fit slide to window",
	"  ←/↓/↑/→          Pan the view, Shift+H/J/K/L pans faster",
	"  [ / ]            Previous / next slide (PageUp / PageDown)",
	"  g                Toggle slide thumbnails",
	"  x                Remove the current slide",
	"",
	"Files:",
	"------",
	"  o                Open a PDF or image",
	"  e                Export all slides (.pptx, .pdf or .png)",
	"  E                Export the current slide",
	"  Ctrl+S           Save annotations next to the source file",
	"  Ctrl+O           Restore saved annotations",
	"",
	"General:",
	"  u / Ctrl+Z       Undo",
	"  U / Ctrl+Y       Redo",
	"  ?                Toggle this help screen",
	"  q/Ctrl+C         Quit",
}

func (m model) helpView() string {
	visibleHeight := max(1, m.height-1)

	startLine := m.helpScroll
	if startLine >= len(helpLines) {
		startLine = max(0, len(helpLines)-visibleHeight)
	}
	endLine := min(len(helpLines), startLine+visibleHeight)

	result := strings.Join(helpLines[startLine:endLine], "\n")
	result += "\n" + fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close",
		startLine+1, endLine, len(helpLines))
	return result
}
