package main

type Tool int

const (
	ToolSelect Tool = iota
	ToolDrawMask
	ToolDrawText
	ToolEyedropper
	ToolScan
	ToolPan
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolDrawMask:
		return "mask"
	case ToolDrawText:
		return "text"
	case ToolEyedropper:
		return "eyedropper"
	case ToolScan:
		return "scan"
	case ToolPan:
		return "pan"
	}
	return "unknown"
}

type ObjectKind int

const (
	KindMask ObjectKind = iota
	KindText
)

func (k ObjectKind) String() string {
	if k == KindText {
		return "text"
	}
	return "mask"
}

// Handle identifies one of the eight resize handles of a selected object.
type Handle int

const (
	HandleNone Handle = iota
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
)

var handleNames = [...]string{"", "nw", "n", "ne", "e", "se", "s", "sw", "w"}

func (h Handle) String() string {
	if h < 0 || int(h) >= len(handleNames) {
		return "?"
	}
	return handleNames[h]
}

type ExportFormat int

const (
	FormatPPTX ExportFormat = iota
	FormatPDF
	FormatPNG
)

func (f ExportFormat) String() string {
	switch f {
	case FormatPPTX:
		return "pptx"
	case FormatPDF:
		return "pdf"
	case FormatPNG:
		return "png"
	}
	return "unknown"
}

const (
	minObjectSize = 5.0  // drawn rectangles below this are dropped
	minResizeSize = 10.0 // floor for width and height while resizing
	minScanSize   = 10.0 // OCR regions below this are ignored

	handleSize    = 8.0
	handleHitSize = 14.0

	defaultTextWidth  = 200.0
	defaultTextHeight = 50.0
	defaultFontSize   = 24.0
	lineHeight        = 1.2

	defaultMaskColor = "#ffffff"
	defaultTextColor = "#000000"
	scanMarkerColor  = "#0a84ff"
	selectionColor   = "#0a84ff"

	defaultMaxHistory     = 50
	defaultMaxDimension   = 2000
	defaultThumbnailWidth = 160

	ocrMinFontSize      = 12.0
	ocrFallbackFontSize = 24.0
	ocrFontScale        = 1.25
	colorBucketSize     = 32
	colorSampleStride   = 2

	pptxSlideWidthEMU = 9144000
	emuPerPoint       = 12700
	pdfPointsPerPixel = 0.75
	exportFontScale   = 0.9

	zoomStep = 1.25
	minZoom  = 0.1
	maxZoom  = 8.0
)
