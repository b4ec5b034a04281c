package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"text/template"
)

// pptxShape is a PlacedShape in whole EMU with its font size in hundredths
// of a point, the unit DrawingML uses for sz.
type pptxShape struct {
	ID    int
	Kind  ObjectKind
	X, Y  int64
	W, H  int64
	Color string
	Lines []string
	Size  int
}

type pptxSlide struct {
	Index  int
	X, Y   int64
	W, H   int64
	Shapes []pptxShape
}

func (s pptxShape) Mask() bool { return s.Kind == KindMask }

type pptxPart struct {
	name string
	tmpl string
	data any
}

type pptxDeck struct {
	W, H   int64
	Slides []pptxSlide
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func hexDigits(c string) string {
	return strings.ToUpper(strings.TrimPrefix(c, "#"))
}

var pptxTemplates = template.Must(template.New("pptx").Funcs(template.FuncMap{
	"esc": xmlEscape,
	"hex": hexDigits,
	"add": func(a, b int) int { return a + b },
}).Parse(pptxTemplateText))

func emu(v float64) int64 { return int64(math.Round(v)) }

// fitSlide sizes s to fit a deckW by deckH frame at its own aspect and
// returns its width and the offsets that centre it.
func fitSlide(s *Slide, deckW, deckH float64) (width, ox, oy float64) {
	width = deckW
	if h := float64(s.Height()) * deckW / float64(s.Width()); h > deckH {
		width = deckW * deckH / h
	}
	height := float64(s.Height()) * width / float64(s.Width())
	return width, (deckW - width) / 2, (deckH - height) / 2
}

// encodePPTX builds a minimal PresentationML package: one blank layout and
// one slide per input, each with its base as a picture. The deck is 10 in
// wide and takes its height from the first slide; slides of another aspect
// are letterboxed inside it.
func encodePPTX(ctx context.Context, slides []*Slide, opts ExportOptions) ([]byte, error) {
	deckW := float64(pptxSlideWidthEMU)
	deckH := placeSlide(slides[0], deckW, 1).Height
	deck := pptxDeck{W: emu(deckW), H: emu(deckH)}

	images := make([][]byte, len(slides))
	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		width, ox, oy := fitSlide(s, deckW, deckH)
		page := placeSlide(s, width, opts.FontScale/emuPerPoint)
		data, err := encodeImagePNG(page.Image)
		if err != nil {
			return nil, fmt.Errorf("slide %d: encode base: %w", i+1, err)
		}
		images[i] = data

		ps := pptxSlide{Index: i + 1, X: emu(ox), Y: emu(oy), W: emu(page.Width), H: emu(page.Height)}
		for j, sh := range page.Shapes {
			ps.Shapes = append(ps.Shapes, pptxShape{
				ID:    j + 3,
				Kind:  sh.Kind,
				X:     emu(sh.Rect.X + ox),
				Y:     emu(sh.Rect.Y + oy),
				W:     emu(sh.Rect.W),
				H:     emu(sh.Rect.H),
				Color: mustHex(sh.Color),
				Lines: strings.Split(sh.Text, "\n"),
				Size:  max(100, int(math.Round(sh.FontSize*100))),
			})
		}
		deck.Slides = append(deck.Slides, ps)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []pptxPart{
		{"[Content_Types].xml", "contentTypes", deck},
		{"_rels/.rels", "rootRels", deck},
		{"ppt/presentation.xml", "presentation", deck},
		{"ppt/_rels/presentation.xml.rels", "presentationRels", deck},
		{"ppt/slideMasters/slideMaster1.xml", "slideMaster", deck},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", "slideMasterRels", deck},
		{"ppt/slideLayouts/slideLayout1.xml", "slideLayout", deck},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", "slideLayoutRels", deck},
		{"ppt/theme/theme1.xml", "theme", deck},
	}
	for _, s := range deck.Slides {
		parts = append(parts,
			pptxPart{fmt.Sprintf("ppt/slides/slide%d.xml", s.Index), "slide", s},
			pptxPart{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.Index), "slideRels", s},
		)
	}

	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, err
		}
		if err := pptxTemplates.ExecuteTemplate(w, p.tmpl, p.data); err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
	}
	for i, data := range images {
		w, err := zw.Create(fmt.Sprintf("ppt/media/image%d.png", i+1))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mustHex returns the canonical colour for c, or black.
func mustHex(c string) string {
	return colorToHex(mustColor(c))
}

const pptxTemplateText = `
{{- define "contentTypes" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
{{- range .Slides}}
<Override PartName="/ppt/slides/slide{{.Index}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
{{- end}}
</Types>
{{- end}}

{{- define "rootRels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>
{{- end}}

{{- define "presentation" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst>
{{- range $i, $s := .Slides}}
<p:sldId id="{{add 256 $i}}" r:id="rId{{add 3 $i}}"/>
{{- end}}
</p:sldIdLst>
<p:sldSz cx="{{.W}}" cy="{{.H}}"/>
<p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>
{{- end}}

{{- define "presentationRels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>
{{- range $i, $s := .Slides}}
<Relationship Id="rId{{add 3 $i}}" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide{{$s.Index}}.xml"/>
{{- end}}
</Relationships>
{{- end}}

{{- define "emptyTree" -}}
<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld>
{{- end}}

{{- define "slideMaster" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
{{template "emptyTree"}}
<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
</p:sldMaster>
{{- end}}

{{- define "slideMasterRels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>
</Relationships>
{{- end}}

{{- define "slideLayout" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="blank" preserve="1">
{{template "emptyTree"}}
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>
{{- end}}

{{- define "slideLayoutRels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>
{{- end}}

{{- define "solidStyles" -}}
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
{{- end}}

{{- define "theme" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="slidemask">
<a:themeElements>
<a:clrScheme name="slidemask">
<a:dk1><a:srgbClr val="000000"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="1F1F1F"/></a:dk2><a:lt2><a:srgbClr val="EEEEEE"/></a:lt2>
<a:accent1><a:srgbClr val="0A84FF"/></a:accent1><a:accent2><a:srgbClr val="FF9F0A"/></a:accent2>
<a:accent3><a:srgbClr val="30D158"/></a:accent3><a:accent4><a:srgbClr val="FF453A"/></a:accent4>
<a:accent5><a:srgbClr val="BF5AF2"/></a:accent5><a:accent6><a:srgbClr val="64D2FF"/></a:accent6>
<a:hlink><a:srgbClr val="0A84FF"/></a:hlink><a:folHlink><a:srgbClr val="BF5AF2"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="slidemask">
<a:majorFont><a:latin typeface="Arial"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="Arial"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="slidemask">
<a:fillStyleLst>{{template "solidStyles"}}</a:fillStyleLst>
<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>
<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>
<a:bgFillStyleLst>{{template "solidStyles"}}</a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
</a:theme>
{{- end}}

{{- define "slide" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>
<p:pic><p:nvPicPr><p:cNvPr id="2" name="Base"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>
<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>
<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>
{{- range .Shapes}}
{{- if .Mask}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Mask {{.ID}}"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:solidFill><a:srgbClr val="{{hex .Color}}"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr></p:sp>
{{- else}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Text {{.ID}}"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>
<p:txBody><a:bodyPr wrap="square" lIns="0" tIns="0" rIns="0" bIns="0" anchor="t"><a:noAutofit/></a:bodyPr><a:lstStyle/>
{{- $s := .}}
{{- range .Lines}}
<a:p><a:pPr algn="l"/><a:r><a:rPr lang="en-US" sz="{{$s.Size}}" b="1" dirty="0"><a:solidFill><a:srgbClr val="{{hex $s.Color}}"/></a:solidFill></a:rPr><a:t>{{esc .}}</a:t></a:r></a:p>
{{- end}}
</p:txBody></p:sp>
{{- end}}
{{- end}}
</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>
{{- end}}

{{- define "slideRels" -}}
<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image{{.Index}}.png"/>
</Relationships>
{{- end}}
`
