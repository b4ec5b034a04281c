package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const projectVersion = 1

// Project is the saved annotation layer of a document. Raster bases are not
// stored; the source file is ingested again on load and slides are matched
// by position.
type Project struct {
	Version int            `json:"version"`
	Source  string         `json:"source"`
	Slides  []ProjectSlide `json:"slides"`
}

type ProjectSlide struct {
	Objects []Annotation `json:"objects"`
}

func (k ObjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ObjectKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mask":
		*k = KindMask
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown object kind %q", b)
	}
	return nil
}

// projectPath is the default project file for a source file.
func projectPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".slidemask.json"
}

func NewProject(source string, doc *Document) *Project {
	p := &Project{Version: projectVersion, Source: source}
	for _, s := range doc.Slides() {
		p.Slides = append(p.Slides, ProjectSlide{Objects: s.annotations()})
	}
	return p
}

func SaveProject(path string, p *Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	return writeFileAtomic(path, data)
}

func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", filepath.Base(path), err)
	}
	if p.Version != projectVersion {
		return nil, fmt.Errorf("project %s: unsupported version %d", filepath.Base(path), p.Version)
	}
	for i, s := range p.Slides {
		for _, a := range s.Objects {
			if _, err := normalizeHex(a.Color); err != nil {
				return nil, fmt.Errorf("project %s: slide %d: %w", filepath.Base(path), i+1, err)
			}
		}
	}
	return &p, nil
}

// Apply restores the saved annotations onto doc slide by slide. Extra
// project slides are ignored.
func (p *Project) Apply(doc *Document) {
	for i, ps := range p.Slides {
		s := doc.Slide(i)
		if s == nil {
			continue
		}
		s.setAnnotations(nil)
		for _, a := range ps.Objects {
			s.Add(a)
		}
	}
}

// ApplyProject restores a project into the editor. The restored state
// becomes the new history floor.
func (e *Editor) ApplyProject(p *Project) {
	e.CommitTextEdit()
	e.cancelGesture()
	e.clearFocus()
	p.Apply(e.doc)
	e.history.Reset(e.doc, e.active)
}
