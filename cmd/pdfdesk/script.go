package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/config"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/session"
)

// step is one page operation of an organize script:
//
//	steps:
//	  - {op: move, from: 3, to: 4, at: 1}
//	  - {op: swap, a: 1, b: 2}
//	  - {op: rotate, page: 2, degrees: 90}
//	  - {op: delete, page: 5}
//	  - {op: blank, after: 2}
type step struct {
	Op      string `yaml:"op"`
	From    int    `yaml:"from"`
	To      int    `yaml:"to"`
	At      int    `yaml:"at"`
	A       int    `yaml:"a"`
	B       int    `yaml:"b"`
	Page    int    `yaml:"page"`
	Degrees int    `yaml:"degrees"`
	After   int    `yaml:"after"`
}

type script struct {
	Steps []step `yaml:"steps"`
}

// mark is one annotation of an annotate file. Coordinates are view-space pixels at the
// preview scale.
type mark struct {
	Page   int     `yaml:"page"`
	Kind   string  `yaml:"kind"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Text   string  `yaml:"text"`
	Color  string  `yaml:"color"`
	Size   float64 `yaml:"size"`
	Stroke float64 `yaml:"stroke"`
}

type marks struct {
	Annotations []mark `yaml:"annotations"`
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// apply runs the steps in order and stops at the first failing one
func (sc script) apply(s *session.Session) error {
	for i, st := range sc.Steps {
		var err error
		switch st.Op {
		case "move":
			to := st.To
			if to == 0 {
				to = st.From
			}
			err = s.Move(st.From, to, st.At)
		case "swap":
			err = s.Swap(st.A, st.B)
		case "rotate":
			if st.Degrees == 0 {
				err = s.Rotate(st.Page)
			} else {
				err = s.RotateBy(st.Page, st.Degrees)
			}
		case "delete":
			err = s.Delete(st.Page)
		case "blank":
			err = s.InsertBlank(st.After)
		default:
			err = fmt.Errorf("unknown op %q", st.Op)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	return nil
}

// style returns the style of m, filling unset fields from base
func (m mark) style(base annotation.Style) (annotation.Style, error) {
	out := base
	if m.Color != "" {
		c, err := config.ParseColor(m.Color)
		if err != nil {
			return annotation.Style{}, err
		}
		out.Color = c
	}
	if m.Size > 0 {
		out.SizePx = m.Size
	}
	if m.Stroke > 0 {
		out.StrokeWidthPx = m.Stroke
	}
	return out, nil
}

// apply places every mark, switching the session style as needed
func (ms marks) apply(s *session.Session, base annotation.Style) error {
	for i, m := range ms.Annotations {
		kind, err := annotation.ParseKind(m.Kind)
		if err != nil {
			return fmt.Errorf("annotation %d: %w", i+1, err)
		}
		style, err := m.style(base)
		if err != nil {
			return fmt.Errorf("annotation %d: %w", i+1, err)
		}
		if err := s.SetStyle(style); err != nil {
			return fmt.Errorf("annotation %d: %w", i+1, err)
		}

		anchor := geometry.Point{X: m.X, Y: m.Y}
		if kind == annotation.Rectangle {
			_, err = s.AddRectangle(m.Page, anchor, geometry.Size{Width: m.Width, Height: m.Height})
		} else {
			_, err = s.AddAnnotation(m.Page, kind, anchor, m.Text)
		}
		if err != nil {
			return fmt.Errorf("annotation %d: %w", i+1, err)
		}
	}
	return s.SetStyle(base)
}
