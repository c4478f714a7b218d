// Package avatar draws the procedural agent avatars. Output depends only on
// the user id and the background colour, so the same input always yields the
// same bytes.
package avatar

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

const (
	multiplier = 9301
	increment  = 49297
	modulus    = 233280

	shapeCount = 3
	canvasSize = 100
)

type Kind int

const (
	Rect Kind = iota
	Circle
	Triangle
)

func (k Kind) String() string {
	switch k {
	case Rect:
		return "rect"
	case Circle:
		return "circle"
	default:
		return "triangle"
	}
}

type Shape struct {
	Kind    Kind
	Opacity float64
	X       float64
	Y       float64
	Size    float64
}

// lcg is the seeded generator: seed = id*9301 + 49297, then each draw
// advances seed = (seed*9301 + 49297) mod 233280 and yields seed/233280.
type lcg struct {
	seed int64
}

func newLCG(id int64) *lcg {
	// reducing first keeps large ids from overflowing; the residues match
	// the unreduced arithmetic exactly
	seed := mod(mod(id)*multiplier + increment)
	return &lcg{seed: seed}
}

func (g *lcg) next() float64 {
	g.seed = mod(g.seed*multiplier + increment)
	return float64(g.seed) / modulus
}

func mod(v int64) int64 {
	r := v % modulus
	if r < 0 {
		r += modulus
	}
	return r
}

// Shapes returns the shapes drawn for id, in drawing order.
func Shapes(id int64) []Shape {
	g := newLCG(id)
	shapes := make([]Shape, 0, shapeCount)
	for i := 0; i < shapeCount; i++ {
		kind := Kind(int(g.next() * 3))
		shapes = append(shapes, Shape{
			Kind:    kind,
			Opacity: 0.3 + g.next()*0.5,
			X:       10 + g.next()*80,
			Y:       10 + g.next()*80,
			Size:    10 + g.next()*40,
		})
	}
	return shapes
}

// Generate renders the SVG avatar for id on a background of color.
func Generate(id int64, color string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" width="100" height="100">`)
	buf.WriteString(`<rect width="100" height="100" fill="`)
	_ = xml.EscapeText(&buf, []byte(color))
	buf.WriteString(`"/>`)
	for _, s := range Shapes(id) {
		half := s.Size / 2
		switch s.Kind {
		case Rect:
			buf.WriteString(`<rect x="` + num(s.X-half) + `" y="` + num(s.Y-half) +
				`" width="` + num(s.Size) + `" height="` + num(s.Size) + `"`)
		case Circle:
			buf.WriteString(`<circle cx="` + num(s.X) + `" cy="` + num(s.Y) + `" r="` + num(half) + `"`)
		default:
			buf.WriteString(`<polygon points="` +
				num(s.X) + `,` + num(s.Y-half) + ` ` +
				num(s.X-half) + `,` + num(s.Y+half) + ` ` +
				num(s.X+half) + `,` + num(s.Y+half) + `"`)
		}
		buf.WriteString(` fill="#ffffff" fill-opacity="` + num(s.Opacity) + `"/>`)
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
