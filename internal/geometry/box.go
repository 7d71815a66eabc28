// Package geometry holds the bounding-box type shared by OCR engines and the layout clusterer.
//
// A Box is either present (one or more finite points) or absent. Absent boxes
// report 0 for every coordinate so callers never need to branch on geometry.
package geometry

import (
	"bytes"
	"encoding/json"
	"math"
)

// Point is a single polygon vertex in page pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an optional polygon. The zero value is absent.
type Box struct {
	pts []Point
}

// NewBox returns a present box for pts, or an absent box when pts is empty
// or any coordinate is not finite.
func NewBox(pts ...Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	for _, p := range pts {
		if !finite(p.X) || !finite(p.Y) {
			return Box{}
		}
	}
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return Box{pts: cp}
}

// RectBox builds the clockwise 4-point polygon of an axis-aligned rectangle.
func RectBox(x, y, w, h float64) Box {
	return NewBox(
		Point{X: x, Y: y},
		Point{X: x + w, Y: y},
		Point{X: x + w, Y: y + h},
		Point{X: x, Y: y + h},
	)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Valid reports whether the box carries geometry.
func (b Box) Valid() bool { return len(b.pts) > 0 }

// Points returns a copy of the polygon vertices.
func (b Box) Points() []Point {
	out := make([]Point, len(b.pts))
	copy(out, b.pts)
	return out
}

// Top is the smallest y, or 0 when absent.
func (b Box) Top() float64 {
	if !b.Valid() {
		return 0
	}
	top := b.pts[0].Y
	for _, p := range b.pts[1:] {
		top = math.Min(top, p.Y)
	}
	return top
}

// Left is the smallest x, or 0 when absent.
func (b Box) Left() float64 {
	if !b.Valid() {
		return 0
	}
	left := b.pts[0].X
	for _, p := range b.pts[1:] {
		left = math.Min(left, p.X)
	}
	return left
}

// Height is max(y) - min(y), or 0 when absent.
func (b Box) Height() float64 {
	if !b.Valid() {
		return 0
	}
	lo, hi := b.pts[0].Y, b.pts[0].Y
	for _, p := range b.pts[1:] {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	return hi - lo
}

// MarshalJSON encodes as [[x,y],...] or null.
func (b Box) MarshalJSON() ([]byte, error) {
	if !b.Valid() {
		return []byte("null"), nil
	}
	pairs := make([][2]float64, len(b.pts))
	for i, p := range b.pts {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts null, [[x,y],...] or [{"x":..,"y":..},...].
// Anything else, including a single malformed vertex, yields an absent box.
// It never returns an error.
func (b *Box) UnmarshalJSON(data []byte) error {
	*b = Box{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	pts := make([]Point, 0, len(raw))
	for _, r := range raw {
		p, ok := decodePoint(r)
		if !ok {
			return nil
		}
		pts = append(pts, p)
	}
	*b = NewBox(pts...)
	return nil
}

func decodePoint(r json.RawMessage) (Point, bool) {
	var pair []float64
	if err := json.Unmarshal(r, &pair); err == nil {
		if len(pair) < 2 {
			return Point{}, false
		}
		return Point{X: pair[0], Y: pair[1]}, true
	}
	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(r, &obj); err != nil || obj.X == nil || obj.Y == nil {
		return Point{}, false
	}
	return Point{X: *obj.X, Y: *obj.Y}, true
}
