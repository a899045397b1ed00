package engine

import (
	"errors"
	"log/slog"
	"math"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

var (
	ErrPointEditingOff = errors.New("point editing is off")
	ErrNoVertex        = errors.New("no vertex under cursor")
	ErrNoVertexDrag    = errors.New("no vertex drag in progress")
)

// addVertexReach is the zoom divisor giving the pixel distance within which an edge
// offers a new vertex.
const addVertexReach = 7

type vertexDrag struct {
	shape *Shape
	index int
}

// VertexRef names one vertex of one shape.
type VertexRef struct {
	Shape      *Shape
	ShapeIndex int
	Index      int
}

// VertexCandidate is where a new vertex would be inserted: before Index, at Screen.
type VertexCandidate struct {
	Shape      *Shape
	ShapeIndex int
	Index      int
	Screen     geom.Vec2
	Distance   float64
}

// VertexAt returns the topmost vertex handle under a screen point.
func (e *Editor) VertexAt(screen geom.Vec2) (VertexRef, bool) {
	if e.layout == nil || !e.drawPoints {
		return VertexRef{}, false
	}
	radius := math.Round(e.view.Zoom * PointSelectedRadius)
	for i, s := range e.shapes.Backward() {
		if !e.handleBounds(s).Contains(screen) {
			continue
		}
		for j, p := range e.screenPoints(s) {
			if p.Round().Distance(screen) <= radius {
				return VertexRef{Shape: s, ShapeIndex: i, Index: j}, true
			}
		}
	}
	return VertexRef{}, false
}

// BeginVertexDrag grabs the vertex under the cursor. Object selection is cleared while
// a vertex is held.
func (e *Editor) BeginVertexDrag(screen geom.Vec2) (VertexRef, error) {
	if !e.drawPoints {
		return VertexRef{}, ErrPointEditingOff
	}
	v, ok := e.VertexAt(screen)
	if !ok {
		return VertexRef{}, ErrNoVertex
	}
	e.ClearSelection()
	e.drag = &vertexDrag{shape: v.Shape, index: v.Index}
	return v, nil
}

// DragVertex moves the held vertex by a world delta.
func (e *Editor) DragVertex(delta geom.Vec2) error {
	if e.drag == nil {
		return ErrNoVertexDrag
	}
	s, i := e.drag.shape, e.drag.index
	pts := s.Points()
	if i >= len(pts) {
		e.drag = nil
		return ErrNoVertexDrag
	}
	return s.MovePoint(i, pts[i].Add(delta))
}

// EndVertexDrag releases the held vertex and re-centers its shape on the new geometry.
func (e *Editor) EndVertexDrag() error {
	if e.drag == nil {
		return ErrNoVertexDrag
	}
	e.drag.shape.CalculateHitbox(true)
	e.drag = nil
	return nil
}

// Dragging reports whether a vertex is held.
func (e *Editor) Dragging() bool { return e.drag != nil }

// AddVertexCandidate finds the edge closest to a screen point, within zoom/7 pixels,
// on the topmost shape whose handle bounds contain the point.
func (e *Editor) AddVertexCandidate(screen geom.Vec2) (VertexCandidate, bool) {
	if e.layout == nil || !e.drawPoints {
		return VertexCandidate{}, false
	}
	for i, s := range e.shapes.Backward() {
		if !e.handleBounds(s).Contains(screen) {
			continue
		}
		best := VertexCandidate{Distance: e.view.Zoom / addVertexReach, Index: -1}
		pixels := e.screenPoints(s)
		for j := range pixels {
			next := (j + 1) % len(pixels)
			foot, ok := geom.ClosestPointOnSegment(pixels[j], pixels[next], screen)
			if !ok {
				continue
			}
			if d := foot.Distance(screen); d < best.Distance {
				best = VertexCandidate{Shape: s, ShapeIndex: i, Index: next, Screen: foot.Round(), Distance: d}
			}
		}
		if best.Index >= 0 {
			return best, true
		}
	}
	return VertexCandidate{}, false
}

// InsertVertexAt inserts a vertex on the edge offered by AddVertexCandidate and starts
// dragging it.
func (e *Editor) InsertVertexAt(screen geom.Vec2) (VertexRef, error) {
	if !e.drawPoints {
		return VertexRef{}, ErrPointEditingOff
	}
	c, ok := e.AddVertexCandidate(screen)
	if !ok {
		return VertexRef{}, ErrNoVertex
	}
	if err := e.InsertVertex(c.ShapeIndex, c.Index, c.Screen); err != nil {
		return VertexRef{}, err
	}
	e.ClearSelection()
	e.drag = &vertexDrag{shape: c.Shape, index: c.Index}
	return VertexRef{Shape: c.Shape, ShapeIndex: c.ShapeIndex, Index: c.Index}, nil
}

// InsertVertex adds a vertex before index on shape shapeIndex at a screen position,
// then re-centers the shape.
func (e *Editor) InsertVertex(shapeIndex, index int, screen geom.Vec2) error {
	s, err := e.Shape(shapeIndex)
	if err != nil {
		return err
	}
	world := e.view.ToWorld(screen)
	if err := s.InsertPoint(index, world.Sub(s.Position().XY())); err != nil {
		return err
	}
	s.CalculateHitbox(true)
	return nil
}

// DeleteVertexAt removes the vertex under the cursor. Shapes at the minimum vertex
// count refuse and keep every point.
func (e *Editor) DeleteVertexAt(screen geom.Vec2) (VertexRef, error) {
	if !e.drawPoints {
		return VertexRef{}, ErrPointEditingOff
	}
	v, ok := e.VertexAt(screen)
	if !ok {
		return VertexRef{}, ErrNoVertex
	}
	if err := v.Shape.DeletePoint(v.Index); err != nil {
		slog.Debug("refused vertex delete", "shape", v.ShapeIndex, "vertex", v.Index, "error", err)
		return v, err
	}
	if e.drag != nil && e.drag.shape == v.Shape {
		e.drag = nil
	}
	v.Shape.CalculateHitbox(true)
	return v, nil
}

// handleBounds is a shape's screen bounding box grown by the vertex handle radius.
func (e *Editor) handleBounds(s *Shape) geom.Rect {
	box := e.view.Matrix().ApplyRect(s.Bounds())
	return box.Inflate(math.Round(e.view.Zoom * PointSelectedRadius))
}
