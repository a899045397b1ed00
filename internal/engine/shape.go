package engine

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// eps is the smallest rotation or scale change that moves attachments.
const eps = 1e-6

// MinPoints is the smallest vertex count a shape may have.
const MinPoints = 3

var (
	ErrTooFewPoints    = errors.New("shape needs at least 3 points")
	ErrZeroScale       = errors.New("scale axis must be non-zero")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Shape is a view over an m_CustomShapes record. Every setter writes straight through
// to the record and replays its transform on the shape's attachments.
//
// The hit mask is built in object-local raster units and rebuilt lazily: geometry setters
// mark it dirty and every query rebuilds it first.
type Shape struct {
	rec         *document.CustomShape
	attachments *Attachments
	resolution  float64

	selected bool
	view     geom.Viewport

	mask         *HitMask
	bounds       geom.Rect
	raster       float64 // resolution the mask was built at
	centerOffset geom.Vec2
	dirty        bool
}

func newShape(rec *document.CustomShape, registry *AnchorRegistry, resolution float64) *Shape {
	s := &Shape{
		rec:         rec,
		attachments: newAttachments(rec, registry),
		resolution:  resolution,
	}
	s.CalculateHitbox(false)
	return s
}

func (s *Shape) Record() *document.CustomShape { return s.rec }
func (s *Shape) Kind() Kind                    { return KindCustomShape }
func (s *Shape) Attachments() *Attachments     { return s.attachments }

func (s *Shape) Selected() bool     { return s.selected }
func (s *Shape) SetSelected(v bool) { s.selected = v }

// --- Transform ---

func (s *Shape) Position() geom.Vec3 { return s.rec.Pos }

// SetPosition moves the shape and shifts every pin and bound anchor by the same delta.
func (s *Shape) SetPosition(p geom.Vec3) {
	delta := p.XY().Sub(s.rec.Pos.XY())
	s.rec.Pos = p
	s.attachments.Translate(delta)
}

// Rotation returns the Z rotation in degrees.
func (s *Shape) Rotation() float64 { return s.rec.RotationDegrees }

// SetRotation changes the Z rotation, keeping the X and Y tilt.
func (s *Shape) SetRotation(deg float64) {
	r := s.Rotations()
	r.Z = deg
	s.SetRotations(r)
}

// Rotations returns the X and Y tilt stored in the quaternion and the edited Z rotation.
func (s *Shape) Rotations() geom.Vec3 {
	e := s.rec.Rot.Euler()
	return geom.Vec3{X: e.X, Y: e.Y, Z: s.rec.RotationDegrees}
}

// SetRotations writes all three Euler angles. Pins and anchors turn with the Z delta
// about the shape's position.
func (s *Shape) SetRotations(r geom.Vec3) {
	delta := r.Z - s.rec.RotationDegrees
	s.rec.Rot = geom.QuaternionFromEuler(r.X, r.Y, r.Z)
	s.rec.RotationDegrees = r.Z
	if math.Abs(delta) > eps {
		s.attachments.Rotate(delta, s.rec.Pos.XY())
	}
	s.dirty = true
}

func (s *Shape) Scale() geom.Vec2 { return s.rec.Scale.XY() }

// SetScale changes the XY scale. Attachments are stretched in the shape's unrotated frame.
func (s *Shape) SetScale(v geom.Vec2) error {
	if v.X == 0 || v.Y == 0 {
		return ErrZeroScale
	}
	ratio := v.DivVec(s.rec.Scale.XY())
	if math.Abs(ratio.X-1) > eps || math.Abs(ratio.Y-1) > eps {
		s.attachments.Scale(s.rec.Pos.XY(), s.rec.RotationDegrees, ratio)
	}
	s.rec.Scale = s.rec.Scale.WithXY(v)
	s.dirty = true
	return nil
}

func (s *Shape) Flipped() bool { return s.rec.Flipped }

// SetFlipped mirrors the shape. Attachments are mirrored only when the value changes.
func (s *Shape) SetFlipped(v bool) {
	if v == s.rec.Flipped {
		return
	}
	s.rec.Flipped = v
	s.attachments.Flip(s.rec.Pos.XY(), s.rec.RotationDegrees)
	s.dirty = true
}

// --- Color ---

func (s *Shape) Color() color.NRGBA {
	c := s.rec.Color
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func (s *Shape) SetColor(c color.NRGBA) {
	s.rec.Color = document.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

// SetRGB replaces the color channels and keeps alpha.
func (s *Shape) SetRGB(r, g, b uint8) {
	c := s.Color()
	c.R, c.G, c.B = r, g, b
	a := s.rec.Color.A
	s.SetColor(c)
	s.rec.Color.A = a
}

func unit8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// --- Geometry ---

// LocalPoints returns a copy of the stored vertices.
func (s *Shape) LocalPoints() []geom.Vec2 { return slices.Clone(s.rec.PointsLocalSpace) }

// Points returns the vertices relative to the shape's position: scaled, flipped, then rotated.
func (s *Shape) Points() []geom.Vec2 {
	out := make([]geom.Vec2, len(s.rec.PointsLocalSpace))
	for i, p := range s.rec.PointsLocalSpace {
		out[i] = s.toWorld(p)
	}
	return out
}

// WorldPoints returns the absolute vertex positions.
func (s *Shape) WorldPoints() []geom.Vec2 {
	pos := s.rec.Pos.XY()
	pts := s.Points()
	for i := range pts {
		pts[i] = pts[i].Add(pos)
	}
	return pts
}

// SetPoints stores new position-relative vertices through the inverse pipeline.
// A vertex equal to one the shape currently derives keeps its stored local value, so
// writing back what Points returned leaves the record bit-identical.
func (s *Shape) SetPoints(pts []geom.Vec2) error {
	if len(pts) < MinPoints {
		return ErrTooFewPoints
	}
	if s.rec.Scale.X == 0 || s.rec.Scale.Y == 0 {
		return ErrZeroScale
	}
	known := make(map[geom.Vec2]geom.Vec2, len(s.rec.PointsLocalSpace))
	for _, p := range s.rec.PointsLocalSpace {
		known[s.toWorld(p)] = p
	}
	local := make([]geom.Vec2, len(pts))
	for i, p := range pts {
		if l, ok := known[p]; ok {
			local[i] = l
			continue
		}
		local[i] = s.toLocal(p)
	}
	s.rec.PointsLocalSpace = local
	s.dirty = true
	return nil
}

// InsertPoint adds a vertex before index i, given relative to the shape's position.
func (s *Shape) InsertPoint(i int, p geom.Vec2) error {
	if i < 0 || i > len(s.rec.PointsLocalSpace) {
		return fmt.Errorf("insert point %d: %w", i, ErrIndexOutOfRange)
	}
	s.rec.PointsLocalSpace = slices.Insert(s.rec.PointsLocalSpace, i, s.toLocal(p))
	s.dirty = true
	return nil
}

// DeletePoint removes vertex i. Shapes never drop below MinPoints.
func (s *Shape) DeletePoint(i int) error {
	if i < 0 || i >= len(s.rec.PointsLocalSpace) {
		return fmt.Errorf("delete point %d: %w", i, ErrIndexOutOfRange)
	}
	if len(s.rec.PointsLocalSpace) <= MinPoints {
		return ErrTooFewPoints
	}
	s.rec.PointsLocalSpace = slices.Delete(s.rec.PointsLocalSpace, i, i+1)
	s.dirty = true
	return nil
}

// MovePoint places vertex i at p, relative to the shape's position.
func (s *Shape) MovePoint(i int, p geom.Vec2) error {
	if i < 0 || i >= len(s.rec.PointsLocalSpace) {
		return fmt.Errorf("move point %d: %w", i, ErrIndexOutOfRange)
	}
	s.rec.PointsLocalSpace[i] = s.toLocal(p)
	s.dirty = true
	return nil
}

func (s *Shape) toWorld(p geom.Vec2) geom.Vec2 {
	q := p.MulVec(s.rec.Scale.XY()).FlipX(s.rec.Flipped)
	return geom.Rotate(q, s.rec.RotationDegrees, geom.Vec2{})
}

func (s *Shape) toLocal(p geom.Vec2) geom.Vec2 {
	q := geom.Rotate(p, -s.rec.RotationDegrees, geom.Vec2{})
	return q.FlipX(s.rec.Flipped).DivVec(s.rec.Scale.XY())
}

// --- Hitbox ---

// CalculateHitbox rebuilds the hit mask from the current geometry.
//
// With alignCenter the position moves to the center of the polygon's bounds and the
// vertices are re-expressed around it; pins and anchors stay where they are. Otherwise
// only the offset between the position and that center is recorded.
func (s *Shape) CalculateHitbox(alignCenter bool) {
	pts := s.Points()
	center := geom.BoundsOf(pts).Center()
	if alignCenter && center != (geom.Vec2{}) {
		s.rec.Pos = s.rec.Pos.AddXY(center)
		local := make([]geom.Vec2, len(pts))
		for i, p := range pts {
			local[i] = s.toLocal(p.Sub(center))
		}
		s.rec.PointsLocalSpace = local
		pts = s.Points()
	}
	if alignCenter {
		s.centerOffset = geom.Vec2{}
	} else {
		s.centerOffset = center.Mul(-1)
	}
	s.mask, s.bounds, s.raster = BuildHitMask(pts, s.resolution)
	s.dirty = false
}

// CenterOffset is the position minus the center of the polygon's bounds.
func (s *Shape) CenterOffset() geom.Vec2 { return s.centerOffset }

// HitMask returns the current mask, rebuilding it first when geometry changed.
func (s *Shape) HitMask() *HitMask {
	s.ensureHitbox()
	return s.mask
}

// Bounds returns the world-space bounding box of the polygon.
func (s *Shape) Bounds() geom.Rect {
	s.ensureHitbox()
	b := s.bounds
	b.X += s.rec.Pos.X
	b.Y += s.rec.Pos.Y
	return b
}

func (s *Shape) ensureHitbox() {
	if s.dirty || s.mask == nil {
		s.CalculateHitbox(false)
	}
}
