package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

var (
	ErrNoLayout        = errors.New("no layout loaded")
	ErrInvalidViewport = errors.New("viewport needs a positive zoom and a finite camera")
	ErrNotFound        = errors.New("object not found")
	ErrNotFinite       = errors.New("property values must be finite")
)

// Default canvas the initial viewport is centered for.
const (
	DefaultCanvasWidth  = 1200
	DefaultCanvasHeight = 600
	DefaultZoom         = 20
)

// Editor owns a layout and the views over it. It processes commands from the frontend
// and answers queries. An Editor is not safe for concurrent use; callers serialize
// access to it.
type Editor struct {
	opts   Options
	layout *document.Layout

	// Entity views, in paint order within each kind
	terrain *List[document.TerrainStretch, *TerrainStretch]
	water   *List[document.WaterBlock, *WaterBlock]
	shapes  *List[document.CustomShape, *Shape]
	pillars *List[document.Pillar, *Pillar]
	anchors *AnchorRegistry

	// View state
	view      geom.Viewport
	viewDirty bool

	// Overlays
	drawPoints   bool
	drawHitboxes bool
	cursor       geom.Vec2
	addMode      bool
	marquee      *geom.Rect

	drag *vertexDrag
}

// NewEditor creates an editor with no layout loaded.
func NewEditor(opts Options) *Editor {
	return &Editor{
		opts:      opts.withDefaults(),
		view:      DefaultViewport(DefaultCanvasWidth, DefaultCanvasHeight),
		viewDirty: true,
	}
}

// DefaultViewport centers the world origin horizontally on a canvas, a little below
// the middle, at the default zoom.
func DefaultViewport(width, height float64) geom.Viewport {
	return geom.Viewport{
		Zoom:   DefaultZoom,
		Camera: geom.V2(width/DefaultZoom/2, -(height/DefaultZoom/2 + 5)),
	}
}

// --- Commands (frontend → backend) ---

// Load takes ownership of a parsed layout and builds every view over it.
func (e *Editor) Load(l *document.Layout) {
	e.layout = l
	e.terrain = NewList(&l.TerrainStretches, func(r *document.TerrainStretch) *TerrainStretch {
		return &TerrainStretch{rec: r}
	})
	e.water = NewList(&l.WaterBlocks, func(r *document.WaterBlock) *WaterBlock {
		return &WaterBlock{rec: r}
	})
	e.anchors = NewAnchorRegistry(&l.Anchors)
	e.shapes = NewList(&l.CustomShapes, func(r *document.CustomShape) *Shape {
		return newShape(r, e.anchors, e.opts.HitboxResolution)
	})
	e.pillars = NewList(&l.Pillars, func(r *document.Pillar) *Pillar {
		return &Pillar{rec: r}
	})
	e.drag = nil
	e.viewDirty = true
}

// LoadJSON parses and loads a layout document.
func (e *Editor) LoadJSON(data []byte) error {
	l, err := document.Parse(data)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	e.Load(l)
	return nil
}

// LoadSample loads the built-in sample layout.
func (e *Editor) LoadSample() {
	e.Load(document.NewSampleLayout())
}

// SetViewport changes zoom and camera. Zoom is clamped to [ZoomMin, ZoomMax]. Hit
// queries use the viewport from the next frame on.
func (e *Editor) SetViewport(v geom.Viewport) error {
	if !v.Valid() || !finite(v.Camera.X, v.Camera.Y) {
		return ErrInvalidViewport
	}
	v.Zoom = min(max(v.Zoom, e.opts.ZoomMin), e.opts.ZoomMax)
	e.view = v
	e.viewDirty = true
	return nil
}

// Pan moves the camera by a screen-space delta.
func (e *Editor) Pan(delta geom.Vec2) {
	e.view.Camera.X += delta.X / e.view.Zoom
	e.view.Camera.Y -= delta.Y / e.view.Zoom
	e.viewDirty = true
}

// ZoomAt zooms in or out keeping the world point under the cursor fixed. Fine zoom, or
// a multiplicative step too small to change the rounded zoom, moves by one.
func (e *Editor) ZoomAt(screen geom.Vec2, in, fine bool) {
	before := e.view.ToWorld(screen)
	z, mult := e.view.Zoom, e.opts.ZoomMult
	if in {
		if !fine && math.Round(z*(mult-1)) >= 1 {
			z = math.Round(z * mult)
		} else {
			z++
		}
		z = math.Min(z, e.opts.ZoomMax)
	} else {
		if !fine && math.Round(z-z/mult) >= 1 {
			z = math.Round(z / mult)
		} else {
			z--
		}
		z = math.Max(z, e.opts.ZoomMin)
	}
	e.view.Zoom = z
	after := e.view.ToWorld(screen)
	e.view.Camera = e.view.Camera.Add(after.Sub(before))
	e.viewDirty = true
}

// SetDrawPoints turns vertex editing on or off.
func (e *Editor) SetDrawPoints(v bool) {
	e.drawPoints = v
	if !v {
		e.drag = nil
	}
}

// SetDrawHitboxes turns the hitbox overlay on or off.
func (e *Editor) SetDrawHitboxes(v bool) { e.drawHitboxes = v }

// SetCursor records the pointer for the add-vertex preview. addMode is the modifier that
// switches vertex clicks from grabbing to inserting.
func (e *Editor) SetCursor(screen geom.Vec2, addMode bool) {
	e.cursor = screen
	e.addMode = addMode
}

// SelectAt picks the topmost selectable under a screen point. A plain click on an
// unselected object replaces the selection; an additive click toggles the object.
// A plain click on empty space clears the selection.
func (e *Editor) SelectAt(screen geom.Vec2, additive bool) (Selectable, bool) {
	if e.layout == nil {
		return nil, false
	}
	e.syncViewports()
	objs := e.Selectables()
	for _, obj := range slices.Backward(objs) {
		if !obj.CollidePoint(screen) {
			continue
		}
		switch {
		case !obj.Selected():
			if !additive {
				e.ClearSelection()
			}
			obj.SetSelected(true)
		case additive:
			obj.SetSelected(false)
		}
		return obj, true
	}
	if !additive {
		e.ClearSelection()
	}
	return nil, false
}

// SelectRect selects every selectable overlapping a screen rectangle. Without additive
// the selection becomes exactly the overlapping objects. The rectangle is drawn as a
// marquee until EndSelectRect.
func (e *Editor) SelectRect(screen geom.Rect, additive bool) int {
	if e.layout == nil {
		return 0
	}
	e.syncViewports()
	screen = normalizeRect(screen)
	e.marquee = &screen
	n := 0
	for _, obj := range e.Selectables() {
		hit := obj.CollideRect(screen)
		if hit {
			n++
		}
		if !additive {
			obj.SetSelected(hit)
		} else if hit {
			obj.SetSelected(true)
		}
	}
	return n
}

// EndSelectRect stops drawing the selection marquee.
func (e *Editor) EndSelectRect() { e.marquee = nil }

// ClearSelection deselects everything.
func (e *Editor) ClearSelection() {
	for _, obj := range e.Selectables() {
		obj.SetSelected(false)
	}
}

// MoveSelection translates every selected object by a world delta and reports how many
// moved.
func (e *Editor) MoveSelection(delta geom.Vec2) int {
	sel := e.Selection()
	for _, obj := range sel {
		obj.SetPosition(obj.Position().AddXY(delta))
	}
	return len(sel)
}

// DeleteSelected removes every selected object. Anchors bound to a removed shape are
// removed too unless another shape still holds them. A vertex held on a removed shape
// is released.
func (e *Editor) DeleteSelected() int {
	if e.layout == nil {
		return 0
	}
	n := 0
	var released []string
	for _, s := range slices.Clone(e.shapes.items) {
		if !s.Selected() {
			continue
		}
		released = append(released, s.attachments.AnchorIDs()...)
		e.shapes.Remove(s)
		if e.drag != nil && e.drag.shape == s {
			e.drag = nil
		}
		n++
	}
	for _, p := range slices.Clone(e.pillars.items) {
		if p.Selected() {
			e.pillars.Remove(p)
			n++
		}
	}
	for _, id := range released {
		if !e.anchorInUse(id) {
			e.anchors.Remove(id)
		}
	}
	return n
}

func (e *Editor) anchorInUse(id string) bool {
	for _, s := range e.shapes.All() {
		if s.attachments.Bound(id) {
			return true
		}
	}
	return false
}

// DuplicateSelected copies every selected object, offsets the copies and moves the
// selection onto them. Copied shapes get copies of their anchors under new ids.
func (e *Editor) DuplicateSelected() int {
	if e.layout == nil {
		return 0
	}
	offset := e.opts.DuplicateOffset
	var shapes []*Shape
	for _, s := range e.shapes.All() {
		if !s.Selected() {
			continue
		}
		rec := s.rec.Clone()
		s.attachments.cloneInto(rec)
		dup := newShape(rec, e.anchors, e.opts.HitboxResolution)
		dup.SetPosition(dup.Position().AddXY(offset))
		s.SetSelected(false)
		dup.SetSelected(true)
		shapes = append(shapes, dup)
	}
	var pillars []*Pillar
	for _, p := range e.pillars.All() {
		if !p.Selected() {
			continue
		}
		dup := &Pillar{rec: p.rec.Clone()}
		dup.SetPosition(dup.Position().AddXY(offset))
		p.SetSelected(false)
		dup.SetSelected(true)
		pillars = append(pillars, dup)
	}
	for _, s := range shapes {
		e.shapes.Append(s)
	}
	for _, p := range pillars {
		e.pillars.Append(p)
	}
	e.viewDirty = true
	return len(shapes) + len(pillars)
}

// Properties are the editable fields of one shape.
type Properties struct {
	Position  geom.Vec3 `json:"position"`
	Scale     geom.Vec2 `json:"scale"`
	Rotations geom.Vec3 `json:"rotations"`
	Flipped   bool      `json:"flipped"`
	RGB       [3]uint8  `json:"rgb"`
}

// Properties returns the editable fields of shape i.
func (e *Editor) Properties(i int) (Properties, error) {
	s, err := e.Shape(i)
	if err != nil {
		return Properties{}, err
	}
	c := s.Color()
	return Properties{
		Position:  s.Position(),
		Scale:     s.Scale(),
		Rotations: s.Rotations(),
		Flipped:   s.Flipped(),
		RGB:       [3]uint8{c.R, c.G, c.B},
	}, nil
}

// ApplyProperties writes every field of p to shape i. A zero scale axis or a non-finite
// value refuses the whole edit.
func (e *Editor) ApplyProperties(i int, p Properties) error {
	s, err := e.Shape(i)
	if err != nil {
		return err
	}
	if !finite(p.Position.X, p.Position.Y, p.Position.Z, p.Scale.X, p.Scale.Y, p.Rotations.X, p.Rotations.Y, p.Rotations.Z) {
		slog.Debug("refused property edit", "shape", i, "error", ErrNotFinite)
		return ErrNotFinite
	}
	if p.Scale.X == 0 || p.Scale.Y == 0 {
		slog.Debug("refused property edit", "shape", i, "error", ErrZeroScale)
		return ErrZeroScale
	}
	s.SetPosition(p.Position)
	if err := s.SetScale(p.Scale); err != nil {
		return err
	}
	s.SetRotations(p.Rotations)
	s.SetFlipped(p.Flipped)
	s.SetRGB(p.RGB[0], p.RGB[1], p.RGB[2])
	s.CalculateHitbox(false)
	return nil
}

// ApplyColor recolors every selected shape, keeping each one's alpha.
func (e *Editor) ApplyColor(r, g, b uint8) int {
	n := 0
	for _, obj := range e.Selection() {
		if s, ok := obj.(*Shape); ok {
			s.SetRGB(r, g, b)
			n++
		}
	}
	return n
}

// --- Queries (frontend ← backend) ---

// Layout returns the loaded layout, or nil.
func (e *Editor) Layout() *document.Layout { return e.layout }

// LayoutJSON serializes the loaded layout.
func (e *Editor) LayoutJSON() ([]byte, error) {
	if e.layout == nil {
		return nil, ErrNoLayout
	}
	return json.Marshal(e.layout)
}

func (e *Editor) Options() Options         { return e.opts }
func (e *Editor) Viewport() geom.Viewport  { return e.view }
func (e *Editor) DrawPoints() bool         { return e.drawPoints }
func (e *Editor) DrawHitboxes() bool       { return e.drawHitboxes }
func (e *Editor) Anchors() *AnchorRegistry { return e.anchors }

// Shapes returns the shape list, or nil before a layout is loaded.
func (e *Editor) Shapes() *List[document.CustomShape, *Shape] { return e.shapes }

// Pillars returns the pillar list, or nil before a layout is loaded.
func (e *Editor) Pillars() *List[document.Pillar, *Pillar] { return e.pillars }

// Shape returns shape i.
func (e *Editor) Shape(i int) (*Shape, error) {
	if e.layout == nil {
		return nil, ErrNoLayout
	}
	s, ok := e.shapes.Get(i)
	if !ok {
		return nil, fmt.Errorf("shape %d: %w", i, ErrNotFound)
	}
	return s, nil
}

// Selectables returns every selectable object in paint order: shapes, then pillars.
func (e *Editor) Selectables() []Selectable {
	if e.layout == nil {
		return nil
	}
	out := make([]Selectable, 0, e.shapes.Len()+e.pillars.Len())
	for _, s := range e.shapes.All() {
		out = append(out, s)
	}
	for _, p := range e.pillars.All() {
		out = append(out, p)
	}
	return out
}

// Selection returns the selected objects in paint order.
func (e *Editor) Selection() []Selectable {
	var out []Selectable
	for _, obj := range e.Selectables() {
		if obj.Selected() {
			out = append(out, obj)
		}
	}
	return out
}

// SelectionIDs returns the object ids of the selection.
func (e *Editor) SelectionIDs() []string {
	ids := []string{}
	if e.layout == nil {
		return ids
	}
	for i, s := range e.shapes.All() {
		if s.Selected() {
			ids = append(ids, objectID(KindCustomShape, i))
		}
	}
	for i, p := range e.pillars.All() {
		if p.Selected() {
			ids = append(ids, objectID(KindPillar, i))
		}
	}
	return ids
}

// SelectionBounds returns the world bounding box of the selection.
func (e *Editor) SelectionBounds() geom.Rect {
	var result geom.Rect
	first := true
	for _, obj := range e.Selection() {
		var b geom.Rect
		switch o := obj.(type) {
		case *Shape:
			b = o.Bounds()
		case *Pillar:
			b = o.Rect()
		}
		if first {
			result = b
			first = false
		} else {
			result = result.Union(b)
		}
	}
	return result
}

// syncViewports hands the current viewport to every selectable when it changed since
// the last frame. It is the only writer of the per-object viewport.
func (e *Editor) syncViewports() {
	if !e.viewDirty || e.layout == nil {
		return
	}
	for _, obj := range e.Selectables() {
		obj.SetViewport(e.view)
	}
	e.viewDirty = false
}

func normalizeRect(r geom.Rect) geom.Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}
