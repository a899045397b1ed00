package engine

import (
	"image/color"
	"math"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// Palette
var (
	ForegroundColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	HighlightColor     = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	SelectColor        = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	HitboxColor        = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	PointColor         = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	AddPointColor      = color.NRGBA{R: 80, G: 80, B: 255, A: 255}
	AnchorColor        = color.NRGBA{R: 235, G: 0, B: 50, A: 255}
	DynamicAnchorColor = color.NRGBA{R: 222, G: 168, B: 62, A: 255}
	AnchorBorderColor  = color.NRGBA{A: 255}
	StaticPinColor     = color.NRGBA{A: 255}
	PillarColor        = color.NRGBA{R: 195, G: 171, B: 149, A: 150}
	PillarBorderColor  = color.NRGBA{R: 105, G: 98, B: 91, A: 150}
)

// Sizes in world units, and line widths in pixels at the minimum zoom.
const (
	PointRadius         = 0.065
	PointSelectedRadius = PointRadius * 1.2
	AnchorRadius        = 0.16
	PinRadius           = 0.125

	terrainBorderWidth    = 2
	waterEdgeWidth        = 1
	shapeHighlightedWidth = 2
	hitboxCenterWidth     = 3
)

// Render records the viewport on every selectable and returns the frame's draw
// commands in painter's order: terrain, water, shapes, pillars, anchors.
func (e *Editor) Render() []DrawCommand {
	if e.layout == nil {
		return nil
	}
	e.viewDirty = true
	e.syncViewports()

	z := e.view.Zoom
	var cmds []DrawCommand

	for i, t := range e.terrain.All() {
		r := e.view.Matrix().ApplyRect(t.Rect())
		cmds = append(cmds, rectCmd(objectID(KindTerrainStretch, i), r, nil, ForegroundColor, lineWidth(terrainBorderWidth, z, 30)))
	}
	for i, w := range e.water.All() {
		a, b := w.Surface()
		cmds = append(cmds, lineCmd(objectID(KindWaterBlock, i), e.view.ToScreen(a), e.view.ToScreen(b), ForegroundColor, lineWidth(waterEdgeWidth, z, 30)))
	}
	for i, s := range e.shapes.All() {
		cmds = e.renderShape(cmds, i, s)
	}
	for i, s := range e.shapes.All() {
		cmds = e.renderVertices(cmds, i, s)
	}
	for i, p := range e.pillars.All() {
		cmds = e.renderPillar(cmds, i, p)
	}

	bound := make(map[string]bool)
	for _, s := range e.shapes.All() {
		for _, id := range s.attachments.AnchorIDs() {
			bound[id] = true
		}
	}
	if e.marquee != nil {
		cmds = append(cmds, rectCmd("", *e.marquee, nil, SelectColor, 1))
	}
	for i, a := range e.anchors.List().All() {
		fill := AnchorColor
		if bound[a.ID()] {
			fill = DynamicAnchorColor
		}
		c := e.view.ToScreen(a.Position().XY())
		half := z * AnchorRadius
		r := geom.Rect{X: c.X - half, Y: c.Y - half, Width: 2 * half, Height: 2 * half}
		cmds = append(cmds, rectCmd(objectID(KindAnchor, i), r, fill, AnchorBorderColor, math.Max(1, math.Round(r.Width/15))))
	}
	return cmds
}

func (e *Editor) renderShape(cmds []DrawCommand, i int, s *Shape) []DrawCommand {
	z := e.view.Zoom
	id := objectID(KindCustomShape, i)
	pixels := e.screenPoints(s)
	c := s.Color()
	cmds = append(cmds, polygonCmd(id, pixels, c, shade(c, 0.75), 1))

	for _, pin := range s.rec.StaticPins {
		cmds = append(cmds, circleCmd(id, e.view.ToScreen(pin.XY()), math.Round(z*PinRadius), StaticPinColor, StaticPinColor))
	}
	if s.Selected() {
		cmds = append(cmds, polygonCmd(id, pixels, nil, HighlightColor, lineWidth(shapeHighlightedWidth, z, 60)))
	}
	if e.drawHitboxes {
		box := e.view.Matrix().ApplyRect(s.Bounds())
		if e.drawPoints {
			box = box.Inflate(math.Round(z * PointSelectedRadius))
		}
		cmds = append(cmds, rectCmd(id, box, nil, HitboxColor, 1))
		cmds = append(cmds, e.centerMark(id, s.Position().XY()))
	}
	return cmds
}

// renderVertices draws vertex handles and the add-vertex preview. Handles go over every
// shape body so they stay grabbable where shapes overlap.
func (e *Editor) renderVertices(cmds []DrawCommand, i int, s *Shape) []DrawCommand {
	if !e.drawPoints {
		return cmds
	}
	z := e.view.Zoom
	id := objectID(KindCustomShape, i)
	for j, p := range e.screenPoints(s) {
		p = p.Round()
		if e.drag != nil && e.drag.shape == s && e.drag.index == j {
			cmds = append(cmds, circleCmd(id, p, math.Round(z*PointSelectedRadius), HighlightColor, shade(HighlightColor, 0.75)))
			continue
		}
		cmds = append(cmds, circleCmd(id, p, math.Round(z*PointRadius), PointColor, shade(PointColor, 0.75)))
	}
	if e.addMode && e.drag == nil {
		if c, ok := e.AddVertexCandidate(e.cursor); ok && c.Shape == s {
			cmds = append(cmds, circleCmd(id, c.Screen, math.Round(z*PinRadius/1.7), AddPointColor, AddPointColor))
		}
	}
	return cmds
}

func (e *Editor) renderPillar(cmds []DrawCommand, i int, p *Pillar) []DrawCommand {
	z := e.view.Zoom
	id := objectID(KindPillar, i)
	r := p.ScreenRect()
	if p.Selected() {
		cmds = append(cmds, rectCmd(id, r, PillarColor, HighlightColor, lineWidth(shapeHighlightedWidth, z, 60)))
	} else {
		cmds = append(cmds, rectCmd(id, r, PillarColor, PillarBorderColor, 1))
	}
	if e.drawHitboxes {
		cmds = append(cmds, rectCmd(id, r, nil, HitboxColor, 1))
		cmds = append(cmds, e.centerMark(id, p.Position().XY()))
	}
	return cmds
}

// centerMark is a short horizontal bar on an object's position.
func (e *Editor) centerMark(id string, pos geom.Vec2) DrawCommand {
	w := lineWidth(hitboxCenterWidth, e.view.Zoom, 30)
	c := e.view.ToScreen(pos)
	return lineCmd(id, geom.V2(math.Round(c.X-w/2), math.Round(c.Y)), geom.V2(math.Round(c.X+w/2), math.Round(c.Y)), HitboxColor, w)
}

// screenPoints returns a shape's vertices in pixels under the editor's viewport.
func (e *Editor) screenPoints(s *Shape) []geom.Vec2 {
	pts := s.WorldPoints()
	for i, p := range pts {
		pts[i] = e.view.ToScreen(p)
	}
	return pts
}
