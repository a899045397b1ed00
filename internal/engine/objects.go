package engine

import (
	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// Kind identifies the document list an object lives in.
type Kind int

const (
	KindTerrainStretch Kind = iota
	KindWaterBlock
	KindCustomShape
	KindPillar
	KindAnchor
)

func (k Kind) String() string {
	switch k {
	case KindTerrainStretch:
		return "terrainStretch"
	case KindWaterBlock:
		return "waterBlock"
	case KindCustomShape:
		return "customShape"
	case KindPillar:
		return "pillar"
	case KindAnchor:
		return "anchor"
	default:
		return "unknown"
	}
}

// ListName returns the layout key of the kind's list.
func (k Kind) ListName() string {
	switch k {
	case KindTerrainStretch:
		return document.ListTerrainStretches
	case KindWaterBlock:
		return document.ListWaterBlocks
	case KindCustomShape:
		return document.ListCustomShapes
	case KindPillar:
		return document.ListPillars
	case KindAnchor:
		return document.ListAnchors
	default:
		return ""
	}
}

// Selectable is implemented by the kinds the user can pick, move and hit-test.
type Selectable interface {
	Kind() Kind
	Selected() bool
	SetSelected(bool)
	Position() geom.Vec3
	SetPosition(geom.Vec3)
	// SetViewport is called by the render pass once per frame.
	SetViewport(geom.Viewport)
	CollidePoint(screen geom.Vec2) bool
	CollideRect(screen geom.Rect) bool
}

var (
	_ Selectable = (*Shape)(nil)
	_ Selectable = (*Pillar)(nil)
)

// Terrain island dimensions in world units.
const (
	TerrainMainWidth  = 25.25
	TerrainSmallWidth = 4.0
	TerrainBaseHeight = 5.0
)

// TerrainStretch is a view over an m_TerrainStretches record.
type TerrainStretch struct {
	rec *document.TerrainStretch
}

func (t *TerrainStretch) Record() *document.TerrainStretch { return t.rec }
func (t *TerrainStretch) Kind() Kind                       { return KindTerrainStretch }
func (t *TerrainStretch) Position() geom.Vec3              { return t.rec.Pos }
func (t *TerrainStretch) Flipped() bool                    { return t.rec.Flipped }
func (t *TerrainStretch) SetFlipped(v bool)                { t.rec.Flipped = v }

func (t *TerrainStretch) Width() float64 {
	if t.rec.IslandType == document.TerrainIslandMain {
		return TerrainMainWidth
	}
	return TerrainSmallWidth
}

// Height is measured from the water line, so it grows with the stretch's Y.
func (t *TerrainStretch) Height() float64 { return TerrainBaseHeight + t.rec.Pos.Y }

// Rect returns the stretch's world rectangle. Main islands extend away from the water;
// small islands start half a width from their position.
func (t *TerrainStretch) Rect() geom.Rect {
	w := t.Width()
	var x float64
	switch {
	case t.rec.IslandType == document.TerrainIslandMain && t.rec.Flipped:
		x = t.rec.Pos.X
	case t.rec.IslandType == document.TerrainIslandMain:
		x = t.rec.Pos.X - w
	case t.rec.Flipped:
		x = t.rec.Pos.X + w/2
	default:
		x = t.rec.Pos.X - w/2
	}
	return geom.Rect{X: x, Y: 0, Width: w, Height: t.Height()}
}

// WaterBlock is a view over an m_WaterBlocks record.
type WaterBlock struct {
	rec *document.WaterBlock
}

func (w *WaterBlock) Record() *document.WaterBlock { return w.rec }
func (w *WaterBlock) Kind() Kind                   { return KindWaterBlock }
func (w *WaterBlock) Position() geom.Vec3          { return w.rec.Pos }
func (w *WaterBlock) Width() float64               { return w.rec.Width }
func (w *WaterBlock) SetWidth(v float64)           { w.rec.Width = v }
func (w *WaterBlock) Height() float64              { return w.rec.Height }
func (w *WaterBlock) SetHeight(v float64)          { w.rec.Height = v }

// Surface returns the two world endpoints of the water line.
func (w *WaterBlock) Surface() (geom.Vec2, geom.Vec2) {
	half := w.rec.Width / 2
	return geom.V2(w.rec.Pos.X-half, w.rec.Height), geom.V2(w.rec.Pos.X+half, w.rec.Height)
}

// PillarWidth is the world width of every pillar.
const PillarWidth = 1.0

// Pillar is a view over an m_Pillars record. Pillars are hit-tested against the screen
// rectangle they were last drawn at.
type Pillar struct {
	rec      *document.Pillar
	selected bool
	view     geom.Viewport
}

func (p *Pillar) Record() *document.Pillar    { return p.rec }
func (p *Pillar) Kind() Kind                  { return KindPillar }
func (p *Pillar) Selected() bool              { return p.selected }
func (p *Pillar) SetSelected(v bool)          { p.selected = v }
func (p *Pillar) Position() geom.Vec3         { return p.rec.Pos }
func (p *Pillar) SetPosition(v geom.Vec3)     { p.rec.Pos = v }
func (p *Pillar) Height() float64             { return p.rec.Height }
func (p *Pillar) SetHeight(v float64)         { p.rec.Height = v }
func (p *Pillar) SetViewport(v geom.Viewport) { p.view = v }
func (p *Pillar) Viewport() geom.Viewport     { return p.view }

// Rect returns the pillar's world rectangle, standing on its position.
func (p *Pillar) Rect() geom.Rect {
	return geom.Rect{X: p.rec.Pos.X - PillarWidth/2, Y: p.rec.Pos.Y, Width: PillarWidth, Height: p.rec.Height}
}

// ScreenRect returns the pillar's rectangle in pixels under the recorded viewport.
func (p *Pillar) ScreenRect() geom.Rect {
	return p.view.Matrix().ApplyRect(p.Rect())
}

func (p *Pillar) CollidePoint(screen geom.Vec2) bool {
	if !p.view.Valid() {
		return false
	}
	return p.ScreenRect().Contains(screen)
}

func (p *Pillar) CollideRect(screen geom.Rect) bool {
	if !p.view.Valid() {
		return false
	}
	return p.ScreenRect().Intersects(screen)
}
