package engine

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// testEditor loads a layout with a triangle at (5,5) bound to anchor "a-1", a square at
// (0,5), a pillar at (10,0) and one main terrain stretch.
func testEditor(t *testing.T) *Editor {
	t.Helper()
	tri := triangle(geom.V2(5, 5))
	tri.StaticPins = []geom.Vec3{{X: 5, Y: 1}}
	tri.DynamicAnchorGuids = []string{"a-1"}
	l := &document.Layout{
		TerrainStretches: []*document.TerrainStretch{{Pos: geom.Vec3{X: -12}}},
		WaterBlocks:      []*document.WaterBlock{{Width: 24, Height: 1}},
		CustomShapes:     []*document.CustomShape{tri, square(geom.V2(0, 5))},
		Pillars:          []*document.Pillar{{Pos: geom.Vec3{X: 10}, Height: 4}},
		Anchors:          []*document.Anchor{{Pos: geom.Vec3{X: 6, Y: 6}, GUID: "a-1"}},
	}
	e := NewEditor(Options{})
	e.Load(l)
	if err := e.SetViewport(testView); err != nil {
		t.Fatal(err)
	}
	e.Render()
	return e
}

func screenOf(e *Editor, x, y float64) geom.Vec2 {
	return e.Viewport().ToScreen(geom.V2(x, y))
}

func assertListsInSync(t *testing.T, e *Editor) {
	t.Helper()
	l := e.Layout()
	if len(l.CustomShapes) != e.Shapes().Len() {
		t.Fatalf("shape lists out of sync: %d records, %d views", len(l.CustomShapes), e.Shapes().Len())
	}
	for i, s := range e.Shapes().All() {
		if l.CustomShapes[i] != s.Record() {
			t.Errorf("shape %d wraps the wrong record", i)
		}
	}
	if len(l.Anchors) != e.Anchors().Len() {
		t.Fatalf("anchor lists out of sync: %d records, %d views", len(l.Anchors), e.Anchors().Len())
	}
	for i, a := range e.Anchors().List().All() {
		if l.Anchors[i] != a.Record() {
			t.Errorf("anchor %d wraps the wrong record", i)
		}
	}
	if len(l.Pillars) != e.Pillars().Len() {
		t.Fatalf("pillar lists out of sync")
	}
}

func TestSelectAt(t *testing.T) {
	e := testEditor(t)
	tri, _ := e.Shape(0)
	sq, _ := e.Shape(1)

	obj, ok := e.SelectAt(screenOf(e, 0, 5), false)
	if !ok || obj != Selectable(sq) || !sq.Selected() {
		t.Fatalf("expected the square to be selected, got %v %v", obj, ok)
	}

	e.SelectAt(screenOf(e, 6, 5.5), true)
	if !tri.Selected() || !sq.Selected() {
		t.Error("additive click should extend the selection")
	}

	e.SelectAt(screenOf(e, 0, 5), true)
	if sq.Selected() {
		t.Error("additive click on a selected object should deselect it")
	}

	e.SelectAt(screenOf(e, 10, 2), false)
	if tri.Selected() {
		t.Error("plain click should replace the selection")
	}
	if got := e.SelectionIDs(); !slices.Equal(got, []string{"m_Pillars/0"}) {
		t.Errorf("selection = %v", got)
	}

	if _, ok := e.SelectAt(screenOf(e, -30, 30), false); ok {
		t.Error("empty space should not hit")
	}
	if len(e.Selection()) != 0 {
		t.Error("plain click on empty space should clear the selection")
	}
}

func TestSelectRect(t *testing.T) {
	e := testEditor(t)
	world := geom.Rect{X: -2, Y: 3, Width: 4, Height: 4}
	screen := e.Viewport().Matrix().ApplyRect(world)

	if n := e.SelectRect(screen, false); n != 1 {
		t.Fatalf("expected 1 hit, got %d", n)
	}
	if got := e.SelectionIDs(); !slices.Equal(got, []string{"m_CustomShapes/1"}) {
		t.Errorf("selection = %v", got)
	}

	all := e.Viewport().Matrix().ApplyRect(geom.Rect{X: -5, Y: -1, Width: 20, Height: 10})
	// Dragging up and left gives a negative size.
	flipped := geom.Rect{X: all.X + all.Width, Y: all.Y + all.Height, Width: -all.Width, Height: -all.Height}
	if n := e.SelectRect(flipped, true); n != 3 {
		t.Errorf("expected 3 hits, got %d", n)
	}
	if len(e.Selection()) != 3 {
		t.Errorf("expected everything selected, got %v", e.SelectionIDs())
	}
	e.EndSelectRect()
}

func TestMoveSelectionCarriesAttachments(t *testing.T) {
	e := testEditor(t)
	tri, _ := e.Shape(0)
	tri.SetSelected(true)

	if n := e.MoveSelection(geom.V2(2, 0)); n != 1 {
		t.Fatalf("moved %d objects", n)
	}
	approxVec(t, tri.Position().XY(), geom.V2(7, 5))
	approxVec(t, tri.Record().StaticPins[0].XY(), geom.V2(7, 1))
	a, _ := e.Anchors().Get("a-1")
	approxVec(t, a.Position().XY(), geom.V2(8, 6))
}

func TestDuplicateIsIndependent(t *testing.T) {
	e := testEditor(t)
	src, _ := e.Shape(0)
	src.SetSelected(true)

	if n := e.DuplicateSelected(); n != 1 {
		t.Fatalf("duplicated %d objects", n)
	}
	assertListsInSync(t, e)
	if e.Shapes().Len() != 3 || e.Anchors().Len() != 2 {
		t.Fatalf("got %d shapes, %d anchors", e.Shapes().Len(), e.Anchors().Len())
	}
	dup, _ := e.Shape(2)
	if src.Selected() || !dup.Selected() {
		t.Error("selection should move to the duplicate")
	}

	ids := dup.Record().DynamicAnchorGuids
	if len(ids) != 1 || ids[0] == "a-1" {
		t.Fatalf("duplicate anchor ids = %v", ids)
	}
	offset := e.Options().DuplicateOffset
	approxVec(t, dup.Position().XY(), src.Position().XY().Add(offset))
	approxVec(t, dup.Record().StaticPins[0].XY(), src.Record().StaticPins[0].XY().Add(offset))

	srcAnchor, _ := e.Anchors().Get("a-1")
	dupAnchor, _ := e.Anchors().Get(ids[0])
	approxVec(t, dupAnchor.Position().XY(), srcAnchor.Position().XY().Add(offset))

	before := srcAnchor.Position()
	dup.SetPosition(dup.Position().AddXY(geom.V2(3, 3)))
	dup.SetRotation(45)
	if srcAnchor.Position() != before {
		t.Error("moving the duplicate moved the source's anchor")
	}
	if &dup.Record().StaticPins[0] == &src.Record().StaticPins[0] {
		t.Error("duplicate shares pins with its source")
	}
}

func TestDeleteSelectedReleasesAnchors(t *testing.T) {
	e := testEditor(t)
	tri, _ := e.Shape(0)
	sq, _ := e.Shape(1)
	// Bind the square to the same anchor.
	sq.Record().DynamicAnchorGuids = []string{"a-1"}
	sq.attachments = newAttachments(sq.Record(), e.Anchors())

	tri.SetSelected(true)
	if n := e.DeleteSelected(); n != 1 {
		t.Fatalf("deleted %d objects", n)
	}
	assertListsInSync(t, e)
	if _, ok := e.Anchors().Get("a-1"); !ok {
		t.Fatal("anchor still held by the square was removed")
	}

	sq.SetSelected(true)
	e.Pillars().At(0).SetSelected(true)
	if n := e.DeleteSelected(); n != 2 {
		t.Fatalf("deleted %d objects", n)
	}
	assertListsInSync(t, e)
	if e.Anchors().Len() != 0 {
		t.Error("anchor held by no shape should be removed")
	}
}

func TestApplyProperties(t *testing.T) {
	e := testEditor(t)
	p, err := e.Properties(0)
	if err != nil {
		t.Fatal(err)
	}
	p.Position = geom.Vec3{X: 7, Y: 5, Z: 4}
	p.RGB = [3]uint8{0, 0, 255}
	p.Flipped = true
	if err := e.ApplyProperties(0, p); err != nil {
		t.Fatal(err)
	}
	s, _ := e.Shape(0)
	if s.Position().Z != 4 || !s.Flipped() || s.Color().B != 255 {
		t.Errorf("properties not applied: %+v", p)
	}
	// Moved by (2,0), then mirrored about x=7.
	approxVec(t, s.Record().StaticPins[0].XY(), geom.V2(7, 1))

	p.Scale = geom.V2(0, 1)
	p.Position = geom.Vec3{X: 100}
	if err := e.ApplyProperties(0, p); !errors.Is(err, ErrZeroScale) {
		t.Errorf("expected ErrZeroScale, got %v", err)
	}
	if s.Position().X != 7 {
		t.Error("refused edit changed the shape")
	}
	if _, err := e.Properties(9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyPropertiesLargeScale(t *testing.T) {
	e := testEditor(t)
	p, err := e.Properties(1)
	if err != nil {
		t.Fatal(err)
	}
	p.Scale = geom.V2(1e8, 1e8)
	if err := e.ApplyProperties(1, p); err != nil {
		t.Fatal(err)
	}
	sq, _ := e.Shape(1)
	if m := sq.HitMask(); m.Width() > MaxMaskSide || m.Height() > MaxMaskSide {
		t.Errorf("mask size = %dx%d", m.Width(), m.Height())
	}
	if obj, ok := e.SelectAt(screenOf(e, 0, 5), false); !ok || obj != Selectable(sq) {
		t.Error("the scaled square should be hit at its position")
	}

	p.Position = geom.Vec3{X: 100}
	p.Scale = geom.V2(math.Inf(1), 1)
	if err := e.ApplyProperties(1, p); !errors.Is(err, ErrNotFinite) {
		t.Errorf("expected ErrNotFinite, got %v", err)
	}
	if sq.Position().X != 0 || sq.Scale() != geom.V2(1e8, 1e8) {
		t.Error("refused edit changed the shape")
	}
}

func TestDeleteReleasesHeldVertex(t *testing.T) {
	e := testEditor(t)
	e.SetDrawPoints(true)
	if _, err := e.BeginVertexDrag(screenOf(e, 1, 6)); err != nil {
		t.Fatal(err)
	}
	tri, _ := e.Shape(0)
	tri.SetSelected(true)
	e.DeleteSelected()
	if !e.Dragging() {
		t.Fatal("deleting another shape released the vertex")
	}

	sq, _ := e.Shape(0)
	sq.SetSelected(true)
	if n := e.DeleteSelected(); n != 1 {
		t.Fatalf("deleted %d objects", n)
	}
	if e.Dragging() {
		t.Error("vertex of a deleted shape is still held")
	}
	if err := e.DragVertex(geom.V2(1, 0)); !errors.Is(err, ErrNoVertexDrag) {
		t.Errorf("expected ErrNoVertexDrag, got %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	if got := NewEditor(Options{}).Options(); got != DefaultOptions() {
		t.Errorf("zero options = %+v, want defaults", got)
	}
	opts := DefaultOptions()
	opts.DuplicateOffset = geom.Vec2{}
	opts.ZoomMult = 0
	got := NewEditor(opts).Options()
	if got.DuplicateOffset != (geom.Vec2{}) {
		t.Errorf("zero duplicate offset replaced by %v", got.DuplicateOffset)
	}
	if got.ZoomMult != DefaultOptions().ZoomMult {
		t.Errorf("zoom mult = %v, want default", got.ZoomMult)
	}
}

func TestApplyColorToSelection(t *testing.T) {
	e := testEditor(t)
	e.SelectRect(e.Viewport().Matrix().ApplyRect(geom.Rect{X: -5, Y: -1, Width: 20, Height: 10}), false)
	if n := e.ApplyColor(1, 2, 3); n != 2 {
		t.Errorf("recolored %d shapes, want 2", n)
	}
}

func TestZoomAtKeepsCursorFixed(t *testing.T) {
	e := testEditor(t)
	cursor := geom.V2(400, 250)
	before := e.Viewport().ToWorld(cursor)

	e.ZoomAt(cursor, true, false)
	if e.Viewport().Zoom != 22 {
		t.Errorf("zoom = %v, want 22", e.Viewport().Zoom)
	}
	approxVec(t, e.Viewport().ToWorld(cursor), before)

	e.ZoomAt(cursor, false, true)
	if e.Viewport().Zoom != 21 {
		t.Errorf("fine zoom = %v, want 21", e.Viewport().Zoom)
	}
	for range 100 {
		e.ZoomAt(cursor, false, false)
	}
	if e.Viewport().Zoom != e.Options().ZoomMin {
		t.Errorf("zoom = %v, want clamped to %v", e.Viewport().Zoom, e.Options().ZoomMin)
	}
	approxVec(t, e.Viewport().ToWorld(cursor), before)
}

func TestSelectRectHugeRect(t *testing.T) {
	e := testEditor(t)
	if n := e.SelectRect(geom.Rect{Width: 1e8, Height: 1e8}, false); n != 3 {
		t.Errorf("expected 3 hits, got %d", n)
	}

	if err := e.SetViewport(geom.Viewport{Zoom: 1e-9}); err != nil {
		t.Fatal(err)
	}
	if z := e.Viewport().Zoom; z != e.Options().ZoomMin {
		t.Errorf("zoom = %v, want clamped to %v", z, e.Options().ZoomMin)
	}
	huge := geom.Rect{X: -1e8, Y: -1e8, Width: 2e8, Height: 2e8}
	if n := e.SelectRect(huge, false); n != 3 {
		t.Errorf("expected 3 hits when zoomed out, got %d", n)
	}
	if n := e.SelectRect(geom.Rect{X: 1e8, Y: 1e8, Width: 1e8, Height: 1e8}, false); n != 0 {
		t.Errorf("expected no hits far away, got %d", n)
	}
}

func TestSetViewportClampsZoom(t *testing.T) {
	e := testEditor(t)
	if err := e.SetViewport(geom.Viewport{Zoom: 1e9}); err != nil {
		t.Fatal(err)
	}
	if z := e.Viewport().Zoom; z != e.Options().ZoomMax {
		t.Errorf("zoom = %v, want clamped to %v", z, e.Options().ZoomMax)
	}
	bad := geom.Viewport{Zoom: 20, Camera: geom.V2(math.NaN(), 0)}
	if err := e.SetViewport(bad); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("expected ErrInvalidViewport, got %v", err)
	}
}

func TestSelectionUsesLatestViewport(t *testing.T) {
	e := testEditor(t)
	e.Pan(geom.V2(100, 0))
	// The square is now 100 pixels further right.
	if _, ok := e.SelectAt(screenOf(e, 0, 5), false); !ok {
		t.Error("selection used a stale viewport")
	}
	if err := e.SetViewport(geom.Viewport{}); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("expected ErrInvalidViewport, got %v", err)
	}
}

func TestVertexEditing(t *testing.T) {
	e := testEditor(t)
	if _, err := e.DeleteVertexAt(screenOf(e, 5, 5)); !errors.Is(err, ErrPointEditingOff) {
		t.Fatalf("expected ErrPointEditingOff, got %v", err)
	}
	e.SetDrawPoints(true)

	tri, _ := e.Shape(0)
	if _, err := e.DeleteVertexAt(screenOf(e, 5, 5)); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
	if len(tri.LocalPoints()) != 3 {
		t.Error("triangle lost a vertex")
	}

	sq, _ := e.Shape(1)
	v, err := e.DeleteVertexAt(screenOf(e, 1, 6))
	if err != nil {
		t.Fatal(err)
	}
	if v.Shape != sq || v.Index != 2 || len(sq.LocalPoints()) != 3 {
		t.Errorf("deleted %+v, square has %d points", v, len(sq.LocalPoints()))
	}
}

func TestInsertAndDragVertex(t *testing.T) {
	e := testEditor(t)
	e.SetDrawPoints(true)
	sq, _ := e.Shape(1)

	c, ok := e.AddVertexCandidate(screenOf(e, 1, 5))
	if !ok || c.Shape != sq || c.Index != 2 {
		t.Fatalf("candidate = %+v, %v", c, ok)
	}
	if _, ok := e.AddVertexCandidate(screenOf(e, 0, 5)); ok {
		t.Error("the middle of the square is out of reach of every edge")
	}

	v, err := e.InsertVertexAt(screenOf(e, 1, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(sq.LocalPoints()) != 5 || !e.Dragging() {
		t.Fatalf("insert did not add a held vertex: %v", sq.LocalPoints())
	}
	approxVec(t, sq.WorldPoints()[v.Index], geom.V2(1, 5))

	if err := e.DragVertex(geom.V2(2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := e.EndVertexDrag(); err != nil {
		t.Fatal(err)
	}
	approxVec(t, sq.WorldPoints()[v.Index], geom.V2(3, 5))
	// Bounds now span x in [-1, 3]; the position moves to their center.
	approxVec(t, sq.Position().XY(), geom.V2(1, 5))
	if err := e.EndVertexDrag(); !errors.Is(err, ErrNoVertexDrag) {
		t.Errorf("expected ErrNoVertexDrag, got %v", err)
	}
}

func TestRenderPainterOrder(t *testing.T) {
	e := testEditor(t)
	e.SetDrawHitboxes(true)
	cmds := e.Render()
	if len(cmds) == 0 {
		t.Fatal("no draw commands")
	}
	if cmds[0].ObjectID != "m_TerrainStretches/0" || cmds[0].Op != OpRect {
		t.Errorf("first command = %+v", cmds[0])
	}
	last := cmds[len(cmds)-1]
	if last.ObjectID != "m_Anchors/0" || last.Fill != hex(DynamicAnchorColor) {
		t.Errorf("last command = %+v", last)
	}

	js, err := DrawCommandsToJSON(cmds)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []DrawCommand
	if err := json.Unmarshal([]byte(js), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(cmds) {
		t.Errorf("decoded %d commands, want %d", len(decoded), len(cmds))
	}
	if !strings.Contains(js, `"op":"polygon"`) {
		t.Error("expected shape polygons")
	}
}

func TestLayoutJSONRoundTrip(t *testing.T) {
	e := NewEditor(DefaultOptions())
	if _, err := e.LayoutJSON(); !errors.Is(err, ErrNoLayout) {
		t.Errorf("expected ErrNoLayout, got %v", err)
	}
	e.LoadSample()
	data, err := e.LayoutJSON()
	if err != nil {
		t.Fatal(err)
	}
	other := NewEditor(DefaultOptions())
	if err := other.LoadJSON(data); err != nil {
		t.Fatal(err)
	}
	if other.Shapes().Len() != e.Shapes().Len() {
		t.Errorf("round trip lost shapes")
	}
	if err := other.LoadJSON([]byte("{")); err == nil {
		t.Error("expected parse error")
	}
}
