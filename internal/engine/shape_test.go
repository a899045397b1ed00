package engine

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

const tol = 1e-9

func approxVec(t *testing.T, got, want geom.Vec2) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func shapeRecord(pos geom.Vec2, pts ...geom.Vec2) *document.CustomShape {
	return &document.CustomShape{
		Pos:                geom.Vec3{X: pos.X, Y: pos.Y, Z: -1},
		Rot:                geom.IdentityQuaternion,
		Scale:              geom.Vec3{X: 1, Y: 1, Z: 1},
		Color:              document.Color{R: 1, G: 0.5, B: 0, A: 0.8},
		PointsLocalSpace:   pts,
		StaticPins:         []geom.Vec3{},
		DynamicAnchorGuids: []string{},
	}
}

func triangle(pos geom.Vec2) *document.CustomShape {
	return shapeRecord(pos, geom.V2(0, 0), geom.V2(2, 0), geom.V2(1, 2))
}

func square(pos geom.Vec2) *document.CustomShape {
	return shapeRecord(pos, geom.V2(-1, -1), geom.V2(1, -1), geom.V2(1, 1), geom.V2(-1, 1))
}

// attachedShape builds a triangle at (5,5) with a pin at (5,1) and anchor "a-1" at (6,6).
func attachedShape(t *testing.T) (*Shape, *AnchorRegistry) {
	t.Helper()
	anchors := []*document.Anchor{{Pos: geom.Vec3{X: 6, Y: 6, Z: 2}, GUID: "a-1"}}
	reg := NewAnchorRegistry(&anchors)
	rec := triangle(geom.V2(5, 5))
	rec.StaticPins = []geom.Vec3{{X: 5, Y: 1, Z: 3}}
	rec.DynamicAnchorGuids = []string{"a-1"}
	return newShape(rec, reg, DefaultOptions().HitboxResolution), reg
}

func anchorPos(t *testing.T, reg *AnchorRegistry, id string) geom.Vec2 {
	t.Helper()
	a, ok := reg.Get(id)
	if !ok {
		t.Fatalf("anchor %s missing", id)
	}
	return a.Position().XY()
}

func TestConcreteScenario(t *testing.T) {
	s, reg := attachedShape(t)

	want := []geom.Vec2{geom.V2(0, 0), geom.V2(2, 0), geom.V2(1, 2)}
	if got := s.Points(); !slices.Equal(got, want) {
		t.Fatalf("points = %v, want %v", got, want)
	}

	s.SetPosition(geom.Vec3{X: 7, Y: 5, Z: -1})
	approxVec(t, s.Record().StaticPins[0].XY(), geom.V2(7, 1))
	approxVec(t, anchorPos(t, reg, "a-1"), geom.V2(8, 6))
	if s.Record().StaticPins[0].Z != 3 {
		t.Errorf("pin depth changed to %v", s.Record().StaticPins[0].Z)
	}
}

func TestTranslationMovesAttachments(t *testing.T) {
	deltas := []geom.Vec2{geom.V2(0, 0), geom.V2(-3.5, 2.25), geom.V2(1e6, -1e-3)}
	for _, d := range deltas {
		s, reg := attachedShape(t)
		pin := s.Record().StaticPins[0].XY()
		anchor := anchorPos(t, reg, "a-1")

		s.SetPosition(s.Position().AddXY(d))

		approxVec(t, s.Record().StaticPins[0].XY().Sub(pin), d)
		approxVec(t, anchorPos(t, reg, "a-1").Sub(anchor), d)
	}
}

func TestPointsRoundTripIsBitExact(t *testing.T) {
	s, _ := attachedShape(t)
	s.Record().PointsLocalSpace = []geom.Vec2{
		geom.V2(0.1, 0.7), geom.V2(2.3, -0.4), geom.V2(1.9, 3.3), geom.V2(-0.6, 1.1),
	}
	s.SetRotation(37.3)
	if err := s.SetScale(geom.V2(1.7, -0.45)); err != nil {
		t.Fatal(err)
	}
	s.SetFlipped(true)

	before := s.LocalPoints()
	if err := s.SetPoints(s.Points()); err != nil {
		t.Fatal(err)
	}
	if got := s.LocalPoints(); !slices.Equal(got, before) {
		t.Errorf("local points changed: %v -> %v", before, got)
	}
}

func TestSetPointsInvertsPipeline(t *testing.T) {
	s, _ := attachedShape(t)
	s.SetRotation(90)
	if err := s.SetScale(geom.V2(2, 1)); err != nil {
		t.Fatal(err)
	}
	s.SetFlipped(true)

	// scale (2,1) -> flip -> rotate 90: local (1,0) becomes (2,0) -> (-2,0) -> (0,-2).
	pts := s.Points()
	pts[1] = geom.V2(0, -2)
	if err := s.SetPoints(pts); err != nil {
		t.Fatal(err)
	}
	approxVec(t, s.LocalPoints()[1], geom.V2(1, 0))
}

func TestRotationMovesAttachments(t *testing.T) {
	s, reg := attachedShape(t)
	pos := s.Position().XY()
	pin := s.Record().StaticPins[0].XY()
	anchor := anchorPos(t, reg, "a-1")

	s.SetRotation(30)

	approxVec(t, s.Record().StaticPins[0].XY(), geom.Rotate(pin, 30, pos))
	approxVec(t, anchorPos(t, reg, "a-1"), geom.Rotate(anchor, 30, pos))
	if s.Rotation() != 30 {
		t.Errorf("rotation = %v", s.Rotation())
	}

	s.SetRotation(30 + 1e-8)
	approxVec(t, s.Record().StaticPins[0].XY(), geom.Rotate(pin, 30, pos))
}

func TestSetRotationsKeepsTilt(t *testing.T) {
	s, _ := attachedShape(t)
	s.SetRotations(geom.Vec3{X: 10, Y: 20, Z: 30})
	s.SetRotation(45)

	r := s.Rotations()
	if math.Abs(r.X-10) > 1e-6 || math.Abs(r.Y-20) > 1e-6 || r.Z != 45 {
		t.Errorf("rotations = %+v", r)
	}
	if e := s.Record().Rot.Euler(); math.Abs(e.Z-45) > 1e-6 {
		t.Errorf("quaternion yaw = %v, want 45", e.Z)
	}
}

func TestFlipIsInvolution(t *testing.T) {
	s, reg := attachedShape(t)
	s.SetRotation(25)
	pin := s.Record().StaticPins[0].XY()
	anchor := anchorPos(t, reg, "a-1")
	local := s.LocalPoints()
	world := s.Points()

	s.SetFlipped(true)
	if s.Points()[1] == world[1] {
		t.Error("flip did not mirror the geometry")
	}
	s.SetFlipped(true)
	s.SetFlipped(false)

	approxVec(t, s.Record().StaticPins[0].XY(), pin)
	approxVec(t, anchorPos(t, reg, "a-1"), anchor)
	if !slices.Equal(s.LocalPoints(), local) {
		t.Errorf("local points changed: %v", s.LocalPoints())
	}
}

func TestFlipMirrorsAttachmentsInRotatedFrame(t *testing.T) {
	s, _ := attachedShape(t)
	s.SetRotation(90)
	// The pin started 4 below the position; a quarter turn puts it 4 to the right,
	// and the mirror line in that frame is horizontal, so it stays put.
	before := s.Record().StaticPins[0].XY()
	approxVec(t, before, geom.V2(9, 5))
	s.SetFlipped(true)
	approxVec(t, s.Record().StaticPins[0].XY(), before)
}

func TestScaleComposition(t *testing.T) {
	s, reg := attachedShape(t)
	s.SetRotation(90)
	pin := s.Record().StaticPins[0].XY()
	anchor := anchorPos(t, reg, "a-1")
	local := s.LocalPoints()

	if err := s.SetScale(geom.V2(2, 3)); err != nil {
		t.Fatal(err)
	}
	// The pin is at local (0,-4) in the unrotated frame; stretched to (0,-12) and turned
	// back it lands 12 to the right of the position.
	approxVec(t, s.Record().StaticPins[0].XY(), geom.V2(17, 5))

	if err := s.SetScale(geom.V2(1, 1)); err != nil {
		t.Fatal(err)
	}
	approxVec(t, s.Record().StaticPins[0].XY(), pin)
	approxVec(t, anchorPos(t, reg, "a-1"), anchor)
	if !slices.Equal(s.LocalPoints(), local) {
		t.Errorf("scale changed local points: %v", s.LocalPoints())
	}
}

func TestZeroScaleIsRefused(t *testing.T) {
	s, _ := attachedShape(t)
	pin := s.Record().StaticPins[0]
	for _, v := range []geom.Vec2{geom.V2(0, 1), geom.V2(2, 0)} {
		if err := s.SetScale(v); !errors.Is(err, ErrZeroScale) {
			t.Errorf("SetScale(%v) = %v, want ErrZeroScale", v, err)
		}
	}
	if s.Scale() != geom.V2(1, 1) || s.Record().StaticPins[0] != pin {
		t.Error("refused scale modified the shape")
	}
}

func TestMinimumVertexGuard(t *testing.T) {
	s, _ := attachedShape(t)
	before := s.LocalPoints()
	for i := range 3 {
		if err := s.DeletePoint(i); !errors.Is(err, ErrTooFewPoints) {
			t.Errorf("DeletePoint(%d) = %v, want ErrTooFewPoints", i, err)
		}
	}
	if !slices.Equal(s.LocalPoints(), before) {
		t.Errorf("points changed to %v", s.LocalPoints())
	}
	if err := s.SetPoints(before[:2]); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("SetPoints with 2 points = %v", err)
	}
	if err := s.DeletePoint(7); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("DeletePoint(7) = %v, want ErrIndexOutOfRange", err)
	}
}

func TestInsertAndDeletePoint(t *testing.T) {
	s, _ := attachedShape(t)
	if err := s.InsertPoint(3, geom.V2(0, 2)); err != nil {
		t.Fatal(err)
	}
	if n := len(s.LocalPoints()); n != 4 {
		t.Fatalf("expected 4 points, got %d", n)
	}
	if err := s.DeletePoint(0); err != nil {
		t.Fatal(err)
	}
	want := []geom.Vec2{geom.V2(2, 0), geom.V2(1, 2), geom.V2(0, 2)}
	if !slices.Equal(s.Points(), want) {
		t.Errorf("points = %v, want %v", s.Points(), want)
	}
}

func TestCalculateHitboxAlignCenter(t *testing.T) {
	anchors := []*document.Anchor{}
	reg := NewAnchorRegistry(&anchors)
	rec := shapeRecord(geom.V2(5, 5), geom.V2(0, 0), geom.V2(2, 0), geom.V2(2, 2), geom.V2(0, 2))
	rec.StaticPins = []geom.Vec3{{X: 5, Y: 5}}
	s := newShape(rec, reg, 40)

	approxVec(t, s.CenterOffset(), geom.V2(-1, -1))
	world := s.WorldPoints()

	s.CalculateHitbox(true)

	approxVec(t, s.Position().XY(), geom.V2(6, 6))
	approxVec(t, s.CenterOffset(), geom.Vec2{})
	approxVec(t, s.LocalPoints()[0], geom.V2(-1, -1))
	for i, p := range s.WorldPoints() {
		approxVec(t, p, world[i])
	}
	if got := s.Record().StaticPins[0].XY(); got != geom.V2(5, 5) {
		t.Errorf("re-centering moved the pin to %v", got)
	}
	if s.Position().Z != -1 {
		t.Errorf("re-centering changed depth to %v", s.Position().Z)
	}
}

func TestColorKeepsAlpha(t *testing.T) {
	s, _ := attachedShape(t)
	s.SetRGB(10, 20, 30)
	c := s.Color()
	if c.R != 10 || c.G != 20 || c.B != 30 {
		t.Errorf("color = %+v", c)
	}
	if s.Record().Color.A != 0.8 {
		t.Errorf("alpha = %v, want 0.8", s.Record().Color.A)
	}
}
