package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func approxVec(t *testing.T, got, want Vec2) {
	t.Helper()
	if !approx(got.X, want.X) || !approx(got.Y, want.Y) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name   string
		p      Vec2
		deg    float64
		origin Vec2
		want   Vec2
	}{
		{"quarter turn", V2(1, 0), 90, Vec2{}, V2(0, 1)},
		{"half turn", V2(1, 2), 180, Vec2{}, V2(-1, -2)},
		{"about origin", V2(6, 5), 90, V2(5, 5), V2(5, 6)},
		{"negative", V2(0, 1), -90, Vec2{}, V2(1, 0)},
		{"zero", V2(3, 4), 0, V2(1, 1), V2(3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approxVec(t, Rotate(tt.p, tt.deg, tt.origin), tt.want)
		})
	}
}

func TestRotate3KeepsDepth(t *testing.T) {
	got := Rotate3(Vec3{X: 1, Y: 0, Z: 7}, 90, Vec2{})
	if got.Z != 7 {
		t.Errorf("expected Z to pass through, got %v", got.Z)
	}
	approxVec(t, got.XY(), V2(0, 1))
}

func TestFlip(t *testing.T) {
	approxVec(t, Flip(V2(7, 3), V2(5, 0), 0), V2(3, 3))

	// With the frame rotated a quarter turn the mirror line is horizontal.
	approxVec(t, Flip(V2(0, 2), Vec2{}, 90), V2(0, -2))

	p := V2(1.5, -2.25)
	approxVec(t, Flip(Flip(p, V2(0.3, 0.7), 33), V2(0.3, 0.7), 33), p)
}

func TestQuaternionRoundTrip(t *testing.T) {
	tests := []Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 45},
		{X: 10, Y: 20, Z: 30},
		{X: -15, Y: 5, Z: 170},
	}
	for _, e := range tests {
		got := QuaternionFromEuler(e.X, e.Y, e.Z).Euler()
		if math.Abs(got.X-e.X) > 1e-6 || math.Abs(got.Y-e.Y) > 1e-6 || math.Abs(got.Z-e.Z) > 1e-6 {
			t.Errorf("euler %+v round-tripped to %+v", e, got)
		}
	}
}

func TestQuaternionIsUnit(t *testing.T) {
	q := QuaternionFromEuler(12, -40, 200)
	n := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if math.Abs(n-1) > 1e-12 {
		t.Errorf("expected unit quaternion, norm² = %v", n)
	}
}

func TestEulerClampsAtPole(t *testing.T) {
	// Slightly denormalised quaternion at the +90 pitch pole pushes the asin argument past 1.
	q := Quaternion{X: 0, Y: math.Sqrt2/2 + 1e-12, Z: 0, W: math.Sqrt2/2 + 1e-12}
	got := q.Euler()
	if math.IsNaN(got.Y) {
		t.Fatal("pitch is NaN")
	}
	if math.Abs(got.Y-90) > 1e-6 {
		t.Errorf("expected pitch 90, got %v", got.Y)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	tests := []struct {
		name    string
		a, b, p Vec2
		want    Vec2
		ok      bool
	}{
		{"diagonal", V2(0, 0), V2(2, 2), V2(0, 2), V2(1, 1), true},
		{"vertical", V2(1, 0), V2(1, 4), V2(3, 2), V2(1, 2), true},
		{"vertical outside", V2(1, 0), V2(1, 4), V2(3, 5), Vec2{}, false},
		{"horizontal", V2(0, 1), V2(4, 1), V2(2, 5), V2(2, 1), true},
		{"horizontal outside", V2(0, 1), V2(4, 1), V2(-1, 5), Vec2{}, false},
		{"degenerate", V2(2, 2), V2(2, 2), V2(0, 0), Vec2{}, false},
		{"diagonal outside", V2(0, 0), V2(2, 2), V2(5, 6), Vec2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClosestPointOnSegment(tt.a, tt.b, tt.p)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (foot %+v)", ok, tt.ok, got)
			}
			if ok {
				approxVec(t, got, tt.want)
			}
		})
	}
}

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{Zoom: 20, Camera: V2(30, -20)}
	world := V2(1.25, 3.5)
	screen := v.ToScreen(world)
	approxVec(t, screen, V2(20*(1.25+30), -20*(3.5-20)))
	approxVec(t, v.ToWorld(screen), world)
}

func TestViewportRectToWorld(t *testing.T) {
	v := Viewport{Zoom: 10, Camera: Vec2{}}
	got := v.RectToWorld(Rect{X: 0, Y: -20, Width: 10, Height: 20})
	want := Rect{X: 0, Y: 0, Width: 1, Height: 2}
	if !approx(got.X, want.X) || !approx(got.Y, want.Y) || !approx(got.Width, want.Width) || !approx(got.Height, want.Height) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestBoundsOf(t *testing.T) {
	r := BoundsOf([]Vec2{V2(0, 0), V2(2, 0), V2(1, 2)})
	if r != (Rect{X: 0, Y: 0, Width: 2, Height: 2}) {
		t.Errorf("unexpected bounds %+v", r)
	}
	if c := r.Center(); c != V2(1, 1) {
		t.Errorf("unexpected center %+v", c)
	}
	if !BoundsOf(nil).IsEmpty() {
		t.Error("expected empty bounds for no points")
	}
}

func TestMatrixInvert(t *testing.T) {
	m := Translate(3, 4).Multiply(RotateDegrees(30)).Multiply(Scale(2, 5))
	if !m.Multiply(m.Invert()).IsIdentity() {
		t.Error("m * m^-1 should be identity")
	}
	if !Scale(0, 1).Invert().IsIdentity() {
		t.Error("singular matrix should invert to identity")
	}
}
