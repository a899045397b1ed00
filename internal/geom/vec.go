package geom

import "math"

// Vec2 is a 2D point or vector. The json tags match the layout's Vector2 records.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec3 is a 3D point. In the editor Z is a layering value and never takes part in 2D geometry.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V2 is a convenience constructor.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Mul(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// MulVec multiplies component-wise.
func (v Vec2) MulVec(o Vec2) Vec2 { return Vec2{X: v.X * o.X, Y: v.Y * o.Y} }

// DivVec divides component-wise.
func (v Vec2) DivVec(o Vec2) Vec2 { return Vec2{X: v.X / o.X, Y: v.Y / o.Y} }

// FlipX negates X when only is true and returns v unchanged otherwise.
func (v Vec2) FlipX(only bool) Vec2 {
	if !only {
		return v
	}
	return Vec2{X: -v.X, Y: v.Y}
}

// Distance returns the euclidean distance between two points.
func (v Vec2) Distance(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Round rounds both components to the nearest integer.
func (v Vec2) Round() Vec2 { return Vec2{X: math.Round(v.X), Y: math.Round(v.Y)} }

// XY drops the depth component.
func (v Vec3) XY() Vec2 { return Vec2{X: v.X, Y: v.Y} }

// WithXY replaces X and Y, keeping Z.
func (v Vec3) WithXY(p Vec2) Vec3 { return Vec3{X: p.X, Y: p.Y, Z: v.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

// AddXY translates in the plane, leaving Z untouched.
func (v Vec3) AddXY(d Vec2) Vec3 { return Vec3{X: v.X + d.X, Y: v.Y + d.Y, Z: v.Z} }
