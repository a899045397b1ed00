package geom

import "math"

// Quaternion is a rotation stored the way the layout stores m_Rot.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = Quaternion{W: 1}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Rotate rotates p counter-clockwise by deg degrees about origin.
func Rotate(p Vec2, deg float64, origin Vec2) Vec2 {
	if deg == 0 {
		return p
	}
	sin, cos := math.Sincos(radians(deg))
	dx, dy := p.X-origin.X, p.Y-origin.Y
	return Vec2{
		X: origin.X + dx*cos - dy*sin,
		Y: origin.Y + dx*sin + dy*cos,
	}
}

// Rotate3 rotates the XY part of p about origin; Z passes through.
func Rotate3(p Vec3, deg float64, origin Vec2) Vec3 {
	return p.WithXY(Rotate(p.XY(), deg, origin))
}

// Flip mirrors p across the line through origin that is vertical in a frame rotated by deg.
// The point is unrotated, its X mirrored about origin, then rotated back.
func Flip(p, origin Vec2, deg float64) Vec2 {
	q := Rotate(p, -deg, origin)
	q.X = 2*origin.X - q.X
	return Rotate(q, deg, origin)
}

// QuaternionFromEuler converts roll (x), pitch (y) and yaw (z) in degrees.
func QuaternionFromEuler(x, y, z float64) Quaternion {
	sr, cr := math.Sincos(radians(x) / 2)
	sp, cp := math.Sincos(radians(y) / 2)
	sy, cy := math.Sincos(radians(z) / 2)
	return Quaternion{
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
		W: cr*cp*cy + sr*sp*sy,
	}
}

// Euler returns roll, pitch and yaw in degrees. The pitch argument is clamped to [-1, 1]
// so gimbal-lock poles resolve to ±90 instead of NaN.
func (q Quaternion) Euler() Vec3 {
	roll := math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	s := 2 * (q.W*q.Y - q.Z*q.X)
	pitch := math.Asin(math.Max(-1, math.Min(1, s)))
	yaw := math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return Vec3{X: degrees(roll), Y: degrees(pitch), Z: degrees(yaw)}
}

// ClosestPointOnSegment returns the foot of the perpendicular from p onto the line through a
// and b. ok is false when the segment is degenerate or the foot falls outside the segment.
// Vertical and horizontal segments are handled directly so no slope is ever divided by zero.
func ClosestPointOnSegment(a, b, p Vec2) (foot Vec2, ok bool) {
	switch {
	case a == b:
		return Vec2{}, false
	case a.X == b.X:
		foot = Vec2{X: a.X, Y: p.Y}
		return foot, between(foot.Y, a.Y, b.Y)
	case a.Y == b.Y:
		foot = Vec2{X: p.X, Y: a.Y}
		return foot, between(foot.X, a.X, b.X)
	}
	m := (b.Y - a.Y) / (b.X - a.X)
	n := -1 / m
	x := (m*a.X - n*p.X + p.Y - a.Y) / (m - n)
	foot = Vec2{X: x, Y: m*(x-a.X) + a.Y}
	return foot, between(foot.X, a.X, b.X) || between(foot.Y, a.Y, b.Y)
}

func between(v, a, b float64) bool {
	return v >= math.Min(a, b) && v <= math.Max(a, b)
}
