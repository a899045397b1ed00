package geom

// Viewport maps world coordinates (Y up) to screen pixels (Y down):
//
//	screen = zoom * (world + camera), with Y negated
type Viewport struct {
	Zoom   float64 `json:"zoom"`
	Camera Vec2    `json:"camera"`
}

// Matrix returns the world-to-screen transform.
func (v Viewport) Matrix() Matrix2D {
	return Scale(v.Zoom, -v.Zoom).Multiply(Translate(v.Camera.X, v.Camera.Y))
}

// ToScreen converts a world point to pixels.
func (v Viewport) ToScreen(p Vec2) Vec2 {
	return v.Matrix().Apply(p)
}

// ToWorld converts a pixel position to world coordinates.
func (v Viewport) ToWorld(p Vec2) Vec2 {
	return v.Matrix().Invert().Apply(p)
}

// RectToWorld converts a screen rect to the world rect it covers.
func (v Viewport) RectToWorld(r Rect) Rect {
	return v.Matrix().Invert().ApplyRect(r)
}

// Valid reports whether the viewport can be inverted.
func (v Viewport) Valid() bool {
	return v.Zoom > 0
}
