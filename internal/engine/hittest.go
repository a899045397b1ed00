package engine

import (
	"math"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// SetViewport records the viewport of the current frame. Only the render pass calls it;
// the point and rect queries of the same frame read it back.
func (s *Shape) SetViewport(v geom.Viewport) { s.view = v }

// Viewport returns the viewport recorded by the last render pass.
func (s *Shape) Viewport() geom.Viewport { return s.view }

// CollidePoint reports whether a screen point lies inside the shape, using the viewport
// recorded at the last render.
func (s *Shape) CollidePoint(screen geom.Vec2) bool {
	return s.HitPoint(s.view, screen)
}

// HitPoint reports whether a screen point lies inside the shape under view.
func (s *Shape) HitPoint(view geom.Viewport, screen geom.Vec2) bool {
	if !view.Valid() {
		return false
	}
	s.ensureHitbox()
	x, y, ok := s.rasterPoint(view.ToWorld(screen))
	return ok && s.mask.At(x, y)
}

// CollideRect reports whether a screen rectangle overlaps the shape, using the viewport
// recorded at the last render.
func (s *Shape) CollideRect(screen geom.Rect) bool {
	return s.HitRect(s.view, screen)
}

// HitRect reports whether a screen rectangle overlaps the shape under view. The
// rectangle counts as filled, so only the part of it over the shape's mask is scanned.
func (s *Shape) HitRect(view geom.Viewport, screen geom.Rect) bool {
	if !view.Valid() {
		return false
	}
	s.ensureHitbox()
	wr := view.RectToWorld(screen)
	local := geom.V2(wr.X, wr.Y+wr.Height).Sub(s.rec.Pos.XY())
	x0, x1, ok := rasterSpan((local.X-s.bounds.X)*s.raster, math.Abs(wr.Width)*s.raster, s.mask.width)
	if !ok {
		return false
	}
	y0, y1, ok := rasterSpan((s.bounds.Y+s.bounds.Height-local.Y)*s.raster, math.Abs(wr.Height)*s.raster, s.mask.height)
	return ok && s.mask.Any(x0, y0, x1, y1)
}

// rasterSpan turns a run of size pixels starting at start into the columns [lo, hi) it
// covers within [0, limit). A run always covers at least one pixel.
func rasterSpan(start, size float64, limit int) (lo, hi int, ok bool) {
	first := math.Floor(start)
	last := first + math.Max(1, math.Round(size))
	first, last = math.Max(first, 0), math.Min(last, float64(limit))
	if math.IsNaN(first) || math.IsNaN(last) || first >= last {
		return 0, 0, false
	}
	return int(first), int(last), true
}

// rasterPoint maps a world point into mask pixels. Row 0 is the top of the bounds.
// ok is false for coordinates no mask could hold.
func (s *Shape) rasterPoint(world geom.Vec2) (x, y int, ok bool) {
	local := world.Sub(s.rec.Pos.XY())
	fx := math.Floor((local.X - s.bounds.X) * s.raster)
	fy := math.Floor((s.bounds.Y + s.bounds.Height - local.Y) * s.raster)
	if math.IsNaN(fx) || math.IsNaN(fy) || math.Abs(fx) > math.MaxInt32 || math.Abs(fy) > math.MaxInt32 {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}
