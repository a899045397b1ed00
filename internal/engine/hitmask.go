package engine

import (
	"image"
	"image/color"
	"math"
	"math/bits"

	"golang.org/x/image/vector"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// coverageThreshold is the minimum rasterized alpha for a pixel to count as inside.
const coverageThreshold = 128

// HitMask is a binary bitmap. Bit x of row y lives in word y*stride + x/64.
// Reads outside the bitmap are false.
type HitMask struct {
	width  int
	height int
	stride int
	bits   []uint64
}

// NewHitMask creates an empty mask. Non-positive sizes are raised to 1.
func NewHitMask(width, height int) *HitMask {
	width, height = max(width, 1), max(height, 1)
	stride := (width + 63) / 64
	return &HitMask{
		width:  width,
		height: height,
		stride: stride,
		bits:   make([]uint64, stride*height),
	}
}

// MaxMaskSide bounds both mask dimensions. Polygons too large for it are rasterized at a
// lower resolution.
const MaxMaskSide = 4096

// BuildHitMask rasterizes a closed polygon at up to resolution pixels per world unit.
// Raster row 0 is the polygon's highest Y. It also returns the polygon's bounds, which
// the raster origin is relative to, and the resolution actually used.
func BuildHitMask(points []geom.Vec2, resolution float64) (*HitMask, geom.Rect, float64) {
	bounds := geom.BoundsOf(points)
	if !finite(bounds.X, bounds.Y, bounds.Width, bounds.Height) {
		return NewHitMask(1, 1), bounds, 0
	}
	if ext := max(bounds.Width, bounds.Height); ext*resolution > MaxMaskSide-1 {
		resolution = (MaxMaskSide - 1) / ext
	}
	w := int(math.Ceil(bounds.Width*resolution)) + 1
	h := int(math.Ceil(bounds.Height*resolution)) + 1
	m := NewHitMask(min(w, MaxMaskSide), min(h, MaxMaskSide))
	if len(points) < 3 {
		return m, bounds, resolution
	}

	maxY := bounds.Y + bounds.Height
	z := vector.NewRasterizer(m.width, m.height)
	for i, p := range points {
		x := float32((p.X - bounds.X) * resolution)
		y := float32((maxY - p.Y) * resolution)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()

	dst := image.NewAlpha(image.Rect(0, 0, m.width, m.height))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if dst.Pix[y*dst.Stride+x] >= coverageThreshold {
				m.Set(x, y, true)
			}
		}
	}
	return m, bounds, resolution
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Width returns the mask width.
func (m *HitMask) Width() int { return m.width }

// Height returns the mask height.
func (m *HitMask) Height() int { return m.height }

// At returns the bit at (x, y).
func (m *HitMask) At(x, y int) bool {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return false
	}
	return m.bits[y*m.stride+x/64]&(1<<uint(x%64)) != 0
}

// Set sets the bit at (x, y). Coordinates outside the mask are ignored.
func (m *HitMask) Set(x, y int, v bool) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	i := y*m.stride + x/64
	if v {
		m.bits[i] |= 1 << uint(x%64)
	} else {
		m.bits[i] &^= 1 << uint(x%64)
	}
}

// Count returns the number of set bits.
func (m *HitMask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// span returns n (at most 64) bits of row y starting at column x.
func (m *HitMask) span(x, y, n int) uint64 {
	row := m.bits[y*m.stride : (y+1)*m.stride]
	i, off := x/64, uint(x%64)
	v := row[i] >> off
	if off != 0 && i+1 < len(row) {
		v |= row[i+1] << (64 - off)
	}
	if n < 64 {
		v &= (1 << uint(n)) - 1
	}
	return v
}

// Any reports whether a bit is set in the window [x0,x1)×[y0,y1). The window is clipped
// to the mask first.
func (m *HitMask) Any(x0, y0, x1, y1 int) bool {
	x0, x1 = max(0, x0), min(m.width, x1)
	y0, y1 = max(0, y0), min(m.height, y1)
	if x0 >= x1 || y0 >= y1 {
		return false
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x += 64 {
			if m.span(x, y, min(64, x1-x)) != 0 {
				return true
			}
		}
	}
	return false
}

// Image renders the mask as a grayscale image, set bits white.
func (m *HitMask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
