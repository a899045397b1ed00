package engine

import "github.com/polyeditor/polyeditor/backend-go/internal/geom"

// Options tune the editor. The zero Options means DefaultOptions. Otherwise resolution
// and zoom fields that are out of range fall back to their defaults, and DuplicateOffset
// is used as given, (0,0) included.
type Options struct {
	// HitboxResolution is the number of mask pixels per world unit.
	HitboxResolution float64
	// DuplicateOffset is added to the position of every duplicated shape.
	DuplicateOffset geom.Vec2
	ZoomMin         float64
	ZoomMax         float64
	ZoomMult        float64
}

// DefaultOptions returns the stock editor settings.
func DefaultOptions() Options {
	return Options{
		HitboxResolution: 40,
		DuplicateOffset:  geom.V2(1, -1),
		ZoomMin:          4,
		ZoomMax:          400,
		ZoomMult:         1.1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o == (Options{}) {
		return d
	}
	if o.HitboxResolution <= 0 {
		o.HitboxResolution = d.HitboxResolution
	}
	if o.ZoomMin <= 0 {
		o.ZoomMin = d.ZoomMin
	}
	if o.ZoomMax < o.ZoomMin {
		o.ZoomMax = max(d.ZoomMax, o.ZoomMin)
	}
	if o.ZoomMult <= 1 {
		o.ZoomMult = d.ZoomMult
	}
	return o
}
