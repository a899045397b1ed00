package engine

import (
	"slices"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// Attachments are the points rigidly bound to one shape: its static pins, stored in the
// shape record, and the registry anchors its record names. Every transform applied to the
// shape is replayed here.
type Attachments struct {
	rec      *document.CustomShape
	registry *AnchorRegistry
	anchors  []string
}

// newAttachments resolves the record's anchor ids against the registry. Ids with no
// matching anchor are left in the record but not moved.
func newAttachments(rec *document.CustomShape, registry *AnchorRegistry) *Attachments {
	a := &Attachments{rec: rec, registry: registry}
	for _, id := range rec.DynamicAnchorGuids {
		if _, ok := registry.Get(id); ok {
			a.anchors = append(a.anchors, id)
		}
	}
	return a
}

// Pins returns a copy of the static pins.
func (a *Attachments) Pins() []geom.Vec3 { return slices.Clone(a.rec.StaticPins) }

// AnchorIDs returns the ids of the bound anchors.
func (a *Attachments) AnchorIDs() []string { return slices.Clone(a.anchors) }

// Bound reports whether the anchor id is bound to this shape.
func (a *Attachments) Bound(id string) bool { return slices.Contains(a.anchors, id) }

func (a *Attachments) apply(f func(geom.Vec2) geom.Vec2) {
	for i, pin := range a.rec.StaticPins {
		a.rec.StaticPins[i] = pin.WithXY(f(pin.XY()))
	}
	for _, id := range a.anchors {
		a.registry.Move(id, f)
	}
}

// Translate shifts every attachment by delta.
func (a *Attachments) Translate(delta geom.Vec2) {
	a.apply(func(p geom.Vec2) geom.Vec2 { return p.Add(delta) })
}

// Rotate turns every attachment by deg degrees about origin.
func (a *Attachments) Rotate(deg float64, origin geom.Vec2) {
	a.apply(func(p geom.Vec2) geom.Vec2 { return geom.Rotate(p, deg, origin) })
}

// Flip mirrors every attachment across the vertical axis through origin of a frame
// rotated by deg.
func (a *Attachments) Flip(origin geom.Vec2, deg float64) {
	a.apply(func(p geom.Vec2) geom.Vec2 { return geom.Flip(p, origin, deg) })
}

// Scale stretches every attachment by ratio in the frame rotated by deg about origin.
func (a *Attachments) Scale(origin geom.Vec2, deg float64, ratio geom.Vec2) {
	a.apply(func(p geom.Vec2) geom.Vec2 {
		local := geom.Rotate(p, -deg, origin).Sub(origin).MulVec(ratio).Add(origin)
		return geom.Rotate(local, deg, origin)
	})
}

// cloneInto deep-copies the pins into dst and points dst at fresh copies of every
// bound anchor, so the two shapes share nothing.
func (a *Attachments) cloneInto(dst *document.CustomShape) {
	dst.StaticPins = slices.Clone(a.rec.StaticPins)
	ids := make([]string, 0, len(a.anchors))
	for _, id := range a.anchors {
		if c, ok := a.registry.Clone(id); ok {
			ids = append(ids, c.ID())
		}
	}
	dst.DynamicAnchorGuids = ids
}
