package engine

import (
	"github.com/google/uuid"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// Anchor is a view over an m_Anchors record.
type Anchor struct {
	rec *document.Anchor
}

func (a *Anchor) Record() *document.Anchor { return a.rec }
func (a *Anchor) Kind() Kind               { return KindAnchor }
func (a *Anchor) ID() string               { return a.rec.GUID }
func (a *Anchor) Position() geom.Vec3      { return a.rec.Pos }

// AnchorRegistry owns every anchor of a layout. Shapes refer to anchors by id only and
// move them through Move, so there is one writer for anchor positions.
type AnchorRegistry struct {
	list *List[document.Anchor, *Anchor]
	byID map[string]*Anchor
}

// NewAnchorRegistry wraps the layout's anchor list.
func NewAnchorRegistry(records *[]*document.Anchor) *AnchorRegistry {
	r := &AnchorRegistry{byID: make(map[string]*Anchor, len(*records))}
	r.list = NewList(records, func(rec *document.Anchor) *Anchor {
		a := &Anchor{rec: rec}
		r.byID[rec.GUID] = a
		return a
	})
	return r
}

func (r *AnchorRegistry) Len() int { return r.list.Len() }

// List exposes the ordered anchor views.
func (r *AnchorRegistry) List() *List[document.Anchor, *Anchor] { return r.list }

func (r *AnchorRegistry) Get(id string) (*Anchor, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Add appends a record to the layout and indexes it.
func (r *AnchorRegistry) Add(rec *document.Anchor) *Anchor {
	a := &Anchor{rec: rec}
	r.list.Append(a)
	r.byID[rec.GUID] = a
	return a
}

// Remove deletes the anchor with the given id from the layout.
func (r *AnchorRegistry) Remove(id string) bool {
	a, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	return r.list.Remove(a)
}

// Move replaces the anchor's XY position with f(position).
func (r *AnchorRegistry) Move(id string, f func(geom.Vec2) geom.Vec2) bool {
	a, ok := r.byID[id]
	if !ok {
		return false
	}
	a.rec.Pos = a.rec.Pos.WithXY(f(a.rec.Pos.XY()))
	return true
}

// SetPosition places an anchor directly.
func (r *AnchorRegistry) SetPosition(id string, p geom.Vec3) bool {
	a, ok := r.byID[id]
	if !ok {
		return false
	}
	a.rec.Pos = p
	return true
}

// Clone copies an anchor under a fresh id and adds the copy to the layout.
func (r *AnchorRegistry) Clone(id string) (*Anchor, bool) {
	a, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	rec := a.rec.Clone()
	rec.GUID = uuid.NewString()
	return r.Add(rec), true
}
