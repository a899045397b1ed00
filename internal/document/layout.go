package document

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// List names of the layout's top-level entity lists.
const (
	ListTerrainStretches = "m_TerrainStretches"
	ListWaterBlocks      = "m_WaterBlocks"
	ListCustomShapes     = "m_CustomShapes"
	ListPillars          = "m_Pillars"
	ListAnchors          = "m_Anchors"

	keyBridge = "m_Bridge"
)

// Terrain island types.
const (
	TerrainIslandMain = 0
)

// Layout is a level document. Only the lists the editor works with are typed; everything
// else round-trips through Extra.
type Layout struct {
	TerrainStretches []*TerrainStretch `json:"m_TerrainStretches"`
	WaterBlocks      []*WaterBlock     `json:"m_WaterBlocks"`
	CustomShapes     []*CustomShape    `json:"m_CustomShapes"`
	Pillars          []*Pillar         `json:"m_Pillars"`
	Anchors          []*Anchor         `json:"m_Anchors"`

	Extra Extra `json:"-"`
}

// Color components are stored in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type Anchor struct {
	Pos  geom.Vec3 `json:"m_Pos"`
	GUID string    `json:"m_Guid"`

	Extra Extra `json:"-"`
}

type TerrainStretch struct {
	Pos        geom.Vec3 `json:"m_Pos"`
	Flipped    bool      `json:"m_Flipped"`
	IslandType int       `json:"m_TerrainIslandType"`

	Extra Extra `json:"-"`
}

type WaterBlock struct {
	Pos    geom.Vec3 `json:"m_Pos"`
	Width  float64   `json:"m_Width"`
	Height float64   `json:"m_Height"`

	Extra Extra `json:"-"`
}

type Pillar struct {
	Pos    geom.Vec3 `json:"m_Pos"`
	Height float64   `json:"m_Height"`

	Extra Extra `json:"-"`
}

// CustomShape is a user polygon. PointsLocalSpace is unscaled, unrotated and unflipped;
// StaticPins are in world space.
type CustomShape struct {
	Pos                geom.Vec3       `json:"m_Pos"`
	Rot                geom.Quaternion `json:"m_Rot"`
	RotationDegrees    float64         `json:"m_RotationDegrees"`
	Scale              geom.Vec3       `json:"m_Scale"`
	Flipped            bool            `json:"m_Flipped"`
	Color              Color           `json:"m_Color"`
	PointsLocalSpace   []geom.Vec2     `json:"m_PointsLocalSpace"`
	StaticPins         []geom.Vec3     `json:"m_StaticPins"`
	DynamicAnchorGuids []string        `json:"m_DynamicAnchorGuids"`

	Extra Extra `json:"-"`
}

// Parse decodes a layout and makes every list non-nil.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	l.normalize()
	return &l, nil
}

func (l *Layout) validate() error {
	for i, s := range l.CustomShapes {
		if s == nil {
			return fmt.Errorf("%s[%d]: null record", ListCustomShapes, i)
		}
		if len(s.PointsLocalSpace) < 3 {
			return fmt.Errorf("%s[%d]: %d points, need at least 3", ListCustomShapes, i, len(s.PointsLocalSpace))
		}
		if s.Scale.X == 0 || s.Scale.Y == 0 {
			return fmt.Errorf("%s[%d]: zero scale", ListCustomShapes, i)
		}
	}
	for i, a := range l.Anchors {
		if a == nil {
			return fmt.Errorf("%s[%d]: null record", ListAnchors, i)
		}
	}
	return nil
}

func (l *Layout) normalize() {
	if l.TerrainStretches == nil {
		l.TerrainStretches = []*TerrainStretch{}
	}
	if l.WaterBlocks == nil {
		l.WaterBlocks = []*WaterBlock{}
	}
	if l.CustomShapes == nil {
		l.CustomShapes = []*CustomShape{}
	}
	if l.Pillars == nil {
		l.Pillars = []*Pillar{}
	}
	if l.Anchors == nil {
		l.Anchors = []*Anchor{}
	}
	for _, s := range l.CustomShapes {
		if s.StaticPins == nil {
			s.StaticPins = []geom.Vec3{}
		}
		if s.DynamicAnchorGuids == nil {
			s.DynamicAnchorGuids = []string{}
		}
	}
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	type plain Layout
	extra, err := decodeRecord(data, (*plain)(l))
	l.Extra = extra
	return err
}

// MarshalJSON writes the layout. The bridge keeps its own copy of the anchor list, which
// must always equal the top-level one.
func (l Layout) MarshalJSON() ([]byte, error) {
	type plain Layout
	l.normalize()
	extra := l.Extra
	if raw, ok := extra[keyBridge]; ok {
		bridge, err := mirrorAnchors(raw, l.Anchors)
		if err != nil {
			return nil, fmt.Errorf("mirror bridge anchors: %w", err)
		}
		extra = extra.clone()
		extra[keyBridge] = bridge
	}
	return encodeRecord(plain(l), extra)
}

func mirrorAnchors(bridge json.RawMessage, anchors []*Anchor) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bridge, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return bridge, nil
	}
	data, err := json.Marshal(anchors)
	if err != nil {
		return nil, err
	}
	fields[ListAnchors] = data
	return json.Marshal(fields)
}

func (a *Anchor) UnmarshalJSON(data []byte) error {
	type plain Anchor
	extra, err := decodeRecord(data, (*plain)(a))
	a.Extra = extra
	return err
}

func (a Anchor) MarshalJSON() ([]byte, error) {
	type plain Anchor
	return encodeRecord(plain(a), a.Extra)
}

// Clone returns a deep copy.
func (a *Anchor) Clone() *Anchor {
	c := *a
	c.Extra = a.Extra.clone()
	return &c
}

func (t *TerrainStretch) UnmarshalJSON(data []byte) error {
	type plain TerrainStretch
	extra, err := decodeRecord(data, (*plain)(t))
	t.Extra = extra
	return err
}

func (t TerrainStretch) MarshalJSON() ([]byte, error) {
	type plain TerrainStretch
	return encodeRecord(plain(t), t.Extra)
}

func (w *WaterBlock) UnmarshalJSON(data []byte) error {
	type plain WaterBlock
	extra, err := decodeRecord(data, (*plain)(w))
	w.Extra = extra
	return err
}

func (w WaterBlock) MarshalJSON() ([]byte, error) {
	type plain WaterBlock
	return encodeRecord(plain(w), w.Extra)
}

func (p *Pillar) UnmarshalJSON(data []byte) error {
	type plain Pillar
	extra, err := decodeRecord(data, (*plain)(p))
	p.Extra = extra
	return err
}

func (p Pillar) MarshalJSON() ([]byte, error) {
	type plain Pillar
	return encodeRecord(plain(p), p.Extra)
}

// Clone returns a deep copy.
func (p *Pillar) Clone() *Pillar {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (s *CustomShape) UnmarshalJSON(data []byte) error {
	type plain CustomShape
	extra, err := decodeRecord(data, (*plain)(s))
	s.Extra = extra
	return err
}

func (s CustomShape) MarshalJSON() ([]byte, error) {
	type plain CustomShape
	if s.StaticPins == nil {
		s.StaticPins = []geom.Vec3{}
	}
	if s.DynamicAnchorGuids == nil {
		s.DynamicAnchorGuids = []string{}
	}
	return encodeRecord(plain(s), s.Extra)
}

// Clone returns a deep copy, pins and anchor ids included.
func (s *CustomShape) Clone() *CustomShape {
	c := *s
	c.PointsLocalSpace = slices.Clone(s.PointsLocalSpace)
	c.StaticPins = slices.Clone(s.StaticPins)
	c.DynamicAnchorGuids = slices.Clone(s.DynamicAnchorGuids)
	c.Extra = s.Extra.clone()
	return &c
}
