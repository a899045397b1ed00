package document

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// NewSampleLayout builds a small level: main terrain on both banks, water, a pillar,
// a triangle carrying a static pin, and a square bound to one dynamic anchor.
func NewSampleLayout() *Layout {
	boundAnchor := uuid.NewString()
	looseAnchor := uuid.NewString()

	return &Layout{
		TerrainStretches: []*TerrainStretch{
			{Pos: geom.Vec3{X: -12, Y: 0}, Flipped: false, IslandType: TerrainIslandMain},
			{Pos: geom.Vec3{X: 12, Y: 0}, Flipped: true, IslandType: TerrainIslandMain},
		},
		WaterBlocks: []*WaterBlock{
			{Pos: geom.Vec3{X: 0, Y: 0}, Width: 24, Height: 1},
		},
		CustomShapes: []*CustomShape{
			{
				Pos:             geom.Vec3{X: -4, Y: 6},
				Rot:             geom.IdentityQuaternion,
				RotationDegrees: 0,
				Scale:           geom.Vec3{X: 1, Y: 1, Z: 1},
				Color:           Color{R: 0.8, G: 0.5, B: 0.2, A: 1},
				PointsLocalSpace: []geom.Vec2{
					{X: -1, Y: -2.0 / 3}, {X: 1, Y: -2.0 / 3}, {X: 0, Y: 4.0 / 3},
				},
				StaticPins:         []geom.Vec3{{X: -4, Y: 5.5}},
				DynamicAnchorGuids: []string{},
				Extra:              Extra{"m_Mass": json.RawMessage(`1`)},
			},
			{
				Pos:             geom.Vec3{X: 4, Y: 6},
				Rot:             geom.IdentityQuaternion,
				RotationDegrees: 0,
				Scale:           geom.Vec3{X: 1, Y: 1, Z: 1},
				Color:           Color{R: 0.3, G: 0.6, B: 0.9, A: 1},
				PointsLocalSpace: []geom.Vec2{
					{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1},
				},
				StaticPins:         []geom.Vec3{},
				DynamicAnchorGuids: []string{boundAnchor},
			},
		},
		Pillars: []*Pillar{
			{Pos: geom.Vec3{X: 0, Y: 1}, Height: 4},
		},
		Anchors: []*Anchor{
			{Pos: geom.Vec3{X: 5, Y: 7}, GUID: boundAnchor},
			{Pos: geom.Vec3{X: -12, Y: 5}, GUID: looseAnchor},
		},
		Extra: Extra{
			"m_Version": json.RawMessage(`26`),
			keyBridge:   json.RawMessage(`{"m_Anchors":[]}`),
		},
	}
}
