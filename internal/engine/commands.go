package engine

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"

	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

// Draw operations.
const (
	OpPolygon = "polygon"
	OpCircle  = "circle"
	OpRect    = "rect"
	OpLine    = "line"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// All coordinates are screen pixels.
type DrawCommand struct {
	Op          string      `json:"op"`                    // Operation: "polygon", "circle", "rect", "line"
	ObjectID    string      `json:"objectId,omitempty"`    // For hit correlation, e.g. "m_CustomShapes/3"
	Points      []geom.Vec2 `json:"points,omitempty"`      // Polygon vertices or line endpoints
	Rect        *geom.Rect  `json:"rect,omitempty"`        // Rectangle for "rect" ops
	Center      *geom.Vec2  `json:"center,omitempty"`      // Circle center
	Radius      float64     `json:"radius,omitempty"`      // Circle radius
	Fill        string      `json:"fill,omitempty"`        // Fill color, #rrggbbaa
	Stroke      string      `json:"stroke,omitempty"`      // Stroke color, #rrggbbaa
	StrokeWidth float64     `json:"strokeWidth,omitempty"` // Stroke width
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// objectID names an entity by its list and index.
func objectID(k Kind, i int) string {
	return fmt.Sprintf("%s/%d", k.ListName(), i)
}

func polygonCmd(id string, pts []geom.Vec2, fill, stroke color.Color, width float64) DrawCommand {
	return DrawCommand{Op: OpPolygon, ObjectID: id, Points: pts, Fill: hex(fill), Stroke: hex(stroke), StrokeWidth: width}
}

func circleCmd(id string, c geom.Vec2, r float64, fill, stroke color.Color) DrawCommand {
	return DrawCommand{Op: OpCircle, ObjectID: id, Center: &c, Radius: r, Fill: hex(fill), Stroke: hex(stroke), StrokeWidth: 1}
}

func rectCmd(id string, r geom.Rect, fill, stroke color.Color, width float64) DrawCommand {
	return DrawCommand{Op: OpRect, ObjectID: id, Rect: &r, Fill: hex(fill), Stroke: hex(stroke), StrokeWidth: width}
}

func lineCmd(id string, a, b geom.Vec2, stroke color.Color, width float64) DrawCommand {
	return DrawCommand{Op: OpLine, ObjectID: id, Points: []geom.Vec2{a, b}, Stroke: hex(stroke), StrokeWidth: width}
}

// hex formats a color as #rrggbbaa. A nil color is the empty string (no paint).
func hex(c color.Color) string {
	if c == nil {
		return ""
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

// lineWidth scales a line width with zoom, never going below minWidth.
func lineWidth(minWidth, zoom, factor float64) float64 {
	return math.Max(minWidth, math.Round(zoom/(factor/minWidth)))
}

// shade darkens the color channels by f, keeping alpha.
func shade(c color.NRGBA, f float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
