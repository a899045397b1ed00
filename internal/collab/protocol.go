package collab

import (
	"encoding/json"

	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is a world position.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
	Level     string `json:"level"`
	ServerSeq int64  `json:"serverSeq"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync: a client sends it empty, the server answers with the layout.
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	// Reply to a render operation
	TypeFrame = "frame"
)

// --- Operation Types ---

// Operation is one editor command from a client. Screen coordinates are pixels in the
// session's viewport; deltas named world are in world units.
type Operation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	ClientSeq int64           `json:"clientSeq"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Operation types
const (
	OpViewport           = "viewport"
	OpPan                = "view.pan"
	OpZoom               = "view.zoom"
	OpCursor             = "cursor"
	OpSelectPoint        = "select.point"
	OpSelectRect         = "select.rect"
	OpSelectionMove      = "selection.move"
	OpSelectionDelete    = "selection.delete"
	OpSelectionDuplicate = "selection.duplicate"
	OpShapeProperties    = "shape.properties"
	OpSelectionColor     = "selection.color"
	OpVertexDragBegin    = "vertex.drag.begin"
	OpVertexDrag         = "vertex.drag"
	OpVertexDragEnd      = "vertex.drag.end"
	OpVertexInsert       = "vertex.insert"
	OpVertexDelete       = "vertex.delete"
	OpTogglePoints       = "toggle.points"
	OpToggleHitboxes     = "toggle.hitboxes"
	OpRender             = "render"
)

// PointPayload is a screen position, for select.point and the vertex ops.
type PointPayload struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Additive bool    `json:"additive,omitempty"`
}

// DeltaPayload is a screen delta for view.pan and a world delta for selection.move and
// vertex.drag.
type DeltaPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type ZoomPayload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	In   bool    `json:"in"`
	Fine bool    `json:"fine,omitempty"`
}

type CursorPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	AddMode bool    `json:"addMode,omitempty"`
}

// SelectRectPayload drags a marquee. Done ends the drag and hides the marquee.
type SelectRectPayload struct {
	Rect     geom.Rect `json:"rect"`
	Additive bool      `json:"additive,omitempty"`
	Done     bool      `json:"done,omitempty"`
}

type PropertiesPayload struct {
	Index      int               `json:"index"`
	Properties engine.Properties `json:"properties"`
}

type ColorPayload struct {
	RGB [3]uint8 `json:"rgb"`
}

type TogglePayload struct {
	On bool `json:"on"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string          `json:"operationId"`
	ServerSeq       int64           `json:"serverSeq"`
	ServerTimestamp int64           `json:"serverTimestamp"`
	Result          json.RawMessage `json:"result,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	ClientID  string    `json:"clientId"`
	ServerSeq int64     `json:"serverSeq"`
}

// FramePayload is the payload for frame messages.
type FramePayload struct {
	Commands  []engine.DrawCommand `json:"commands"`
	Selection []string             `json:"selection"`
	Viewport  geom.Viewport        `json:"viewport"`
}
