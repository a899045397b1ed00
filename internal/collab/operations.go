package collab

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

var ErrUnknownOperation = errors.New("unknown operation type")

// outcome is what applying an operation produced.
type outcome struct {
	result any           // returned in the ack
	frame  *FramePayload // sent to the submitter after the ack
	edited bool          // the layout changed
	shared bool          // other clients are told about the operation
}

// SelectionResult answers the selection operations.
type SelectionResult struct {
	Hits      int      `json:"hits"`
	Selection []string `json:"selection"`
}

// VertexResult names the vertex an operation acted on.
type VertexResult struct {
	Shape int `json:"shape"`
	Index int `json:"index"`
}

func vertexResult(v engine.VertexRef) VertexResult {
	return VertexResult{Shape: v.ShapeIndex, Index: v.Index}
}

func selection(ed *engine.Editor, hits int) SelectionResult {
	return SelectionResult{Hits: hits, Selection: ed.SelectionIDs()}
}

// applyOperation runs op against ed. A refused operation returns an error and leaves the
// editor as it was.
func applyOperation(ed *engine.Editor, op Operation) (outcome, error) {
	switch op.Type {
	case OpViewport:
		v, err := decode[geom.Viewport](op)
		if err != nil {
			return outcome{}, err
		}
		if err := ed.SetViewport(v); err != nil {
			return outcome{}, err
		}
		return outcome{result: ed.Viewport(), shared: true}, nil

	case OpPan:
		d, err := decode[DeltaPayload](op)
		if err != nil {
			return outcome{}, err
		}
		ed.Pan(geom.V2(d.DX, d.DY))
		return outcome{result: ed.Viewport(), shared: true}, nil

	case OpZoom:
		z, err := decode[ZoomPayload](op)
		if err != nil {
			return outcome{}, err
		}
		ed.ZoomAt(geom.V2(z.X, z.Y), z.In, z.Fine)
		return outcome{result: ed.Viewport(), shared: true}, nil

	case OpCursor:
		c, err := decode[CursorPayload](op)
		if err != nil {
			return outcome{}, err
		}
		ed.SetCursor(geom.V2(c.X, c.Y), c.AddMode)
		return outcome{}, nil

	case OpSelectPoint:
		p, err := decode[PointPayload](op)
		if err != nil {
			return outcome{}, err
		}
		hits := 0
		if _, ok := ed.SelectAt(geom.V2(p.X, p.Y), p.Additive); ok {
			hits = 1
		}
		return outcome{result: selection(ed, hits), shared: true}, nil

	case OpSelectRect:
		r, err := decode[SelectRectPayload](op)
		if err != nil {
			return outcome{}, err
		}
		hits := ed.SelectRect(r.Rect, r.Additive)
		if r.Done {
			ed.EndSelectRect()
		}
		return outcome{result: selection(ed, hits), shared: true}, nil

	case OpSelectionMove:
		d, err := decode[DeltaPayload](op)
		if err != nil {
			return outcome{}, err
		}
		n := ed.MoveSelection(geom.V2(d.DX, d.DY))
		return outcome{result: selection(ed, n), edited: n > 0, shared: true}, nil

	case OpSelectionDelete:
		n := ed.DeleteSelected()
		return outcome{result: selection(ed, n), edited: n > 0, shared: true}, nil

	case OpSelectionDuplicate:
		n := ed.DuplicateSelected()
		return outcome{result: selection(ed, n), edited: n > 0, shared: true}, nil

	case OpShapeProperties:
		p, err := decode[PropertiesPayload](op)
		if err != nil {
			return outcome{}, err
		}
		if err := ed.ApplyProperties(p.Index, p.Properties); err != nil {
			return outcome{}, err
		}
		return outcome{edited: true, shared: true}, nil

	case OpSelectionColor:
		c, err := decode[ColorPayload](op)
		if err != nil {
			return outcome{}, err
		}
		n := ed.ApplyColor(c.RGB[0], c.RGB[1], c.RGB[2])
		return outcome{result: selection(ed, n), edited: n > 0, shared: true}, nil

	case OpVertexDragBegin:
		p, err := decode[PointPayload](op)
		if err != nil {
			return outcome{}, err
		}
		v, err := ed.BeginVertexDrag(geom.V2(p.X, p.Y))
		if err != nil {
			return outcome{}, err
		}
		return outcome{result: vertexResult(v), shared: true}, nil

	case OpVertexDrag:
		d, err := decode[DeltaPayload](op)
		if err != nil {
			return outcome{}, err
		}
		if err := ed.DragVertex(geom.V2(d.DX, d.DY)); err != nil {
			return outcome{}, err
		}
		return outcome{edited: true, shared: true}, nil

	case OpVertexDragEnd:
		if err := ed.EndVertexDrag(); err != nil {
			return outcome{}, err
		}
		return outcome{edited: true, shared: true}, nil

	case OpVertexInsert:
		p, err := decode[PointPayload](op)
		if err != nil {
			return outcome{}, err
		}
		v, err := ed.InsertVertexAt(geom.V2(p.X, p.Y))
		if err != nil {
			return outcome{}, err
		}
		return outcome{result: vertexResult(v), edited: true, shared: true}, nil

	case OpVertexDelete:
		p, err := decode[PointPayload](op)
		if err != nil {
			return outcome{}, err
		}
		v, err := ed.DeleteVertexAt(geom.V2(p.X, p.Y))
		if err != nil {
			return outcome{}, err
		}
		return outcome{result: vertexResult(v), edited: true, shared: true}, nil

	case OpTogglePoints:
		t, err := decode[TogglePayload](op)
		if err != nil {
			return outcome{}, err
		}
		ed.SetDrawPoints(t.On)
		return outcome{shared: true}, nil

	case OpToggleHitboxes:
		t, err := decode[TogglePayload](op)
		if err != nil {
			return outcome{}, err
		}
		ed.SetDrawHitboxes(t.On)
		return outcome{shared: true}, nil

	case OpRender:
		cmds := ed.Render()
		if cmds == nil {
			cmds = []engine.DrawCommand{}
		}
		frame := &FramePayload{Commands: cmds, Selection: ed.SelectionIDs(), Viewport: ed.Viewport()}
		return outcome{frame: frame}, nil

	default:
		return outcome{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func decode[T any](op Operation) (T, error) {
	var v T
	if len(op.Payload) == 0 {
		return v, fmt.Errorf("%s: missing payload", op.Type)
	}
	if err := json.Unmarshal(op.Payload, &v); err != nil {
		return v, fmt.Errorf("%s: invalid payload: %w", op.Type, err)
	}
	return v, nil
}
