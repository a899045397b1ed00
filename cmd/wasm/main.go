//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

var ed *engine.Editor

func main() {
	ed = engine.NewEditor(engine.Options{})

	// Create the editor API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("loadLayout", js.FuncOf(loadLayout))
	api.Set("loadSampleLayout", js.FuncOf(loadSampleLayout))
	api.Set("setViewport", js.FuncOf(setViewport))
	api.Set("pan", js.FuncOf(pan))
	api.Set("zoomAt", js.FuncOf(zoomAt))
	api.Set("setCursor", js.FuncOf(setCursor))
	api.Set("setDrawPoints", js.FuncOf(setDrawPoints))
	api.Set("setDrawHitboxes", js.FuncOf(setDrawHitboxes))
	api.Set("selectAt", js.FuncOf(selectAt))
	api.Set("selectRect", js.FuncOf(selectRect))
	api.Set("endSelectRect", js.FuncOf(endSelectRect))
	api.Set("moveSelection", js.FuncOf(moveSelection))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))
	api.Set("duplicateSelected", js.FuncOf(duplicateSelected))
	api.Set("applyProperties", js.FuncOf(applyProperties))
	api.Set("applyColor", js.FuncOf(applyColor))
	api.Set("beginVertexDrag", js.FuncOf(beginVertexDrag))
	api.Set("dragVertex", js.FuncOf(dragVertex))
	api.Set("endVertexDrag", js.FuncOf(endVertexDrag))
	api.Set("insertVertexAt", js.FuncOf(insertVertexAt))
	api.Set("deleteVertexAt", js.FuncOf(deleteVertexAt))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("getLayout", js.FuncOf(getLayout))
	api.Set("getViewport", js.FuncOf(getViewport))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getProperties", js.FuncOf(getProperties))

	// Register on global scope
	js.Global().Set("polyEditor", api)

	// Signal that WASM is ready
	js.Global().Set("polyEditorWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) any {
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(map[string]any{"ok": true})
}

func missing(what string) any {
	return js.ValueOf(map[string]any{"error": "missing " + what})
}

func toJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(data))
}

func point(args []js.Value) geom.Vec2 {
	return geom.V2(args[0].Float(), args[1].Float())
}

func flag(args []js.Value, i int) bool {
	return len(args) > i && args[i].Truthy()
}

// --- Command Handlers ---

func loadLayout(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("layout JSON")
	}
	return result(ed.LoadJSON([]byte(args[0].String())))
}

func loadSampleLayout(this js.Value, args []js.Value) any {
	ed.LoadSample()
	return result(nil)
}

func setViewport(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("viewport JSON")
	}
	var v geom.Viewport
	if err := json.Unmarshal([]byte(args[0].String()), &v); err != nil {
		return result(err)
	}
	return result(ed.SetViewport(v))
}

func pan(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	ed.Pan(point(args))
	return nil
}

func zoomAt(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	ed.ZoomAt(point(args), args[2].Truthy(), flag(args, 3))
	return nil
}

func setCursor(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	ed.SetCursor(point(args), flag(args, 2))
	return nil
}

func setDrawPoints(this js.Value, args []js.Value) any {
	ed.SetDrawPoints(flag(args, 0))
	return nil
}

func setDrawHitboxes(this js.Value, args []js.Value) any {
	ed.SetDrawHitboxes(flag(args, 0))
	return nil
}

func selectAt(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	_, ok := ed.SelectAt(point(args), flag(args, 2))
	return js.ValueOf(ok)
}

func selectRect(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return js.ValueOf(0)
	}
	r := geom.Rect{X: args[0].Float(), Y: args[1].Float(), Width: args[2].Float(), Height: args[3].Float()}
	return js.ValueOf(ed.SelectRect(r, flag(args, 4)))
}

func endSelectRect(this js.Value, args []js.Value) any {
	ed.EndSelectRect()
	return nil
}

func moveSelection(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(0)
	}
	return js.ValueOf(ed.MoveSelection(point(args)))
}

func deleteSelected(this js.Value, args []js.Value) any {
	return js.ValueOf(ed.DeleteSelected())
}

func duplicateSelected(this js.Value, args []js.Value) any {
	return js.ValueOf(ed.DuplicateSelected())
}

func applyProperties(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("shape index and properties JSON")
	}
	var p engine.Properties
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return result(err)
	}
	return result(ed.ApplyProperties(args[0].Int(), p))
}

func applyColor(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf(0)
	}
	return js.ValueOf(ed.ApplyColor(uint8(args[0].Int()), uint8(args[1].Int()), uint8(args[2].Int())))
}

func vertexResult(v engine.VertexRef, err error) any {
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]any{"shape": v.ShapeIndex, "index": v.Index})
}

func beginVertexDrag(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("cursor position")
	}
	return vertexResult(ed.BeginVertexDrag(point(args)))
}

func dragVertex(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("delta")
	}
	return result(ed.DragVertex(point(args)))
}

func endVertexDrag(this js.Value, args []js.Value) any {
	return result(ed.EndVertexDrag())
}

func insertVertexAt(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("cursor position")
	}
	return vertexResult(ed.InsertVertexAt(point(args)))
}

func deleteVertexAt(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return missing("cursor position")
	}
	return vertexResult(ed.DeleteVertexAt(point(args)))
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	out, err := engine.DrawCommandsToJSON(ed.Render())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getLayout(this js.Value, args []js.Value) any {
	data, err := ed.LayoutJSON()
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(data))
}

func getViewport(this js.Value, args []js.Value) any {
	return toJSON(ed.Viewport())
}

func getSelection(this js.Value, args []js.Value) any {
	return toJSON(ed.SelectionIDs())
}

func getSelectionBounds(this js.Value, args []js.Value) any {
	return toJSON(ed.SelectionBounds())
}

func getProperties(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return missing("shape index")
	}
	p, err := ed.Properties(args[0].Int())
	if err != nil {
		return result(err)
	}
	return toJSON(p)
}
