package asset

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/image/draw"

	"github.com/polyeditor/polyeditor/backend-go/internal/collab"
	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
)

const maxScale = 16

// Sessions runs a function against an open session.
type Sessions interface {
	Do(ctx context.Context, sessionID string, fn func(*collab.Session) error) error
}

// MaskInfo describes a shape's hit mask.
type MaskInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Filled int `json:"filled"`
}

// Handler serves images of a session's hit masks.
type Handler struct {
	sessions Sessions
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

// Mask handles GET /api/sessions/{sessionId}/shapes/{index}/mask.png. The optional scale
// query parameter enlarges each mask pixel to scale×scale image pixels, lowered so the
// image stays within engine.MaxMaskSide on each side.
func (h *Handler) Mask(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid shape index", http.StatusBadRequest)
		return
	}
	scale := 1
	if s := r.URL.Query().Get("scale"); s != "" {
		scale, err = strconv.Atoi(s)
		if err != nil || scale < 1 || scale > maxScale {
			http.Error(w, "scale must be between 1 and 16", http.StatusBadRequest)
			return
		}
	}

	img, err := h.maskImage(r.Context(), mux.Vars(r)["sessionId"], index)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	b := img.Bounds()
	scale = min(scale, max(1, engine.MaxMaskSide/max(b.Dx(), b.Dy())))

	var out image.Image = img
	if scale > 1 {
		dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		out = dst
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, out); err != nil {
		slog.Error("encode png", "error", err)
	}
}

// MaskInfo handles GET /api/sessions/{sessionId}/shapes/{index}/mask.
func (h *Handler) MaskInfo(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid shape index", http.StatusBadRequest)
		return
	}

	var info MaskInfo
	err = h.sessions.Do(r.Context(), mux.Vars(r)["sessionId"], func(s *collab.Session) error {
		shape, err := s.Editor().Shape(index)
		if err != nil {
			return err
		}
		m := shape.HitMask()
		info = MaskInfo{Width: m.Width(), Height: m.Height(), Filled: m.Count()}
		return nil
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(info)
}

// maskImage copies the mask on the hub goroutine; encoding happens outside it.
func (h *Handler) maskImage(ctx context.Context, sessionID string, index int) (*image.Gray, error) {
	var img *image.Gray
	err := h.sessions.Do(ctx, sessionID, func(s *collab.Session) error {
		shape, err := s.Editor().Shape(index)
		if err != nil {
			return err
		}
		img = shape.HitMask().Image()
		return nil
	})
	return img, err
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collab.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrNoLayout):
		http.Error(w, "shape not found", http.StatusNotFound)
	case errors.Is(err, collab.ErrHubStopped):
		http.Error(w, "server stopping", http.StatusServiceUnavailable)
	default:
		slog.Error("mask error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
