package level

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/polyeditor/polyeditor/backend-go/internal/snapshot"
)

// SnapshotReader reads saved layout versions. It is nil when no database is configured.
type SnapshotReader interface {
	Latest(ctx context.Context, level string) (*snapshot.Snapshot, error)
	Versions(ctx context.Context, level string) ([]snapshot.Snapshot, error)
}

type Handler struct {
	store     *Store
	snapshots SnapshotReader
}

func NewHandler(store *Store, snapshots SnapshotReader) *Handler {
	return &Handler{store: store, snapshots: snapshots}
}

type levelList struct {
	Dir    string   `json:"dir"`
	Levels []string `json:"levels"`
}

// List handles GET /levels.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List()
	if err != nil {
		slog.Error("list levels failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, levelList{Dir: h.store.Dir(), Levels: names})
}

// Get handles GET /levels/{name}: the level's layout document.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	l, err := h.store.Load(r.Context(), name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// LatestSnapshot handles GET /levels/{name}/snapshots/latest.
func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshots disabled"})
		return
	}
	name := mux.Vars(r)["name"]

	snap, err := h.snapshots.Latest(r.Context(), name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap.Document)
}

// Snapshots handles GET /levels/{name}/snapshots.
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshots disabled"})
		return
	}
	name := mux.Vars(r)["name"]

	versions, err := h.snapshots.Versions(r.Context(), name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if versions == nil {
		versions = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func handleServiceError(w http.ResponseWriter, err error) {
	var convErr *ConverterError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, snapshot.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid level name"})
	case errors.Is(err, ErrInvalidLayout):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &convErr):
		slog.Warn("converter failed", "code", int(convErr.Code), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		slog.Error("level error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
