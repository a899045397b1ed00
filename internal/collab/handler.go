package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/polyeditor/polyeditor/backend-go/internal/auth"
	"github.com/polyeditor/polyeditor/backend-go/internal/document"
	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/level"
	"github.com/polyeditor/polyeditor/backend-go/internal/snapshot"
	"github.com/polyeditor/polyeditor/backend-go/internal/typeid"
)

// ErrSampleSession is returned when saving a session that edits the built-in sample.
var ErrSampleSession = errors.New("the sample layout cannot be saved")

// LevelStore loads and saves levels on disk.
type LevelStore interface {
	Load(ctx context.Context, name string) (*document.Layout, error)
	Save(ctx context.Context, name string, l *document.Layout) (level.SaveResult, error)
}

// SnapshotWriter records saved layouts. It is nil when no database is configured.
type SnapshotWriter interface {
	Save(ctx context.Context, name string, doc []byte) (*snapshot.Snapshot, error)
}

type Handler struct {
	hub            *Hub
	levels         LevelStore
	snapshots      SnapshotWriter
	auth           *auth.Service
	opts           engine.Options
	originPatterns []string
}

func NewHandler(hub *Hub, levels LevelStore, snapshots SnapshotWriter, authService *auth.Service, opts engine.Options, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		levels:         levels,
		snapshots:      snapshots,
		auth:           authService,
		opts:           opts,
		originPatterns: originPatterns,
	}
}

type createSessionRequest struct {
	// Level is the level name. Empty opens the built-in sample layout.
	Level string `json:"level"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	Level     string `json:"level"`
}

type saveResponse struct {
	level.SaveResult
	ServerSeq int64              `json:"serverSeq"`
	Snapshot  *snapshot.Snapshot `json:"snapshot,omitempty"`
}

// CreateSession handles POST /sessions: it loads the level into a new editor session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ed := engine.NewEditor(h.opts)
	if req.Level == "" {
		ed.LoadSample()
	} else {
		l, err := h.levels.Load(r.Context(), req.Level)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		ed.Load(l)
	}

	id, err := h.hub.Open(r.Context(), req.Level, ed)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	token, err := h.auth.IssueToken(id)
	if err != nil {
		slog.Error("issue token failed", "error", err, "session", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Token: token, Level: req.Level})
}

// Sessions handles GET /sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	infos, err := h.hub.Sessions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// Layout handles GET /api/sessions/{sessionId}/layout: the session's current document.
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var data []byte
	err := h.hub.Do(r.Context(), sessionID, func(s *Session) error {
		var err error
		data, err = s.Editor().LayoutJSON()
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Save handles POST /api/sessions/{sessionId}/save. The layout is copied on the hub
// goroutine and written out while editing continues.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var (
		name string
		data []byte
		seq  int64
	)
	err := h.hub.Do(r.Context(), sessionID, func(s *Session) error {
		if s.Level() == "" {
			return ErrSampleSession
		}
		var err error
		data, err = s.Editor().LayoutJSON()
		name, seq = s.Level(), s.ServerSeq()
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	l, err := document.Parse(data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	res, err := h.levels.Save(r.Context(), name, l)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := saveResponse{SaveResult: res, ServerSeq: seq}
	if h.snapshots != nil {
		snap, err := h.snapshots.Save(r.Context(), name, data)
		if err != nil {
			slog.Error("record snapshot failed", "error", err, "level", name)
		} else {
			snap.Document = nil
			resp.Snapshot = snap
		}
	}

	err = h.hub.Do(r.Context(), sessionID, func(s *Session) error {
		s.MarkSaved(seq)
		return nil
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// CloseSession handles DELETE /api/sessions/{sessionId}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.hub.Close(r.Context(), sessionID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeWS handles GET /ws/session/{sessionId}?token=...&name=...
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	tokenSession, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if tokenSession != sessionID {
		http.Error(w, "token is for another session", http.StatusForbidden)
		return
	}

	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, sessionID, typeid.NewClientID(), displayName)
	if err := h.hub.Register(client); err != nil {
		conn.Close(websocket.StatusGoingAway, "server stopping")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func handleServiceError(w http.ResponseWriter, err error) {
	var convErr *level.ConverterError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, level.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "level not found"})
	case errors.Is(err, level.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid level name"})
	case errors.Is(err, ErrSampleSession):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, level.ErrInvalidLayout):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &convErr):
		slog.Warn("converter failed", "code", int(convErr.Code), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrHubStopped):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server stopping"})
	default:
		slog.Error("session error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
