package collab

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/typeid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrHubStopped      = errors.New("hub stopped")
	ErrInternal        = errors.New("internal error")
)

// Session is one open level: its editor, the clients editing it and their presence.
// Only the hub goroutine touches a Session.
type Session struct {
	id        string
	level     string
	editor    *engine.Editor
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	serverSeq int64
	savedSeq  int64
	edited    bool
}

func newSession(id, level string, ed *engine.Editor) *Session {
	return &Session{
		id:       id,
		level:    level,
		editor:   ed,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Level() string          { return s.level }
func (s *Session) Editor() *engine.Editor { return s.editor }
func (s *Session) ServerSeq() int64       { return s.serverSeq }

// Dirty reports whether the layout changed since the last save.
func (s *Session) Dirty() bool { return s.edited }

// MarkSaved records a save of the layout as it was at seq. Edits made after seq keep the
// session dirty.
func (s *Session) MarkSaved(seq int64) {
	s.savedSeq = max(s.savedSeq, seq)
	if s.serverSeq == s.savedSeq {
		s.edited = false
	}
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Clients   int    `json:"clients"`
	ServerSeq int64  `json:"serverSeq"`
	Dirty     bool   `json:"dirty"`
}

func (s *Session) info() SessionInfo {
	return SessionInfo{ID: s.id, Level: s.level, Clients: len(s.clients), ServerSeq: s.serverSeq, Dirty: s.edited}
}

type inbound struct {
	client *Client
	msg    *Message
}

// Hub runs every session on one goroutine. Websocket messages and HTTP handlers reach an
// editor only through it, so editors never see concurrent calls.
type Hub struct {
	sessions map[string]*Session // sessionID -> session, owned by Run

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	tasks      chan func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		tasks:      make(chan func()),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.inbound:
			recovered(func() { h.handleMessage(in.client, in.msg) })
		case task := <-h.tasks:
			task()
		case <-h.stop:
			h.shutdown()
			return
		}
	}
}

// Stop ends Run after disconnecting every client, and waits for it.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		if s.edited {
			slog.Warn("closing session with unsaved changes", "session", id, "level", s.level)
		}
		for _, c := range s.clients {
			close(c.send)
		}
	}
	clear(h.sessions)
}

// recovered runs fn and turns a panic into ErrInternal, keeping the hub goroutine alive.
func recovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic on hub goroutine", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	fn()
	return nil
}

// exec runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) exec(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	var panicErr error
	task := func() {
		defer close(finished)
		panicErr = recovered(fn)
	}
	select {
	case h.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	select {
	case <-finished:
		return panicErr
	case <-h.done:
		return ErrHubStopped
	}
}

// Open starts a session editing level and returns its id.
func (h *Hub) Open(ctx context.Context, level string, ed *engine.Editor) (string, error) {
	id := typeid.NewSessionID()
	err := h.exec(ctx, func() {
		h.sessions[id] = newSession(id, level, ed)
	})
	if err != nil {
		return "", err
	}
	slog.Info("session opened", "session", id, "level", level)
	return id, nil
}

// Do runs fn against a session on the hub goroutine.
func (h *Hub) Do(ctx context.Context, sessionID string, fn func(*Session) error) error {
	if err := typeid.Session.Check(sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	var fnErr error
	err := h.exec(ctx, func() {
		s, ok := h.sessions[sessionID]
		if !ok {
			fnErr = fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
			return
		}
		fnErr = fn(s)
	})
	if err != nil {
		return err
	}
	return fnErr
}

// Close disconnects every client of a session and forgets it.
func (h *Hub) Close(ctx context.Context, sessionID string) error {
	return h.Do(ctx, sessionID, func(s *Session) error {
		for _, c := range s.clients {
			close(c.send)
		}
		delete(h.sessions, sessionID)
		slog.Info("session closed", "session", sessionID, "dirty", s.edited)
		return nil
	})
}

// Sessions lists the open sessions ordered by id.
func (h *Hub) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var out []SessionInfo
	err := h.exec(ctx, func() {
		out = make([]SessionInfo, 0, len(h.sessions))
		for _, s := range h.sessions {
			out = append(out, s.info())
		}
	})
	slices.SortFunc(out, func(a, b SessionInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

// Register attaches a connected client to its session.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) submit(ctx context.Context, client *Client, msg *Message) bool {
	select {
	case h.inbound <- inbound{client: client, msg: msg}:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

func (h *Hub) addClient(client *Client) {
	s, ok := h.sessions[client.SessionID]
	if !ok {
		client.Send(errorMessage(fmt.Sprintf("session %s not found", client.SessionID)))
		close(client.send)
		return
	}
	s.clients[client.ClientID] = client

	welcome, _ := json.Marshal(WelcomePayload{
		ClientID:  client.ClientID,
		SessionID: s.id,
		Level:     s.level,
		ServerSeq: s.serverSeq,
	})
	client.Send(&Message{Type: TypeWelcome, SessionID: s.id, Payload: welcome})

	// Send current presence state to new client
	if stateMsg := s.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:     TypePresenceJoin,
		ClientID: client.ClientID,
		Payload:  joinPayload,
	}
	h.broadcast(s, joinMsg, client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "session", s.id)
}

func (h *Hub) removeClient(client *Client) {
	s, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, ok := s.clients[client.ClientID]; !ok {
		return
	}

	delete(s.clients, client.ClientID)
	close(client.send)
	s.presence.Remove(client.ClientID)

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		ClientID: client.ClientID,
	})
	leaveMsg := &Message{
		Type:     TypePresenceLeave,
		ClientID: client.ClientID,
		Payload:  leavePayload,
	}
	h.broadcast(s, leaveMsg, "")

	slog.Info("client left", "client", client.ClientID, "session", s.id)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	s, ok := h.sessions[sender.SessionID]
	if !ok || s.clients[sender.ClientID] != sender {
		return
	}
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(s, sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(s, sender, msg)
	case TypeDocSync:
		h.handleDocSync(s, sender)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.Send(errorMessage("unknown message type " + msg.Type))
	}
}

func (h *Hub) handlePresenceUpdate(s *Session, sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	s.presence.Update(sender.ClientID, &presence)

	// Broadcast to other clients in session
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}
	h.broadcast(s, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(s *Session, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.Send(nackMessage("", "invalid operation payload"))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	var (
		out outcome
		err error
	)
	if perr := recovered(func() { out, err = applyOperation(s.editor, op) }); perr != nil {
		err = perr
	}
	if err != nil {
		slog.Debug("operation refused", "op", op.Type, "client", sender.ClientID, "error", err)
		sender.Send(nackMessage(op.ID, err.Error()))
		return
	}

	s.serverSeq++
	if out.edited {
		s.edited = true
	}

	ack := OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       s.serverSeq,
		ServerTimestamp: time.Now().UnixMilli(),
	}
	if out.result != nil {
		ack.Result, _ = json.Marshal(out.result)
	}
	ackPayload, _ := json.Marshal(ack)
	sender.Send(&Message{Type: TypeOpAck, Seq: s.serverSeq, Payload: ackPayload})

	if out.frame != nil {
		framePayload, err := json.Marshal(out.frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
		} else {
			sender.Send(&Message{Type: TypeFrame, Seq: s.serverSeq, Payload: framePayload})
		}
	}

	if out.shared {
		bcPayload, _ := json.Marshal(OperationBroadcastPayload{
			Operation: op,
			ClientID:  sender.ClientID,
			ServerSeq: s.serverSeq,
		})
		h.broadcast(s, &Message{Type: TypeOpBroadcast, ClientID: sender.ClientID, Seq: s.serverSeq, Payload: bcPayload}, sender.ClientID)
	}
}

func (h *Hub) handleDocSync(s *Session, sender *Client) {
	data, err := s.editor.LayoutJSON()
	if err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}
	sender.Send(&Message{Type: TypeDocSync, SessionID: s.id, Seq: s.serverSeq, Payload: data})
}

func (h *Hub) broadcast(s *Session, msg *Message, excludeClientID string) {
	for _, c := range s.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Message{Type: TypeError, Payload: payload}
}

func nackMessage(opID, reason string) *Message {
	payload, _ := json.Marshal(OperationNackPayload{OperationID: opID, Reason: reason})
	return &Message{Type: TypeOpNack, Payload: payload}
}
