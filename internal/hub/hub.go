package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/lumichat/backend/internal/model/chat"
	"github.com/lumichat/backend/internal/service/auth"
	chatservice "github.com/lumichat/backend/internal/service/chat"
	"github.com/lumichat/backend/internal/service/presence"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrNotMember       = errors.New("connection is not attached to this session")
	ErrUnauthorized    = errors.New("admin token required")
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrInvalidPayload  = errors.New("invalid event payload")
)

// TokenVerifier authorizes admin-attributed events. The auth service
// satisfies it.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Claims, error)
}

// Hub is the coordination core: it owns connection membership, applies
// inbound events against the chat service and the presence tracker, and
// fans resulting events out to session members. Every event passes
// through here, so a sender can never reach a session it is not a
// member of.
type Hub struct {
	chatSvc  *chatservice.Service
	tracker  *presence.Tracker
	verifier TokenVerifier

	// requireAdminToken gates admin-attributed socket events behind a
	// verified token. Switchable off to mirror deployments that trust
	// the dashboard network.
	requireAdminToken bool

	mu         sync.Mutex
	conns      map[string]Conn
	admins     map[string]bool
	membership map[string]string          // connID -> sessionID, at most one
	members    map[string]map[string]Conn // sessionID -> connID -> conn

	sendMu sync.Mutex
	sendL  map[string]*sync.Mutex // per-session append+broadcast order
}

// New wires the hub to its collaborators.
func New(chatSvc *chatservice.Service, tracker *presence.Tracker, verifier TokenVerifier, requireAdminToken bool) *Hub {
	return &Hub{
		chatSvc:           chatSvc,
		tracker:           tracker,
		verifier:          verifier,
		requireAdminToken: requireAdminToken,
		conns:             make(map[string]Conn),
		admins:            make(map[string]bool),
		membership:        make(map[string]string),
		members:           make(map[string]map[string]Conn),
		sendL:             make(map[string]*sync.Mutex),
	}
}

// Register adds a freshly connected transport. admin marks connections
// that presented a valid token at connect time.
func (h *Hub) Register(conn Conn, admin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = conn
	if admin {
		h.admins[conn.ID()] = true
	}
}

// Unregister treats a transport drop as an implicit leave: membership
// is removed and any typing flag the connection was driving is cleared
// and the reset broadcast to remaining members.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	h.detachLocked(connID)
	delete(h.conns, connID)
	delete(h.admins, connID)
	h.mu.Unlock()

	h.broadcastTypingCleared(h.tracker.ClearConnection(connID))
}

// HandleEvent validates and applies one inbound event. Failures are
// reported back to the originating connection only and returned for
// logging; other members never observe them.
func (h *Hub) HandleEvent(ctx context.Context, connID string, ev InboundEvent) error {
	if ev.Token != "" && h.verifier != nil {
		if _, err := h.verifier.VerifyToken(ev.Token); err == nil {
			h.mu.Lock()
			h.admins[connID] = true
			h.mu.Unlock()
		}
	}

	var err error
	switch ev.Type {
	case EventJoinSession:
		err = h.handleJoin(ctx, connID, ev.SessionID)
	case EventLeaveSession:
		err = h.handleLeave(connID, ev.SessionID)
	case EventSendMessage:
		err = h.handleSendMessage(ctx, connID, ev.Data)
	case EventTyping:
		err = h.handleTyping(connID, ev.Data)
	default:
		err = ErrUnknownEvent
	}

	if err != nil {
		h.sendError(connID, err)
	}
	return err
}

// handleJoin attaches the connection to a session, replacing any prior
// membership. History is not replayed; clients fetch the transcript
// over REST after joining and rely on the live feed only from then on.
func (h *Hub) handleJoin(ctx context.Context, connID, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		return err
	}

	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return nil // connection raced away
	}
	prev := h.membership[connID]
	if prev != "" && prev != sessionID {
		h.removeMemberLocked(connID, prev)
	}
	h.membership[connID] = sessionID
	if h.members[sessionID] == nil {
		h.members[sessionID] = make(map[string]Conn)
	}
	h.members[sessionID][connID] = conn
	h.mu.Unlock()

	if prev != "" && prev != sessionID {
		h.broadcastTypingCleared(h.tracker.ClearConnection(connID))
	}
	return nil
}

// handleLeave detaches the connection if it is a member; otherwise it
// is a no-op. Typing flags driven by the connection are cleared either
// way.
func (h *Hub) handleLeave(connID, sessionID string) error {
	h.mu.Lock()
	if h.membership[connID] == sessionID {
		h.detachLocked(connID)
	}
	h.mu.Unlock()

	h.broadcastTypingCleared(h.tracker.ClearConnection(connID))
	return nil
}

func (h *Hub) handleSendMessage(ctx context.Context, connID string, data json.RawMessage) error {
	var payload MessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidPayload
	}

	if err := h.requireMember(connID, payload.SessionID); err != nil {
		return err
	}
	if payload.SenderType == chat.SenderAdmin {
		if err := h.requireAdmin(connID); err != nil {
			return err
		}
	}

	_, err := h.AppendMessage(ctx, payload.SessionID, payload.SenderType, payload.SenderID, payload.Content)
	return err
}

func (h *Hub) handleTyping(connID string, data json.RawMessage) error {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ErrInvalidPayload
	}
	if !chat.ValidSender(payload.UserType) {
		return ErrInvalidPayload
	}

	if err := h.requireMember(connID, payload.SessionID); err != nil {
		return err
	}
	if payload.UserType == chat.SenderAdmin {
		if err := h.requireAdmin(connID); err != nil {
			return err
		}
	}

	h.tracker.SetTyping(connID, payload.SessionID, payload.UserType, payload.IsTyping)
	h.broadcast(payload.SessionID, newEvent(EventUserTyping, payload.SessionID, payload))
	return nil
}

// AppendMessage stores one message and fans it out to the session's
// members. The session send lock is held across the append and the
// broadcast so members always see new_message events in log order;
// both the socket path and the REST message endpoint go through here.
func (h *Hub) AppendMessage(ctx context.Context, sessionID, senderType, senderID, content string) (chat.Message, error) {
	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		return chat.Message{}, err
	}

	lock := h.sessionSendLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	message, err := h.chatSvc.AppendMessage(ctx, sessionID, senderType, senderID, content)
	if err != nil {
		return chat.Message{}, err
	}

	h.broadcast(sessionID, newEvent(EventNewMessage, sessionID, message))
	return message, nil
}

// broadcast delivers the event to every current member of the session.
// Cross-connection order is unspecified; per-connection order follows
// Send call order.
func (h *Hub) broadcast(sessionID string, ev Event) {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.members[sessionID]))
	for _, c := range h.members[sessionID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(ev); err != nil {
			log.Printf("[hub] send to %s failed: %v", c.ID(), err)
		}
	}
}

func (h *Hub) broadcastTypingCleared(cleared []presence.Cleared) {
	for _, c := range cleared {
		h.broadcast(c.SessionID, newEvent(EventUserTyping, c.SessionID, TypingPayload{
			SessionID: c.SessionID,
			UserType:  c.Role,
			IsTyping:  false,
		}))
	}
}

func (h *Hub) requireMember(connID, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.membership[connID] != sessionID {
		return ErrNotMember
	}
	return nil
}

func (h *Hub) requireAdmin(connID string) error {
	if !h.requireAdminToken {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.admins[connID] {
		return ErrUnauthorized
	}
	return nil
}

func (h *Hub) sessionSendLock(sessionID string) *sync.Mutex {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	l, ok := h.sendL[sessionID]
	if !ok {
		l = &sync.Mutex{}
		h.sendL[sessionID] = l
	}
	return l
}

// clientErrors are the validation failures safe to echo verbatim.
var clientErrors = []error{
	ErrSessionRequired,
	ErrNotMember,
	ErrUnauthorized,
	ErrUnknownEvent,
	ErrInvalidPayload,
	chatservice.ErrSessionNotFound,
	chatservice.ErrEmptyContent,
	chatservice.ErrInvalidSender,
}

// clientMessage keeps storage internals off the wire: anything outside
// the known validation set is reported generically.
func clientMessage(err error) string {
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "internal error"
}

func (h *Hub) sendError(connID string, err error) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return
	}
	if sendErr := conn.Send(newEvent(EventError, "", ErrorPayload{Message: clientMessage(err)})); sendErr != nil {
		log.Printf("[hub] error delivery to %s failed: %v", connID, sendErr)
	}
}

// detachLocked removes the connection's membership. Caller holds h.mu.
func (h *Hub) detachLocked(connID string) {
	sessionID, ok := h.membership[connID]
	if !ok {
		return
	}
	delete(h.membership, connID)
	h.removeMemberLocked(connID, sessionID)
}

func (h *Hub) removeMemberLocked(connID, sessionID string) {
	if set, ok := h.members[sessionID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.members, sessionID)
		}
	}
}
