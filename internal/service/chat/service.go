package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/lumichat/backend/internal/model/chat"
)

var (
	ErrParticipantRequired = errors.New("participant id is required")
	ErrSessionNotFound     = errors.New("session not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrEmptyContent        = errors.New("message content is empty")
	ErrInvalidStatus       = errors.New("invalid session status")
	ErrInvalidSender       = errors.New("invalid sender type")
)

// Service owns the durable session registry and the per-session message
// log. Appends to the same session are serialized so the transcript
// keeps a strict (created_at, seq) order; different sessions proceed
// independently.
type Service struct {
	db *gorm.DB

	mu       sync.Mutex
	sessionL map[string]*sync.Mutex
}

// NewService wraps the given database handle.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		sessionL: make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the append lock for a session, creating it on
// first use.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessionL[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.sessionL[sessionID] = l
	}
	return l
}

// CreateSession provisions a new active session for a visitor.
func (s *Service) CreateSession(ctx context.Context, participantID, name, email string) (chat.Session, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return chat.Session{}, ErrParticipantRequired
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:               uuid.NewString(),
		ParticipantID:    participantID,
		ParticipantName:  strings.TrimSpace(name),
		ParticipantEmail: strings.TrimSpace(email),
		Status:           chat.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	var session chat.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Session{}, ErrSessionNotFound
		}
		return chat.Session{}, err
	}
	return session, nil
}

// ListSessions returns all sessions, most recently active first. The
// dashboard polls this to sort its inbox.
func (s *Service) ListSessions(ctx context.Context) ([]chat.Session, error) {
	sessions := make([]chat.Session, 0)
	if err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// SetStatus transitions a session between active and closed and touches
// its updated_at.
func (s *Service) SetStatus(ctx context.Context, sessionID, status string) (chat.Session, error) {
	if !chat.ValidStatus(status) {
		return chat.Session{}, ErrInvalidStatus
	}

	var session chat.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		session.Status = status
		session.UpdatedAt = time.Now().UTC()
		return tx.Model(&chat.Session{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"status":     session.Status,
				"updated_at": session.UpdatedAt,
			}).Error
	})
	if err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// AppendMessage validates and stores one message, refreshing the
// session's updated_at in the same transaction. The append and the
// registry touch succeed or fail together.
func (s *Service) AppendMessage(ctx context.Context, sessionID, senderType, senderID, content string) (chat.Message, error) {
	if !chat.ValidSender(senderType) {
		return chat.Message{}, ErrInvalidSender
	}
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, ErrEmptyContent
	}

	// Reject unknown sessions before allocating a per-session lock, so
	// requests naming arbitrary ids cannot grow the lock map. The
	// transaction below re-checks under the lock.
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return chat.Message{}, err
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	message := chat.Message{
		ID:         ulid.Make().String(),
		SessionID:  sessionID,
		SenderType: senderType,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if senderID != "" {
		message.SenderID = &senderID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session chat.Session
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		return tx.Model(&chat.Session{}).
			Where("id = ?", sessionID).
			Update("updated_at", message.CreatedAt).Error
	})
	if err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// ListMessages returns the full transcript for a session in append
// order. A session with no messages yields an empty slice, not an
// error.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0)
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flags a message as read. Marking an already-read message is
// a no-op returning the same state.
func (s *Service) MarkRead(ctx context.Context, messageID string) (chat.Message, error) {
	var message chat.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, ErrMessageNotFound
		}
		return chat.Message{}, err
	}

	if message.IsRead {
		return message, nil
	}

	if err := s.db.WithContext(ctx).Model(&chat.Message{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error; err != nil {
		return chat.Message{}, err
	}
	message.IsRead = true
	return message, nil
}
