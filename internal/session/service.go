// Package session owns chat session lifecycle and message history.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hkarimi/telegpt/internal/ai"
	"github.com/hkarimi/telegpt/internal/common"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Create inserts a new active session for the user, deactivating any other.
// An empty name is synthesized from the creation timestamp.
func (s *Service) Create(ctx context.Context, userID int64, name string) (*Session, error) {
	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "Chat " + time.Now().Format("2006/01/02 15:04")
	}
	sess := &Session{
		SessionID: sid,
		UserID:    userID,
		Name:      name,
	}
	if err := s.repo.CreateActive(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Active returns nil when the user has no active session.
func (s *Service) Active(ctx context.Context, userID int64) (*Session, error) {
	sess, err := s.repo.Active(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]Session, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Switch reports false, without touching any session, when sessionID does
// not belong to userID.
func (s *Service) Switch(ctx context.Context, userID int64, sessionID string) (bool, error) {
	return s.repo.SwitchActive(ctx, userID, sessionID)
}

func (s *Service) Delete(ctx context.Context, sessionID string) (bool, error) {
	return s.repo.Delete(ctx, sessionID)
}

// ClearHistory removes the session's messages but keeps the session row.
// Clearing an already-empty session succeeds too.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) (bool, error) {
	if err := s.repo.DeleteMessages(ctx, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

// Append stores one message and returns its id.
func (s *Service) Append(ctx context.Context, sessionID, role, content string) (string, error) {
	m := &Message{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return "", err
	}
	return m.MessageID, nil
}

// Transcript is the exact role/content sequence sent to the completion
// client, ascending by creation order.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]ai.Message, error) {
	msgs, err := s.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}
