package session

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateActive inserts s as the user's only active session. Deactivation of
// the others and the insert commit together.
func (r *Repo) CreateActive(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Session{}).
			Where("user_id = ?", s.UserID).
			UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		s.IsActive = true
		return tx.Create(s).Error
	})
}

func (r *Repo) Active(ctx context.Context, userID int64) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns the user's sessions, newest-created first.
func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Session, error) {
	var sessions []Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// SwitchActive activates sessionID for userID and deactivates the rest.
// Ownership is verified inside the same transaction; a session belonging to
// someone else leaves the user's active session untouched and reports false.
func (r *Repo) SwitchActive(ctx context.Context, userID int64, sessionID string) (bool, error) {
	switched := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s Session
		err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).
			First(&s).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&Session{}).
			Where("user_id = ?", userID).
			UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&Session{}).
			Where("session_id = ?", sessionID).
			UpdateColumn("is_active", true).Error; err != nil {
			return err
		}
		switched = true
		return nil
	})
	return switched, err
}

// Delete removes the session and its messages together. Reports whether the
// session row existed.
func (r *Repo) Delete(ctx context.Context, sessionID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("session_id = ?", sessionID).Delete(&Session{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func (r *Repo) DeleteMessages(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&Message{}).Error
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the session's messages in creation order, oldest
// first; insertion id breaks creation-time ties.
func (r *Repo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
