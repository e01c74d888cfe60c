// Package user owns user records and the per-user daily message quota.
package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service struct {
	repo         *Repo
	defaultLimit int
}

func NewService(repo *Repo, defaultLimit int) *Service {
	return &Service{repo: repo, defaultLimit: defaultLimit}
}

// today is the calendar date of the process-local clock; there is no
// timezone configuration.
func today() string {
	return time.Now().Format("2006-01-02")
}

// GetOrCreate returns the existing record unchanged, or inserts a fresh one
// with the configured default daily limit.
func (s *Service) GetOrCreate(ctx context.Context, id int64, username, firstName string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = &User{
		ID:         id,
		Username:   username,
		FirstName:  firstName,
		DailyLimit: s.defaultLimit,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// IsBlocked reports false for unknown users; not-yet-registered is not blocked.
func (s *Service) IsBlocked(ctx context.Context, id int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsBlocked, nil
}

// SetBlocked reports whether a row was affected; false means unknown user.
func (s *Service) SetBlocked(ctx context.Context, id int64, blocked bool) (bool, error) {
	return s.repo.SetBlocked(ctx, id, blocked)
}

// SetLimit sets the daily ceiling; -1 clears it (unlimited).
func (s *Service) SetLimit(ctx context.Context, id int64, limit int) (bool, error) {
	return s.repo.SetLimit(ctx, id, limit)
}

// Limit falls back to the system default for unknown users.
func (s *Service) Limit(ctx context.Context, id int64) (int, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultLimit, nil
		}
		return 0, err
	}
	return u.DailyLimit, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// IncrementDailyUsage bumps today's counter and returns the post-increment
// count.
func (s *Service) IncrementDailyUsage(ctx context.Context, id int64) (int, error) {
	return s.repo.IncrementDailyUsage(ctx, id, today())
}

// DailyUsage returns 0 when no row exists for today.
func (s *Service) DailyUsage(ctx context.Context, id int64) (int, error) {
	n, err := s.repo.GetDailyUsage(ctx, id, today())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// CanSendMessage checks the quota without reserving a slot. Two concurrent
// messages from the same user can both pass before either increments; the
// overshoot-by-one is accepted.
func (s *Service) CanSendMessage(ctx context.Context, id int64) (allowed bool, limit, used int, err error) {
	limit, err = s.Limit(ctx, id)
	if err != nil {
		return false, 0, 0, err
	}
	used, err = s.DailyUsage(ctx, id)
	if err != nil {
		return false, 0, 0, err
	}
	if limit == -1 {
		return true, limit, used, nil
	}
	return used < limit, limit, used, nil
}
