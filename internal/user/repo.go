package user

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) SetBlocked(ctx context.Context, id int64, blocked bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		UpdateColumn("is_blocked", blocked)
	return res.RowsAffected > 0, res.Error
}

func (r *Repo) SetLimit(ctx context.Context, id int64, limit int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		UpdateColumn("daily_limit", limit)
	return res.RowsAffected > 0, res.Error
}

// List returns all users, newest-created first.
func (r *Repo) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IncrementDailyUsage creates the (user, date) row if absent and bumps its
// counter, all inside one transaction so concurrent increments for the same
// pair cannot lose updates.
func (r *Repo) IncrementDailyUsage(ctx context.Context, id int64, date string) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
			DoNothing: true,
		}).Create(&DailyUsage{UserID: id, UsageDate: date}).Error; err != nil {
			return err
		}
		if err := tx.Model(&DailyUsage{}).
			Where("user_id = ? AND usage_date = ?", id, date).
			UpdateColumn("message_count", gorm.Expr("message_count + 1")).Error; err != nil {
			return err
		}
		var row DailyUsage
		if err := tx.Where("user_id = ? AND usage_date = ?", id, date).
			Take(&row).Error; err != nil {
			return err
		}
		count = row.MessageCount
		return nil
	})
	return count, err
}

func (r *Repo) GetDailyUsage(ctx context.Context, id int64, date string) (int, error) {
	var row DailyUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND usage_date = ?", id, date).
		Take(&row).Error
	if err != nil {
		return 0, err
	}
	return row.MessageCount, nil
}
