package user

import "time"

// User is created on first contact and never deleted. The id is the
// messaging platform's numeric user id, so it is not auto-incremented.
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username   string    `gorm:"type:varchar(64)" json:"username"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name"`
	IsBlocked  bool      `gorm:"not null;default:false" json:"is_blocked"`
	DailyLimit int       `gorm:"not null;default:-1" json:"daily_limit"` // -1 = unlimited
	CreatedAt  time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// DailyUsage holds one row per (user, calendar date), created lazily on the
// first increment of that day.
type DailyUsage struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"not null;index:uniq_daily_usage,unique,priority:1"`
	UsageDate    string `gorm:"type:varchar(10);not null;index:uniq_daily_usage,unique,priority:2"`
	MessageCount int    `gorm:"not null;default:0"`
}

func (DailyUsage) TableName() string { return "daily_usage" }
