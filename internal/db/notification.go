package db

import "time"

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification 是回复通知邮件的发件箱记录，每条评论至多一条。
type Notification struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CommentID uint   `gorm:"uniqueIndex;not null"`
	Recipient string `gorm:"not null"`
	Subject   string `gorm:"not null"`
	HTMLBody  string `gorm:"type:text"`
	MessageID string `gorm:"not null"`
	Status    string `gorm:"type:varchar(16);index;not null"`
	Attempts  int    `gorm:"not null;default:0"`
	LastError string
	SentAt    *time.Time
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}
