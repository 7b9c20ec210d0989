package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Comment 定义了评论模型。UserID 与 Guestname 互斥，ParentID 指向被回复的评论。
type Comment struct {
	gorm.Model
	Content   string    `gorm:"type:text;not null"`
	Created   time.Time `gorm:"index;not null"`
	UserID    *uint     `gorm:"index"`
	User      *User
	Guestname string
	ParentID  *uint    `gorm:"index"`
	Parent    *Comment `gorm:"constraint:OnDelete:SET NULL;"`
	PostID    uint     `gorm:"index;not null"`
	Post      *Post
}

// AuthorName 返回评论作者的展示名称：注册用户取用户名，否则取访客名。
func (c *Comment) AuthorName() string {
	if c.UserID != nil && c.User != nil {
		return c.User.Username
	}
	return strings.TrimSpace(c.Guestname)
}

// IsReply 判断评论是否为回复。
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// BeforeSave 统一以 UTC 存储创建时间。
func (c *Comment) BeforeSave(*gorm.DB) error {
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	c.Created = c.Created.UTC()
	return nil
}
