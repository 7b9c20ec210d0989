package db

import (
	"time"

	"gorm.io/gorm"
)

// Post 定义了文章模型。Slug 在创建时由原始标题生成，之后不再改变。
type Post struct {
	gorm.Model
	Title    string    `gorm:"not null"`
	Slug     string    `gorm:"uniqueIndex;not null"`
	Body     string    `gorm:"type:text"`
	Created  time.Time `gorm:"index;not null"`
	Comments []Comment
}

// BeforeSave 统一以 UTC 存储创建时间，保证按字符串比较与排序时结果正确。
func (p *Post) BeforeSave(*gorm.DB) error {
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	p.Created = p.Created.UTC()
	return nil
}
