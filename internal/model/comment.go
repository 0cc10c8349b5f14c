package model

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	UserID    string    `gorm:"index;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	User   *User       `gorm:"foreignKey:UserID" json:"-"`
	Post   *Post       `gorm:"foreignKey:PostID" json:"-"`
	Author *PublicUser `gorm:"-" json:"author,omitempty"`
}

func (c *Comment) AfterFind(*gorm.DB) error {
	if c.User != nil {
		a := c.User.Public()
		c.Author = &a
	}

	return nil
}
