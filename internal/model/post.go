package model

import (
	"time"

	"gorm.io/gorm"
)

type PostStatus string

const (
	PostPending  PostStatus = "PENDING"
	PostApproved PostStatus = "APPROVED"
	PostRejected PostStatus = "REJECTED"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostPending, PostApproved, PostRejected:
		return true
	}

	return false
}

type Post struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string      `gorm:"index;not null" json:"userId"`
	Title       string      `gorm:"size:120;not null" json:"title"`
	Description string      `gorm:"type:text;not null" json:"description"`
	Images      StringSlice `gorm:"type:text" json:"images"`
	Videos      StringSlice `gorm:"type:text" json:"videos"`

	FacebookURL  *string `json:"facebookUrl,omitempty"`
	InstagramURL *string `json:"instagramUrl,omitempty"`
	TiktokURL    *string `json:"tiktokUrl,omitempty"`
	WebsiteURL   *string `json:"websiteUrl,omitempty"`

	Status   PostStatus `gorm:"size:16;index;not null;default:PENDING" json:"status"`
	IsPinned bool       `gorm:"index;default:false" json:"isPinned"`
	PinnedAt *time.Time `json:"pinnedAt,omitempty"`
	EditedAt *time.Time `json:"editedAt,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User     *User         `gorm:"foreignKey:UserID" json:"-"`
	Author   *PublicUser   `gorm:"-" json:"author,omitempty"`
	Warnings []PostWarning `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"warnings,omitempty"`
	Comments []Comment     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Post) AfterFind(*gorm.DB) error {
	if p.User != nil {
		a := p.User.Public()
		p.Author = &a
	}

	return nil
}

// PostWarning is an admin annotation on a single post. It has no effect on the
// author's restriction level.
type PostWarning struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
