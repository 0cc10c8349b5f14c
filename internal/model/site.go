package model

import (
	"time"

	"gorm.io/gorm"
)

// SystemMaintenance is a maintenance window shown to every visitor while active
type SystemMaintenance struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	IsActive  bool       `gorm:"index;default:false" json:"isActive"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Over reports whether the window has an end time that already passed
func (m *SystemMaintenance) Over(now time.Time) bool {
	return m.EndTime != nil && !now.Before(*m.EndTime)
}

// Started is false for windows scheduled in the future
func (m *SystemMaintenance) Started(now time.Time) bool {
	return m.StartTime == nil || !now.Before(*m.StartTime)
}

type Announcement struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string     `gorm:"size:120;not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	IsActive  bool       `gorm:"index;default:true" json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Update is an entry in the public changelog
type Update struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:120;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Version     string    `gorm:"size:32" json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChatMessage belongs to the internal admin chat
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"index;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	User   *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Author *PublicUser `gorm:"-" json:"author,omitempty"`
}

func (m *ChatMessage) AfterFind(*gorm.DB) error {
	if m.User != nil {
		a := m.User.Public()
		m.Author = &a
	}

	return nil
}
