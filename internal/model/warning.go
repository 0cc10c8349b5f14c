package model

import "time"

// Warning is an admin-issued note on a user. The number of warnings a user
// has decides their restriction level.
type Warning struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"index;not null" json:"userId"`
	IssuedBy  string    `json:"issuedBy"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
