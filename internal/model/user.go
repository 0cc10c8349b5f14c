// Package model defines database models
package model

import "time"

type User struct {
	ID       string  `gorm:"primaryKey" json:"id"`
	Email    *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Username string  `gorm:"uniqueIndex;not null" json:"username"`
	Name     string  `json:"name"`
	Avatar   string  `json:"avatar"`

	// Empty for accounts created through OAuth
	PasswordHash string  `json:"-"`
	DiscordID    *string `gorm:"uniqueIndex" json:"-"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`

	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	// Unverified credential accounts are swept once this passes
	ExpiresAt *time.Time `json:"-"`

	IsAdmin           bool    `gorm:"default:false" json:"isAdmin"`
	IsBlocked         bool    `gorm:"default:false" json:"isBlocked"`
	IsRestricted      bool    `gorm:"default:false" json:"isRestricted"`
	RestrictionReason *string `json:"restrictionReason,omitempty"`

	TwoFactorEnabled bool    `gorm:"default:false" json:"twoFactorEnabled"`
	TwoFactorSecret  *string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Warnings []Warning `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"warnings,omitempty"`
	Posts    []Post    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasIdentity reports whether the user can sign in with at least one method
func (u *User) HasIdentity() bool {
	if u.Email != nil && *u.Email != "" && u.PasswordHash != "" {
		return true
	}

	return (u.DiscordID != nil && *u.DiscordID != "") || (u.GoogleID != nil && *u.GoogleID != "")
}

// Verified is true for OAuth accounts and credential accounts that confirmed their email
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// PublicUser is the subset of a user shown next to posts and comments
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
	}
}
