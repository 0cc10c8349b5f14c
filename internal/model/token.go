package model

import "time"

type TokenPurpose string

const (
	PurposeEmailVerify    TokenPurpose = "email_verify"
	PurposePasswordReset  TokenPurpose = "password_reset"
	PurposeTwoFactorLogin TokenPurpose = "two_factor_login"
)

// Token is a single-use value with an expiry. Identifier is an email address
// or a user ID depending on the purpose.
type Token struct {
	ID         uint         `gorm:"primaryKey;autoIncrement"`
	Purpose    TokenPurpose `gorm:"size:32;index:idx_token_lookup;not null"`
	Identifier string       `gorm:"index:idx_token_lookup;not null"`
	Value      string       `gorm:"index;not null"`
	ExpiresAt  time.Time    `gorm:"index;not null"`
	Attempts   int          `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
