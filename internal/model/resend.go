package model

import "time"

// ResendRequest tracks when a verification code was last re-sent to an address
type ResendRequest struct {
	Identifier string `gorm:"primaryKey"`
	LastResend time.Time
	Count      int
}
