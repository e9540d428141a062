package models

import (
	"time"
)

// Session is the server-side record backing an issued token. The token's
// session ID claim must resolve to an active row for the token to be valid,
// which makes sign-out an actual revocation rather than a client-side delete.
type Session struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UUID      string     `json:"uuid" gorm:"uniqueIndex"`
	UserID    uint       `json:"user_id" gorm:"index"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
