package models

import (
	"time"
)

// ProtectionEvent stores a deny verdict produced by the protection pipeline
// so it can be audited and surfaced in the API. The Details column carries
// the internal reason that is deliberately withheld from the HTTP response.
type ProtectionEvent struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex"`
	Rule        string    `json:"rule"`   // e.g., shield, bot, rate_limit
	Reason      string    `json:"reason"` // stable reason code
	Fingerprint string    `json:"fingerprint" gorm:"index"`
	IP          string    `json:"ip"`
	Path        string    `json:"path"`
	Details     string    `json:"details" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
