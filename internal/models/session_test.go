package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Active(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Hour)}

	assert.True(t, s.Active(now))
	assert.False(t, s.Active(now.Add(2*time.Hour)), "expired session is inactive")

	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.Active(now), "revoked session is inactive regardless of expiry")
}
