package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrelsec/warden/internal/logger"
	"github.com/kestrelsec/warden/internal/models"
	"github.com/kestrelsec/warden/internal/protection"
	"github.com/kestrelsec/warden/internal/util"
)

// EventService persists protection telemetry so denials can be audited
// after the fact. It implements protection.Recorder.
type EventService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEventService returns an EventService using the provided DB.
func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// RecordDeny stores a deny verdict. Telemetry must never take the request
// path down, so storage errors are logged and swallowed.
func (s *EventService) RecordDeny(v protection.Verdict, req *protection.RequestInfo) {
	event := models.ProtectionEvent{
		UUID:        uuid.NewString(),
		Rule:        v.Rule,
		Reason:      string(v.Reason),
		Fingerprint: req.Fingerprint(),
		IP:          req.ClientIP,
		Path:        util.SanitizeForLog(req.Path),
		Details:     util.SanitizeForLog(v.Detail),
		CreatedAt:   s.now(),
	}

	if err := s.db.Create(&event).Error; err != nil {
		logger.Log().WithError(err).Warn("failed to record protection event")
	}
}

// List returns recent protection events, newest first.
func (s *EventService) List(limit int) ([]models.ProtectionEvent, error) {
	var events []models.ProtectionEvent
	q := s.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// PurgeOlderThan deletes events recorded before the retention horizon.
func (s *EventService) PurgeOlderThan(retention time.Duration) (int64, error) {
	res := s.db.Where("created_at < ?", s.now().Add(-retention)).Delete(&models.ProtectionEvent{})
	return res.RowsAffected, res.Error
}
