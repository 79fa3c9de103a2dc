package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const delayKey = "ai_comment.delay_minutes"

// DefaultDelayMinutes applies when no value is stored or the stored value is
// not a member of the allowed set.
const DefaultDelayMinutes = 10

// AllowedDelays is the full set of accepted comment delays.
var AllowedDelays = []int{1, 10, 60, 1440}

// Setting is a single persisted key/value pair.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Setting) TableName() string { return "settings" }

// Store reads and writes validated application settings.
type Store struct {
	DB *gorm.DB
}

// DelayMinutes returns the configured comment delay. Anything missing,
// unparsable, or outside the allowed set clamps to the default: arbitrary
// persisted numbers are never trusted.
func (s *Store) DelayMinutes(ctx context.Context) int {
	var row Setting
	err := s.DB.WithContext(ctx).Where("key = ?", delayKey).First(&row).Error
	if err != nil {
		return DefaultDelayMinutes
	}
	n, err := strconv.Atoi(row.Value)
	if err != nil || !DelayAllowed(n) {
		return DefaultDelayMinutes
	}
	return n
}

// SetDelayMinutes persists a new delay after validating set membership.
func (s *Store) SetDelayMinutes(ctx context.Context, minutes int) error {
	if !DelayAllowed(minutes) {
		return fmt.Errorf("delay %d not allowed (allowed: %v)", minutes, AllowedDelays)
	}
	row := Setting{Key: delayKey, Value: strconv.Itoa(minutes), UpdatedAt: time.Now()}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// DelayAllowed reports whether minutes is a member of the allowed set.
func DelayAllowed(minutes int) bool {
	for _, d := range AllowedDelays {
		if d == minutes {
			return true
		}
	}
	return false
}
