package comment

import (
	"time"

	"gorm.io/datatypes"
)

// Job statuses. pending and processing are the live states; the rest are
// terminal.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobSkipped    = "skipped"
	JobFailed     = "failed"
)

// Job is one unit of deferred work: "generate and attach an AI comment to
// this entry". Created pending by the Scheduler, claimed and resolved by the
// Runner. At most one pending/processing job exists per entry.
type Job struct {
	ID      uint64 `gorm:"primaryKey"`
	EntryID uint64 `gorm:"index;not null"`
	UserID  uint64 `gorm:"index;not null"`

	Status      string    `gorm:"index;not null;default:'pending'"`
	ScheduledAt time.Time `gorm:"index;not null"`

	StartedAt   *time.Time
	CompletedAt *time.Time

	AttemptCount int     `gorm:"not null;default:0"`
	ClaimedBy    *string `gorm:"type:text"`
	LastError    *string `gorm:"type:text"`

	Metadata datatypes.JSON

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Job) TableName() string { return "comment_jobs" }
