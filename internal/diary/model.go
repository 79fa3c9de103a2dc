package diary

import (
	"time"

	"gorm.io/datatypes"
)

// AI comment statuses on an entry. idle means the pipeline never looked at
// the entry; pending means a job is scheduled or retrying; the rest are
// terminal. There is no visible "processing" state: a claimed job keeps the
// entry pending until it resolves.
const (
	CommentIdle      = "idle"
	CommentPending   = "pending"
	CommentCompleted = "completed"
	CommentSkipped   = "skipped"
	CommentFailed    = "failed"
)

// Entry is a user-authored diary record plus the AI-comment projection the
// async pipeline writes back onto it.
//
// Invariant: AIComment is non-nil iff AICommentStatus == completed.
type Entry struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Title   string `gorm:"type:text;not null;default:''"`
	Content string `gorm:"type:text;not null"`

	EventSummary string    `gorm:"type:text;not null;default:''"`
	Realization  string    `gorm:"type:text;not null;default:''"`
	EmotionLabel string    `gorm:"type:text;not null;default:''"`
	MoodLabel    string    `gorm:"type:text;not null;default:''"`
	JournalDate  time.Time `gorm:"type:date;not null"`

	Tags datatypes.JSON `gorm:"not null;default:'[]'"`

	AICommentStatus      string         `gorm:"column:ai_comment_status;index;not null;default:'idle'"`
	AIComment            *string        `gorm:"column:ai_comment;type:text"`
	AICommentGeneratedAt *time.Time     `gorm:"column:ai_comment_generated_at"`
	AICommentMetadata    datatypes.JSON `gorm:"column:ai_comment_metadata"`

	CreatedAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Entry) TableName() string { return "diary_entries" }
