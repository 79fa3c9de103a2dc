package diary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")
var ErrEmptyContent = errors.New("content required")

type Service struct {
	DB *gorm.DB
}

type CreateEntryInput struct {
	Title        string
	Content      string
	EventSummary string
	Realization  string
	EmotionLabel string
	MoodLabel    string
	JournalDate  *time.Time
}

type UpdateEntryInput struct {
	Title        *string
	Content      *string
	EventSummary *string
	Realization  *string
	EmotionLabel *string
	MoodLabel    *string
}

// CreateEntry persists a new entry with ai_comment_status=idle. Scheduling a
// comment job is the caller's concern; creation never depends on it.
func (s *Service) CreateEntry(ctx context.Context, userID uint64, in CreateEntryInput) (*Entry, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, ErrEmptyContent
	}

	journalDate := time.Now()
	if in.JournalDate != nil {
		journalDate = *in.JournalDate
	}

	e := Entry{
		UserID:          userID,
		Title:           strings.TrimSpace(in.Title),
		Content:         in.Content,
		EventSummary:    strings.TrimSpace(in.EventSummary),
		Realization:     strings.TrimSpace(in.Realization),
		EmotionLabel:    strings.TrimSpace(in.EmotionLabel),
		MoodLabel:       strings.TrimSpace(in.MoodLabel),
		JournalDate:     journalDate,
		Tags:            tagsJSON(in.Content),
		AICommentStatus: CommentIdle,
	}
	if err := s.DB.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntry edits an existing entry owned by userID. Editing never
// reschedules commentary; a still-pending job re-validates the new content
// when it runs.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID uint64, in UpdateEntryInput) (*Entry, error) {
	var e Entry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&e).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.Title != nil {
			e.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			c := strings.TrimSpace(*in.Content)
			if c == "" {
				return ErrEmptyContent
			}
			e.Content = c
			e.Tags = tagsJSON(c)
		}
		if in.EventSummary != nil {
			e.EventSummary = strings.TrimSpace(*in.EventSummary)
		}
		if in.Realization != nil {
			e.Realization = strings.TrimSpace(*in.Realization)
		}
		if in.EmotionLabel != nil {
			e.EmotionLabel = strings.TrimSpace(*in.EmotionLabel)
		}
		if in.MoodLabel != nil {
			e.MoodLabel = strings.TrimSpace(*in.MoodLabel)
		}
		e.UpdatedAt = time.Now()

		return tx.Save(&e).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func tagsJSON(content string) datatypes.JSON {
	tags := ExtractTags(content)
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return datatypes.JSON(b)
}
