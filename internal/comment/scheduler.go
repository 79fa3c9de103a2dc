package comment

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kokoro/internal/diary"
	"kokoro/internal/settings"
)

// ReasonAlreadyScheduled is returned when an entry already has a live job.
// It is a scheduling outcome, not an admission reason, so the entry's status
// is left untouched.
const ReasonAlreadyScheduled = "already_scheduled"

// Scheduler gates fresh entries and enqueues future-dated comment jobs. It
// runs inline with entry creation and only ever touches the database, so the
// write path never waits on the model service.
type Scheduler struct {
	DB       *gorm.DB
	Settings *settings.Store
	Log      *zap.Logger
}

type ScheduleResult struct {
	Scheduled    bool
	DelayMinutes int
	Reason       string
}

// Schedule runs the admission gate and either marks the entry skipped (no
// job row) or creates one pending job at now+delay and marks the entry
// pending. Job insert and entry update happen in one transaction.
func (s *Scheduler) Schedule(ctx context.Context, entryID, userID uint64, content string) (ScheduleResult, error) {
	verdict := EvaluateAdmission(content)
	if !verdict.Admit {
		err := s.DB.WithContext(ctx).Model(&diary.Entry{}).
			Where("id = ? AND user_id = ?", entryID, userID).
			Updates(map[string]any{
				"ai_comment_status":   diary.CommentSkipped,
				"ai_comment_metadata": jsonMeta(map[string]any{"reason": verdict.Reason}),
				"updated_at":          time.Now(),
			}).Error
		if err != nil {
			return ScheduleResult{}, err
		}
		s.logw().Info("comment skipped at schedule time",
			zap.Uint64("entry_id", entryID),
			zap.String("reason", verdict.Reason))
		return ScheduleResult{Reason: verdict.Reason}, nil
	}

	delay := s.Settings.DelayMinutes(ctx)
	now := time.Now()
	result := ScheduleResult{Scheduled: true, DelayMinutes: delay}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One live job per entry: a pending or processing job means a
		// comment is already on its way.
		var active int64
		if err := tx.Model(&Job{}).
			Where("entry_id = ? AND status IN ?", entryID, []string{JobPending, JobProcessing}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			result = ScheduleResult{Reason: ReasonAlreadyScheduled}
			return nil
		}

		job := Job{
			EntryID:     entryID,
			UserID:      userID,
			Status:      JobPending,
			ScheduledAt: now.Add(time.Duration(delay) * time.Minute),
			Metadata:    jsonMeta(map[string]any{"delay_minutes": delay}),
		}
		if err := tx.Create(&job).Error; err != nil {
			return err
		}

		return tx.Model(&diary.Entry{}).
			Where("id = ? AND user_id = ?", entryID, userID).
			Updates(map[string]any{
				"ai_comment_status": diary.CommentPending,
				"updated_at":        now,
			}).Error
	})
	if err != nil {
		return ScheduleResult{}, err
	}

	if result.Scheduled {
		s.logw().Info("comment job scheduled",
			zap.Uint64("entry_id", entryID),
			zap.Int("delay_minutes", delay))
	}
	return result, nil
}

func (s *Scheduler) logw() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func jsonMeta(m map[string]any) datatypes.JSON {
	b, _ := json.Marshal(m)
	return datatypes.JSON(b)
}

func mergeMeta(existing datatypes.JSON, extra map[string]any) datatypes.JSON {
	out := map[string]any{}
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &out)
	}
	for k, v := range extra {
		out[k] = v
	}
	b, _ := json.Marshal(out)
	return datatypes.JSON(b)
}
