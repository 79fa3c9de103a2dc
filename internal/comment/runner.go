package comment

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kokoro/internal/auth"
	"kokoro/internal/diary"
	"kokoro/internal/knowledge"
)

const (
	DefaultBatchSize   = 3
	MaxBatchSize       = 10
	DefaultMaxAttempts = 3

	defaultStaleAfter     = 10 * time.Minute
	defaultKnowledgeLimit = 5
)

// SnippetSearcher is the knowledge-retrieval collaborator: ranked snippets
// for a free-text query.
type SnippetSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Match, error)
}

// ConversationRunner is the model-service collaborator: one prompt in, one
// buffered reply out, or an error.
type ConversationRunner interface {
	RunConversation(ctx context.Context, prompt string) (string, error)
}

// Runner drains due comment jobs. It is safe to invoke concurrently from
// overlapping triggers or multiple instances: exclusivity rests on the
// conditional claim update, not on any in-process lock.
type Runner struct {
	ID           string // instance id recorded on claimed jobs
	DB           *gorm.DB
	Retriever    SnippetSearcher
	Conversation ConversationRunner
	Log          *zap.Logger

	MaxAttempts    int           // 0 means DefaultMaxAttempts
	StaleAfter     time.Duration // 0 means 10m; reclaim window for crashed workers
	KnowledgeLimit int           // 0 means 5
}

// Summary counts terminal outcomes of one invocation. Jobs lost to a claim
// race or requeued for retry are not counted.
type Summary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeRetried
)

// RunDueJobs claims and executes up to limit due jobs, oldest first. One
// job's failure never aborts the rest of the batch.
func (r *Runner) RunDueJobs(ctx context.Context, limit int) (Summary, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	if limit > MaxBatchSize {
		limit = MaxBatchSize
	}

	var sum Summary
	now := time.Now()

	r.reclaimStale(ctx, now)

	var jobs []Job
	err := r.DB.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", JobPending, now).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return sum, err
	}

	for i := range jobs {
		job := &jobs[i]

		claimed, err := r.claim(ctx, job)
		if err != nil {
			r.logw().Error("claim failed", zap.Uint64("job_id", job.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// Another worker got here first. Not an error.
			continue
		}

		switch r.runClaimed(ctx, job) {
		case outcomeProcessed:
			sum.Processed++
		case outcomeSkipped:
			sum.Skipped++
		case outcomeFailed:
			sum.Failed++
		}
	}

	return sum, nil
}

// reclaimStale requeues processing jobs whose worker likely died. Without
// this, a crash mid-job leaves the job processing forever.
func (r *Runner) reclaimStale(ctx context.Context, now time.Time) {
	cutoff := now.Add(-r.staleAfter())
	res := r.DB.WithContext(ctx).Model(&Job{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", JobProcessing, cutoff).
		Updates(map[string]any{
			"status":     JobPending,
			"claimed_by": nil,
			"updated_at": now,
		})
	if res.Error != nil {
		r.logw().Warn("stale reclaim failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		r.logw().Warn("reclaimed stale processing jobs", zap.Int64("count", res.RowsAffected))
	}
}

// claim attempts the atomic pending->processing transition. Zero affected
// rows means another worker already owns the job.
func (r *Runner) claim(ctx context.Context, job *Job) (bool, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, JobPending).
		Updates(map[string]any{
			"status":        JobProcessing,
			"started_at":    now,
			"attempt_count": gorm.Expr("attempt_count + ?", 1),
			"claimed_by":    r.ID,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	id := r.ID
	job.Status = JobProcessing
	job.StartedAt = &now
	job.AttemptCount++
	job.ClaimedBy = &id
	return true, nil
}

func (r *Runner) runClaimed(ctx context.Context, job *Job) outcome {
	log := r.logw().With(
		zap.Uint64("job_id", job.ID),
		zap.Uint64("entry_id", job.EntryID),
		zap.Int("attempt", job.AttemptCount))

	var entry diary.Entry
	err := r.DB.WithContext(ctx).Where("id = ?", job.EntryID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.failOrRetry(ctx, job, "entry not found", log)
		}
		return r.failOrRetry(ctx, job, "load entry: "+err.Error(), log)
	}

	// Re-gate against the current content: the entry may have been edited
	// since scheduling, and the gate stays authoritative at the point of
	// spend.
	if verdict := EvaluateAdmission(entry.Content); !verdict.Admit {
		if err := r.markSkipped(ctx, job, verdict.Reason); err != nil {
			log.Error("mark skipped failed", zap.Error(err))
		}
		log.Info("job skipped on re-validation", zap.String("reason", verdict.Reason))
		return outcomeSkipped
	}

	matches, err := r.Retriever.Search(ctx, entry.Content, r.knowledgeLimit())
	if err != nil {
		return r.failOrRetry(ctx, job, "knowledge search: "+err.Error(), log)
	}

	prompt := BuildPrompt(PromptInput{
		AuthorName:   r.authorName(ctx, job.UserID),
		Title:        entry.Title,
		JournalDate:  entry.JournalDate,
		EmotionLabel: entry.EmotionLabel,
		MoodLabel:    entry.MoodLabel,
		EventSummary: entry.EventSummary,
		Realization:  entry.Realization,
		Body:         entry.Content,
		Knowledge:    matches,
	})

	reply, err := r.Conversation.RunConversation(ctx, prompt)
	if err != nil {
		return r.failOrRetry(ctx, job, "conversation: "+err.Error(), log)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		// An empty comment is never persisted.
		return r.failOrRetry(ctx, job, "empty reply", log)
	}

	if err := r.markCompleted(ctx, job, reply, len(matches)); err != nil {
		return r.failOrRetry(ctx, job, "persist result: "+err.Error(), log)
	}
	log.Info("comment generated",
		zap.Int("reply_len", len(reply)),
		zap.Int("knowledge_matches", len(matches)))
	return outcomeProcessed
}

// markCompleted writes the comment onto the entry and closes the job, in one
// transaction.
func (r *Runner) markCompleted(ctx context.Context, job *Job, reply string, matchCount int) error {
	now := time.Now()
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&diary.Entry{}).
			Where("id = ?", job.EntryID).
			Updates(map[string]any{
				"ai_comment":              reply,
				"ai_comment_status":       diary.CommentCompleted,
				"ai_comment_generated_at": now,
				"ai_comment_metadata": jsonMeta(map[string]any{
					"job_id":            job.ID,
					"knowledge_matches": matchCount,
				}),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":       JobCompleted,
				"completed_at": now,
				"metadata": mergeMeta(job.Metadata, map[string]any{
					"reply_length":      len(reply),
					"knowledge_matches": matchCount,
				}),
				"updated_at": now,
			}).Error
	})
}

// markSkipped terminates the job after a failed run-time re-validation. Not
// retried: content that no longer qualifies will not start qualifying on its
// own.
func (r *Runner) markSkipped(ctx context.Context, job *Job, reason string) error {
	now := time.Now()
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&diary.Entry{}).
			Where("id = ?", job.EntryID).
			Updates(map[string]any{
				"ai_comment_status": diary.CommentSkipped,
				"ai_comment_metadata": jsonMeta(map[string]any{
					"reason": reason,
					"job_id": job.ID,
				}),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":       JobSkipped,
				"completed_at": now,
				"metadata":     mergeMeta(job.Metadata, map[string]any{"skip_reason": reason}),
				"updated_at":   now,
			}).Error
	})
}

// failOrRetry parks the job as failed once attempts are exhausted, otherwise
// requeues it as pending. A requeued job is due again at the next trigger;
// the entry stays pending so nothing changes for the user yet.
func (r *Runner) failOrRetry(ctx context.Context, job *Job, msg string, log *zap.Logger) outcome {
	now := time.Now()

	if job.AttemptCount >= r.maxAttempts() {
		err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&Job{}).
				Where("id = ?", job.ID).
				Updates(map[string]any{
					"status":       JobFailed,
					"completed_at": now,
					"last_error":   msg,
					"updated_at":   now,
				}).Error; err != nil {
				return err
			}
			return tx.Model(&diary.Entry{}).
				Where("id = ?", job.EntryID).
				Updates(map[string]any{
					"ai_comment_status": diary.CommentFailed,
					"ai_comment_metadata": jsonMeta(map[string]any{
						"error":  msg,
						"job_id": job.ID,
					}),
					"updated_at": now,
				}).Error
		})
		if err != nil {
			log.Error("mark failed errored", zap.Error(err))
		}
		log.Error("job failed, attempts exhausted", zap.String("last_error", msg))
		return outcomeFailed
	}

	err := r.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     JobPending,
			"claimed_by": nil,
			"last_error": msg,
			"updated_at": now,
		}).Error
	if err != nil {
		log.Error("requeue errored", zap.Error(err))
	}
	log.Warn("job requeued for retry", zap.String("last_error", msg))
	return outcomeRetried
}

func (r *Runner) authorName(ctx context.Context, userID uint64) string {
	var u auth.User
	if err := r.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return ""
	}
	return strings.TrimSpace(u.DisplayName)
}

func (r *Runner) maxAttempts() int {
	if r.MaxAttempts > 0 {
		return r.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (r *Runner) staleAfter() time.Duration {
	if r.StaleAfter > 0 {
		return r.StaleAfter
	}
	return defaultStaleAfter
}

func (r *Runner) knowledgeLimit() int {
	if r.KnowledgeLimit > 0 {
		return r.KnowledgeLimit
	}
	return defaultKnowledgeLimit
}

func (r *Runner) logw() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}
