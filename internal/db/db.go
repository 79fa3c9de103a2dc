package db

import (
	"fmt"

	"kokoro/internal/auth"
	"kokoro/internal/comment"
	"kokoro/internal/diary"
	"kokoro/internal/knowledge"
	"kokoro/internal/settings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&diary.Entry{},
		&comment.Job{},
		&settings.Setting{},
		&knowledge.Snippet{},
		&auth.User{},
	); err != nil {
		return err
	}

	// Full-text search over counselor knowledge
	if err := gdb.Exec(`create index if not exists idx_knowledge_fts on knowledge_snippets using gin (to_tsvector('simple', content));`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_entries_user_date on diary_entries(user_id, journal_date desc);`,
		`create index if not exists idx_entries_user_created on diary_entries(user_id, created_at desc);`,
		`create index if not exists idx_jobs_due on comment_jobs(status, scheduled_at);`,
		`create index if not exists idx_jobs_claim on comment_jobs(status, started_at);`,
		`create index if not exists idx_jobs_entry_live on comment_jobs(entry_id) where status in ('pending', 'processing');`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
