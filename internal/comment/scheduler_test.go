package comment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kokoro/internal/auth"
	"kokoro/internal/diary"
	"kokoro/internal/settings"
)

const admittedContent = "Today I walked along the river for an hour and thought carefully about how my anxiety " +
	"shows up at work and which small daily habits could actually help me stay calm under pressure."

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&diary.Entry{},
		&Job{},
		&settings.Setting{},
		&auth.User{},
	))
	return gdb
}

func createEntry(t *testing.T, gdb *gorm.DB, userID uint64, content string) *diary.Entry {
	t.Helper()
	e := diary.Entry{
		UserID:          userID,
		Content:         content,
		JournalDate:     time.Now(),
		Tags:            []byte(`[]`),
		AICommentStatus: diary.CommentIdle,
	}
	require.NoError(t, gdb.Create(&e).Error)
	return &e
}

func TestScheduler_AdmittedContentCreatesOneJob(t *testing.T) {
	gdb := newTestDB(t)
	store := &settings.Store{DB: gdb}
	sched := &Scheduler{DB: gdb, Settings: store}
	ctx := context.Background()

	e := createEntry(t, gdb, 1, admittedContent)

	before := time.Now()
	res, err := sched.Schedule(ctx, e.ID, 1, e.Content)
	require.NoError(t, err)
	require.True(t, res.Scheduled)
	require.Equal(t, settings.DefaultDelayMinutes, res.DelayMinutes)

	var jobs []Job
	require.NoError(t, gdb.Where("entry_id = ?", e.ID).Find(&jobs).Error)
	require.Len(t, jobs, 1)
	require.Equal(t, JobPending, jobs[0].Status)
	require.Equal(t, uint64(1), jobs[0].UserID)
	require.Equal(t, 0, jobs[0].AttemptCount)

	want := before.Add(time.Duration(settings.DefaultDelayMinutes) * time.Minute)
	require.WithinDuration(t, want, jobs[0].ScheduledAt, 5*time.Second)

	var got diary.Entry
	require.NoError(t, gdb.First(&got, e.ID).Error)
	require.Equal(t, diary.CommentPending, got.AICommentStatus)
	require.Nil(t, got.AIComment)
}

func TestScheduler_UsesConfiguredDelay(t *testing.T) {
	gdb := newTestDB(t)
	store := &settings.Store{DB: gdb}
	sched := &Scheduler{DB: gdb, Settings: store}
	ctx := context.Background()

	require.NoError(t, store.SetDelayMinutes(ctx, 60))

	e := createEntry(t, gdb, 1, admittedContent)

	before := time.Now()
	res, err := sched.Schedule(ctx, e.ID, 1, e.Content)
	require.NoError(t, err)
	require.True(t, res.Scheduled)
	require.Equal(t, 60, res.DelayMinutes)

	var job Job
	require.NoError(t, gdb.Where("entry_id = ?", e.ID).First(&job).Error)
	require.WithinDuration(t, before.Add(60*time.Minute), job.ScheduledAt, 5*time.Second)
}

func TestScheduler_RejectedContentCreatesNoJob(t *testing.T) {
	gdb := newTestDB(t)
	sched := &Scheduler{DB: gdb, Settings: &settings.Store{DB: gdb}}
	ctx := context.Background()

	e := createEntry(t, gdb, 1, "too short")

	res, err := sched.Schedule(ctx, e.ID, 1, e.Content)
	require.NoError(t, err)
	require.False(t, res.Scheduled)
	require.Equal(t, ReasonTooShort, res.Reason)

	var count int64
	require.NoError(t, gdb.Model(&Job{}).Count(&count).Error)
	require.Zero(t, count)

	var got diary.Entry
	require.NoError(t, gdb.First(&got, e.ID).Error)
	require.Equal(t, diary.CommentSkipped, got.AICommentStatus)
	require.Contains(t, string(got.AICommentMetadata), ReasonTooShort)
}

func TestScheduler_DoesNotStackJobs(t *testing.T) {
	gdb := newTestDB(t)
	sched := &Scheduler{DB: gdb, Settings: &settings.Store{DB: gdb}}
	ctx := context.Background()

	e := createEntry(t, gdb, 1, admittedContent)

	res, err := sched.Schedule(ctx, e.ID, 1, e.Content)
	require.NoError(t, err)
	require.True(t, res.Scheduled)

	res, err = sched.Schedule(ctx, e.ID, 1, e.Content)
	require.NoError(t, err)
	require.False(t, res.Scheduled)
	require.Equal(t, ReasonAlreadyScheduled, res.Reason)

	var count int64
	require.NoError(t, gdb.Model(&Job{}).Where("entry_id = ?", e.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
