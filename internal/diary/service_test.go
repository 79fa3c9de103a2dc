package diary

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&Entry{}))
	return &Service{DB: gdb}
}

func TestService_CreateEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	e, err := svc.CreateEntry(ctx, 7, CreateEntryInput{
		Title:        "  rough monday ",
		Content:      "Couldn't sleep again #insomnia, meeting ran late.",
		EmotionLabel: "tired",
		JournalDate:  &date,
	})
	require.NoError(t, err)
	require.NotZero(t, e.ID)
	require.Equal(t, uint64(7), e.UserID)
	require.Equal(t, "rough monday", e.Title)
	require.Equal(t, CommentIdle, e.AICommentStatus)
	require.JSONEq(t, `["insomnia"]`, string(e.Tags))

	var got Entry
	require.NoError(t, svc.DB.First(&got, e.ID).Error)
	require.Equal(t, e.Content, got.Content)
}

func TestService_CreateEntry_RequiresContent(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateEntry(context.Background(), 1, CreateEntryInput{Content: "   "})
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestService_UpdateEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEntry(ctx, 1, CreateEntryInput{Content: "first draft #old"})
	require.NoError(t, err)

	newContent := "second draft #new with more detail"
	got, err := svc.UpdateEntry(ctx, 1, e.ID, UpdateEntryInput{Content: &newContent})
	require.NoError(t, err)
	require.Equal(t, newContent, got.Content)
	require.JSONEq(t, `["new"]`, string(got.Tags))
}

func TestService_UpdateEntry_OwnershipAndNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEntry(ctx, 1, CreateEntryInput{Content: "mine alone"})
	require.NoError(t, err)

	title := "stolen"
	_, err = svc.UpdateEntry(ctx, 2, e.ID, UpdateEntryInput{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateEntry(ctx, 1, 9999, UpdateEntryInput{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}
