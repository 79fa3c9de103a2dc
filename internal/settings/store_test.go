package settings

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

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&Setting{}))
	return &Store{DB: gdb}
}

func TestStore_DefaultWhenUnset(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, DefaultDelayMinutes, s.DelayMinutes(context.Background()))
}

func TestStore_SetAndGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, d := range AllowedDelays {
		require.NoError(t, s.SetDelayMinutes(ctx, d))
		require.Equal(t, d, s.DelayMinutes(ctx))
	}
}

func TestStore_RejectsNonMemberValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, d := range []int{0, -1, 7, 15, 100, 999999} {
		require.Error(t, s.SetDelayMinutes(ctx, d))
	}
	require.Equal(t, DefaultDelayMinutes, s.DelayMinutes(ctx))
}

func TestStore_ClampsGarbagePersistedValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Values written behind the accessor's back are never trusted.
	for _, v := range []string{"9999", "abc", "", "-5"} {
		require.NoError(t, s.DB.Where("key = ?", delayKey).Delete(&Setting{}).Error)
		require.NoError(t, s.DB.Create(&Setting{Key: delayKey, Value: v, UpdatedAt: time.Now()}).Error)
		require.Equal(t, DefaultDelayMinutes, s.DelayMinutes(ctx))
	}
}
