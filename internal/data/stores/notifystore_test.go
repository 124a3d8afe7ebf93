package stores

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/data/db"
)

func openStore(t *testing.T) *NotifyStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewNotifyStore(database)
}

func record(id, message string, at time.Time) notify.Record {
	return notify.Record{
		ID:        id,
		Title:     "Title " + id,
		Message:   message,
		Level:     notify.LevelInfo,
		CreatedAt: at,
	}
}

func TestNotifyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and list", func(t *testing.T) {
		store := openStore(t)

		now := time.Now()
		require.NoError(t, store.Save(ctx, notify.Record{
			ID:        "n-1",
			Title:     "Error",
			Message:   "something broke",
			Level:     notify.LevelDanger,
			CreatedAt: now,
		}))

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "n-1", items[0].ID)
		assert.Equal(t, "Error", items[0].Title)
		assert.Equal(t, notify.LevelDanger, items[0].Level)
		assert.Equal(t, "something broke", items[0].Message)
		assert.True(t, now.Equal(items[0].CreatedAt))
	})

	t.Run("list returns newest first", func(t *testing.T) {
		store := openStore(t)

		base := time.Now()
		for i, msg := range []string{"first", "second", "third"} {
			require.NoError(t, store.Save(ctx, record(fmt.Sprint(i), msg, base.Add(time.Duration(i)*time.Second))))
		}

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "third", items[0].Message)
		assert.Equal(t, "second", items[1].Message)
		assert.Equal(t, "first", items[2].Message)
	})

	t.Run("list honors limit", func(t *testing.T) {
		store := openStore(t)

		base := time.Now()
		for i := range 5 {
			require.NoError(t, store.Save(ctx, record(fmt.Sprint(i), fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Millisecond))))
		}

		items, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "m4", items[0].Message)
		assert.Equal(t, "m3", items[1].Message)
	})

	t.Run("duplicate id keeps first", func(t *testing.T) {
		store := openStore(t)

		now := time.Now()
		require.NoError(t, store.Save(ctx, record("same", "original", now)))
		require.NoError(t, store.Save(ctx, record("same", "replacement", now)))

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "original", items[0].Message)
	})

	t.Run("clear deletes all", func(t *testing.T) {
		store := openStore(t)

		require.NoError(t, store.Save(ctx, record("w", "warn", time.Now())))
		require.NoError(t, store.Clear(ctx))

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("count", func(t *testing.T) {
		store := openStore(t)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		for i := range 3 {
			require.NoError(t, store.Save(ctx, record(fmt.Sprint(i), "msg", time.Now().Add(time.Duration(i)*time.Millisecond))))
		}

		count, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("empty list returns empty slice", func(t *testing.T) {
		store := openStore(t)

		items, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	})
}

func TestNotifyStore_backs_queue_history(t *testing.T) {
	store := openStore(t)
	q := notify.NewQueue(notify.WithStore(store))
	t.Cleanup(q.Close)

	q.Enqueue("Success", "Product added to cart!", notify.LevelInfo)
	q.Enqueue("Order", "Shipped", notify.LevelSuccess)

	history, err := q.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Shipped", history[0].Message)
}
