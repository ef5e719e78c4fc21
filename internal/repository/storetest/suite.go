// Package storetest is the behaviour every alert store adapter must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	Create(ctx context.Context, alert models.Alert) (models.Alert, error)
	List(ctx context.Context) ([]models.Alert, error)
	Delete(ctx context.Context, id string) error
	UpdateLastChecked(ctx context.Context, id string, at time.Time) error
	UpdateNotified(ctx context.Context, id string, notified bool) error
}

var base = time.Date(2024, time.August, 1, 10, 0, 0, 0, time.UTC)

func sample(id string) models.Alert {
	return models.Alert{
		ID:          id,
		Email:       "a@x.com",
		TrainNumber: "470",
		From:        "8101003",
		To:          "8100001",
		Date:        "15082024",
		CreatedAt:   base,
		LastChecked: base,
	}
}

// Run exercises the store contract against a fresh store built by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then list round-trips every field", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, sample("a1"))
		require.NoError(t, err)
		assert.Equal(t, "a1", created.ID)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, "470", got.TrainNumber)
		assert.Equal(t, "8101003", got.From)
		assert.Equal(t, "8100001", got.To)
		assert.Equal(t, "15082024", got.Date)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, got.CreatedAt.Equal(got.LastChecked))
		assert.False(t, got.Notified)
	})

	t.Run("list keeps creation order", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"c", "a", "b"} {
			_, err := s.Create(ctx, sample(id))
			require.NoError(t, err)
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		s := newStore(t)
		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete removes the alert", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, sample("d1"))
		require.NoError(t, err)
		_, err = s.Create(ctx, sample("d2"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "d1"))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "d2", list[0].ID)
	})

	t.Run("delete unknown id is not found and changes nothing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, sample("k1"))
		require.NoError(t, err)

		err = s.Delete(ctx, "unknown-id")
		require.ErrorIs(t, err, models.ErrAlertNotFound)

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("update last checked moves forward only", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, sample("u1"))
		require.NoError(t, err)

		later := base.Add(90 * time.Minute)
		require.NoError(t, s.UpdateLastChecked(ctx, "u1", later))
		require.NoError(t, s.UpdateLastChecked(ctx, "u1", base.Add(30*time.Minute)))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, later.Equal(list[0].LastChecked), "got %s", list[0].LastChecked)
		assert.True(t, base.Equal(list[0].CreatedAt))
	})

	t.Run("update last checked on unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateLastChecked(ctx, "missing", base)
		require.ErrorIs(t, err, models.ErrAlertNotFound)
	})

	t.Run("update notified toggles the marker", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, sample("n1"))
		require.NoError(t, err)

		require.NoError(t, s.UpdateNotified(ctx, "n1", true))
		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.True(t, list[0].Notified)

		require.NoError(t, s.UpdateNotified(ctx, "n1", false))
		list, err = s.List(ctx)
		require.NoError(t, err)
		assert.False(t, list[0].Notified)

		require.ErrorIs(t, s.UpdateNotified(ctx, "missing", true), models.ErrAlertNotFound)
	})
}
