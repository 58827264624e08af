package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/profile"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo := NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { repo.Close() })
	return repo, mr
}

func TestRedis_SessionRoundTrip(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	snap := &SessionSnapshot{
		ID: "s-1",
		Items: []cart.LineItem{
			{ID: "p1", Name: "Soap", UnitPrice: decimal.RequireFromString("21.25"), Quantity: 2},
		},
		Profile:   &profile.Profile{Name: "Ali", Phone: "0123456789"},
		UpdatedAt: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SaveSession(ctx, snap, time.Hour))
	assert.True(t, mr.Exists("session:s-1"))
	assert.Equal(t, time.Hour, mr.TTL("session:s-1"))

	got, err := repo.LoadSession(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("21.25")))
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "Ali", got.Profile.Name)
}

func TestRedis_LoadMissingSession(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.LoadSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedis_SessionExpires(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, &SessionSnapshot{ID: "s-2"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.LoadSession(ctx, "s-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedis_DeleteSession(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, &SessionSnapshot{ID: "s-3"}, time.Minute))
	require.NoError(t, repo.DeleteSession(ctx, "s-3"))
	assert.False(t, mr.Exists("session:s-3"))
}

func TestRedis_GetJSONMissReportsCacheMiss(t *testing.T) {
	repo, _ := setupTestRedis(t)

	var dest map[string]string
	err := repo.GetJSON(context.Background(), "products:active", &dest)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedis_GetJSONCorrupt(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("broken", "{not json"))

	var dest map[string]string
	err := repo.GetJSON(context.Background(), "broken", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
