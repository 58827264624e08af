package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()

	out, err := store.Insert(ctx, TableOrders,
		Record{"customer_name": "Ali", "status": "pending"},
		Record{"id": "fixed", "customer_name": "Mona", "status": "pending"},
	)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEmpty(t, out[0].ID())
	assert.Equal(t, "fixed", out[1].ID())
	assert.Equal(t, 2, store.Count(TableOrders))

	require.NoError(t, store.Update(ctx, TableOrders, Record{"status": "confirmed"}, Filter{"id": "fixed"}))

	rows, err := store.Select(ctx, TableOrders, Filter{"status": "confirmed"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mona", rows[0]["customer_name"])

	require.NoError(t, store.Delete(ctx, TableOrders, Filter{"id": "fixed"}))
	assert.Equal(t, 1, store.Count(TableOrders))
}

func TestMemoryStore_SelectReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	_, err := store.Insert(ctx, TableProducts, Record{"id": "p1", "name": "Soap"})
	require.NoError(t, err)

	rows, err := store.Select(ctx, TableProducts, nil, nil)
	require.NoError(t, err)
	rows[0]["name"] = "changed"

	rows, err = store.Select(ctx, TableProducts, Filter{"id": "p1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Soap", rows[0]["name"])
}

func TestMemoryStore_Sort(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Insert(ctx, TableProducts,
		Record{"id": "old", "created_at": base},
		Record{"id": "new", "created_at": base.Add(time.Hour)},
		Record{"id": "mid", "created_at": base.Add(time.Minute)},
	)
	require.NoError(t, err)

	rows, err := store.Select(ctx, TableProducts, nil, &Sort{Column: "created_at", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{rows[0].ID(), rows[1].ID(), rows[2].ID()})

	rows, err = store.Select(ctx, TableProducts, nil, &Sort{Column: "created_at"})
	require.NoError(t, err)
	assert.Equal(t, "old", rows[0].ID())
}

func TestMemoryStore_FilterComparesLoosely(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	_, err := store.Insert(ctx, TableProducts, Record{"id": "p1", "is_active": true, "discount": 15})
	require.NoError(t, err)

	rows, err := store.Select(ctx, TableProducts, Filter{"is_active": true, "discount": int64(15)}, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryStore_MutationsRequireFilter(t *testing.T) {
	store := NewMemoryRecordStore()
	assert.ErrorIs(t, store.Delete(context.Background(), TableOrders, nil), ErrMissingFilter)
	assert.ErrorIs(t, store.Update(context.Background(), TableOrders, Record{}, nil), ErrMissingFilter)
}
