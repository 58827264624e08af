package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormRecordStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewGormRecordStore(gdb), mock
}

func TestGormInsert_AssignsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := store.Insert(context.Background(), TableOrders, Record{
		"customer_name": "Ali",
		"status":        "pending",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].ID())
	assert.Equal(t, "Ali", out[0]["customer_name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInsert_KeepsGivenIDAndBatches(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `order_items`")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	out, err := store.Insert(context.Background(), TableOrderItems,
		Record{"id": "i-1", "order_id": "o-1"},
		Record{"id": "i-2", "order_id": "o-1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "i-1", out[0].ID())
	assert.Equal(t, "i-2", out[1].ID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInsert_DoesNotMutateInput(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 1))

	in := Record{"customer_name": "Ali"}
	_, err := store.Insert(context.Background(), TableOrders, in)
	require.NoError(t, err)
	_, hasID := in["id"]
	assert.False(t, hasID)
}

func TestGormInsert_WrapsDriverError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection reset"))

	_, err := store.Insert(context.Background(), TableOrders, Record{"customer_name": "Ali"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGormSelect_FilterAndSort(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "price"}).
		AddRow("p1", "Soap", "25.00").
		AddRow("p2", "Bleach", "35.00")
	mock.ExpectQuery("SELECT \\* FROM `products` WHERE `is_active` = \\? ORDER BY created_at DESC").
		WithArgs(true).
		WillReturnRows(rows)

	out, err := store.Select(context.Background(), TableProducts, Filter{"is_active": true}, &Sort{Column: "created_at", Desc: true})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "p1", cast.ToString(out[0]["id"]))
	assert.Equal(t, "Bleach", cast.ToString(out[1]["name"]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE `orders` SET `status`=\\? WHERE `id` = \\?").
		WithArgs("confirmed", "o-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), TableOrders, Record{"status": "confirmed"}, Filter{"id": "o-1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM `order_items` WHERE `order_id` = \\?").
		WithArgs("o-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := store.Delete(context.Background(), TableOrderItems, Filter{"order_id": "o-1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMutations_RequireFilter(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Delete(context.Background(), TableOrders, nil)
	assert.ErrorIs(t, err, ErrMissingFilter)

	err = store.Update(context.Background(), TableOrders, Record{"status": "x"}, Filter{})
	assert.ErrorIs(t, err, ErrMissingFilter)
}
