package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	repo "storefront/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockInventoryRepository(t *testing.T) (*InventoryGormRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewInventoryGormRepository(gormDB), mock, mockDB
}

const decreaseSQL = `UPDATE "size_variants" SET "stock_quantity"=stock_quantity - \$1.* WHERE id = \$\d+ AND stock_quantity >= \$\d+`

func TestInventoryGormRepository_DecreaseStockIfEnough(t *testing.T) {
	t.Run("enough stock", func(t *testing.T) {
		r, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(decreaseSQL).
			WithArgs(int64(2), sqlmock.AnyArg(), int64(5), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := r.DecreaseStockIfEnough(context.Background(), 5, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not enough stock", func(t *testing.T) {
		r, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		// 条件に合わない場合は0行更新
		mock.ExpectExec(decreaseSQL).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := r.DecreaseStockIfEnough(context.Background(), 5, 99)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		r, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(decreaseSQL).WillReturnError(errors.New("connection reset"))

		ok, err := r.DecreaseStockIfEnough(context.Background(), 5, 1)
		require.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventoryGormRepository_IncreaseStock(t *testing.T) {
	r, mock, mockDB := newMockInventoryRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "size_variants" SET "stock_quantity"=stock_quantity \+ \$1.* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.IncreaseStock(context.Background(), 404, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryGormRepository_SetStock_NotFound(t *testing.T) {
	r, mock, mockDB := newMockInventoryRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "size_variants" SET "stock_quantity"=\$1.* WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.SetStock(context.Background(), 404, 10)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
