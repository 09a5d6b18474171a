package ledger

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type counterRow struct {
	ID   string
	Hits int
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAdjustIncrement(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "counter_rows" SET "hits"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := Increment(db, &counterRow{}, "row-1", "hits")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustDecrementGuardsUnderflow(t *testing.T) {
	db, mock := newMockDB(t)

	// 计数已经为 0 时条件 hits >= 1 不成立，不会更新任何行
	mock.ExpectExec(`UPDATE "counter_rows" SET "hits"=.* WHERE id = .* AND "hits" >= `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Decrement(db, &counterRow{}, "row-1", "hits")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotApplied))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustPropagatesDBError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("deadlock detected")

	mock.ExpectExec(`UPDATE "counter_rows"`).WillReturnError(boom)

	err := Adjust(db, &counterRow{}, "row-1", "hits", 3)

	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNotApplied))
}

func TestAdjustZeroDeltaIsNoop(t *testing.T) {
	db, mock := newMockDB(t)

	assert.NoError(t, Adjust(db, &counterRow{}, "row-1", "hits", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
