package repository

import (
	"context"
	"testing"

	"tiered_social/internal/domain/interaction/model"
	"tiered_social/pkg/apperr"
	"tiered_social/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func TestReactionRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepository(db, nil)
	ctx := context.Background()

	// 冲突时 DO NOTHING 不返回行
	mock.ExpectQuery(`INSERT INTO "reactions" .* ON CONFLICT\s+DO NOTHING\s+RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
	mock.ExpectQuery(`INSERT INTO "reactions" .* ON CONFLICT\s+DO NOTHING\s+RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "comment_reactions" .* ON CONFLICT\s+DO NOTHING\s+RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r2"))

	inserted, err := repo.Insert(ctx, model.SubjectPost, "u1", "p1", model.ReactionLike)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, model.SubjectPost, "u1", "p1", model.ReactionLove)
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = repo.Insert(ctx, model.SubjectComment, "u1", "c1", model.ReactionLike)
	require.NoError(t, err)
	assert.True(t, inserted)

	_, err = repo.Insert(ctx, model.Subject("story"), "u1", "s1", model.ReactionLike)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepositoryLockExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReactionRepository(db, nil)
	tx := database.NewTxManager(db)

	t.Run("locks the row inside a transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .*"reaction_type" FROM "reactions" WHERE user_id = \$1 AND post_id = \$2 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "reaction_type"}).AddRow("r1", "love"))
		mock.ExpectCommit()

		var got *model.ExistingReaction
		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			var err error
			got, err = repo.LockExisting(ctx, model.SubjectPost, "u1", "p1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)
		assert.Equal(t, model.ReactionLove, got.ReactionType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("vanished row is not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM "comment_reactions" WHERE user_id = \$1 AND comment_id = \$2 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "reaction_type"}))
		mock.ExpectRollback()

		err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			_, err := repo.LockExisting(ctx, model.SubjectComment, "u1", "c1")
			return err
		})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommentRepositoryAddReply(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE "comments" SET "replies_count"=replies_count \+ \$1 WHERE id = \$2 AND is_active = \$3 AND parent_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "comments" SET "replies_count"=`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AddReply(ctx, "c0"))

	// 父评论已删除或本身是回复
	err := repo.AddReply(ctx, "c1")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
