package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/account"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
	testutil "github.com/trezcool/gradebook/tests"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t, testutil.NewConfig())
	repo, err := sqlxrepos.NewAccountRepository(db)
	require.NoError(t, err)

	created := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	acc := testutil.CreateAccount(t, repo, "teacher1", "s3cretPass", account.RoleTeacher, created)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetAccountByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc.Username, got.Username)
		assert.Equal(t, account.RoleTeacher, got.Role)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.NoError(t, got.CheckPassword("s3cretPass"))
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := repo.GetAccountByUsername(ctx, "teacher1")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)

		_, err = repo.GetAccountByUsername(ctx, "nobody")
		assert.Equal(t, account.ErrNotFound, err)
	})

	t.Run("username uniqueness", func(t *testing.T) {
		ok, err := repo.UsernameExists(ctx, "teacher1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.UsernameExists(ctx, "teacher2")
		require.NoError(t, err)
		assert.False(t, ok)

		dup := acc
		dup.ID = "other-id"
		_, err = repo.CreateAccount(ctx, dup)
		assert.Equal(t, account.ErrUsernameExists, err)
	})
}
