package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/account"
)

const accountsTable = "accounts"

var accountColumns = []string{"id", "username", "password_hash", "role", "created_at"}

// accountRow stores the bcrypt digest as text so both engines keep it readable.
type accountRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r accountRow) account() account.Account {
	return account.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: []byte(r.PasswordHash),
		Role:         account.Role(r.Role),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type accountRepository struct {
	store
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) (*accountRepository, error) {
	s, err := newStore(db, nil)
	if err != nil {
		return nil, err
	}
	return &accountRepository{store: s}, nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc.CreatedAt = acc.CreatedAt.UTC().Truncate(time.Microsecond)
	ins := repo.builder().
		Insert(accountsTable).
		Columns(accountColumns...).
		Values(acc.ID, acc.Username, string(acc.PasswordHash), string(acc.Role), acc.CreatedAt)
	if err := execContext(ctx, repo.db, ins); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrUsernameExists
		}
		return account.Account{}, core.NewDataError(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) getBy(ctx context.Context, where sq.Sqlizer) (account.Account, error) {
	q := repo.builder().Select(accountColumns...).From(accountsTable).Where(where).Limit(1)
	query, args, err := q.ToSql()
	if err != nil {
		return account.Account{}, core.NewDataError(err, "building query")
	}

	var row accountRow
	if err = sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, core.NewDataError(err, "selecting account")
	}
	return row.account(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.getBy(ctx, sq.Eq{"id": id})
}

func (repo *accountRepository) GetAccountByUsername(ctx context.Context, username string) (account.Account, error) {
	return repo.getBy(ctx, sq.Eq{"username": username})
}

func (repo *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	row, err := queryRowContext(ctx, repo.db, repo.builder().Select("COUNT(*)").From(accountsTable).Where(sq.Eq{"username": username}))
	if err != nil {
		return false, err
	}
	var n int
	if err = row.Scan(&n); err != nil {
		return false, core.NewDataError(err, "counting accounts")
	}
	return n > 0, nil
}
