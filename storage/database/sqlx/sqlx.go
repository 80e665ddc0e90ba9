// Package sqlxrepos implements the core repositories on top of sqlx and squirrel.
// Semester and attendance tables are created at runtime, so their statements are built dynamically;
// every identifier reaching a statement is sanitized upstream and quoted here.
package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/storage/database"
)

// insertBatchSize caps the rows of a single INSERT statement (sqlite allows 999 bind variables by default).
const insertBatchSize = 50

const pqUniqueViolation = "23505"

type store struct {
	db      *sqlx.DB
	dialect database.Dialect
	locks   *core.KeyedRWMutex
}

func newStore(db *sqlx.DB, locks *core.KeyedRWMutex) (store, error) {
	dialect, err := database.DialectOf(db)
	if err != nil {
		return store{}, err
	}
	if locks == nil {
		locks = core.NewKeyedRWMutex()
	}
	return store{db: db, dialect: dialect, locks: locks}, nil
}

func (s store) builder() sq.StatementBuilderType {
	return s.dialect.Builder()
}

func (s store) quote(name string) string {
	return s.dialect.Quote(name)
}

func (s store) quoteAll(names []string) []string {
	return strmangle.StringMap(s.dialect.Quote, names)
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewDataError(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewDataError(err, "committing transaction")
	}
	return nil
}

func (s store) tableExists(ctx context.Context, ex core.DBExecutor, table string) (bool, error) {
	var n int
	if err := ex.QueryRowxContext(ctx, s.dialect.TableExistsQuery(), table).Scan(&n); err != nil {
		return false, core.NewDataError(err, "checking table %s", table)
	}
	return n > 0, nil
}

func execContext(ctx context.Context, ex core.DBExecutor, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return core.NewDataError(err, "building query")
	}
	_, err = ex.ExecContext(ctx, query, args...)
	return err
}

func selectContext(ctx context.Context, ex core.DBExecutor, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return core.NewDataError(err, "building query")
	}
	return sqlx.SelectContext(ctx, ex, dest, query, args...)
}

func queryRowContext(ctx context.Context, ex core.DBExecutor, b sq.Sqlizer) (*sqlx.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, core.NewDataError(err, "building query")
	}
	return ex.QueryRowxContext(ctx, query, args...), nil
}

// isUniqueViolation tells whether err is a unique constraint violation of either engine.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == pqUniqueViolation
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
