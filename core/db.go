package core

import (
	"github.com/jmoiron/sqlx"
)

// DBExecutor is anything able to run queries: a *sqlx.DB or a *sqlx.Tx.
type DBExecutor interface {
	sqlx.ExtContext
}
