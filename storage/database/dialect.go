package database

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite3"
)

// Dialect holds what differs between the supported engines when building dynamic tables.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	PrimaryKey  string // column type of an auto-incremented integer primary key
	Float       string
	tableExists string
}

var (
	Postgres = Dialect{
		Name:        EnginePostgres,
		Placeholder: sq.Dollar,
		PrimaryKey:  "SERIAL PRIMARY KEY",
		Float:       "DOUBLE PRECISION",
		tableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1",
	}

	SQLite = Dialect{
		Name:        EngineSQLite,
		Placeholder: sq.Question,
		PrimaryKey:  "INTEGER PRIMARY KEY AUTOINCREMENT",
		Float:       "REAL",
		tableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	}
)

func DialectFor(engine string) (Dialect, error) {
	switch engine {
	case EnginePostgres:
		return Postgres, nil
	case EngineSQLite:
		return SQLite, nil
	default:
		return Dialect{}, errors.Errorf("unsupported database engine %q", engine)
	}
}

// DialectOf resolves the dialect of an open database from its driver name.
func DialectOf(db *sqlx.DB) (Dialect, error) {
	return DialectFor(db.DriverName())
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// Quote always double-quotes an identifier, escaping embedded quotes.
// Sanitized names may still start with a digit or be a keyword ("3d_modelling", "null"),
// both engines accept them once quoted.
func (d Dialect) Quote(name string) string {
	return pq.QuoteIdentifier(name)
}

// TableExistsQuery returns a query counting the tables named by its single argument.
func (d Dialect) TableExistsQuery() string {
	return d.tableExists
}
