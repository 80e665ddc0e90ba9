package sqlxrepos

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/attendance"
)

const sessionsTable = "attendance_sessions"

type attendanceRepository struct {
	store
}

var _ attendance.Repository = (*attendanceRepository)(nil)

// NewAttendanceRepository returns an attendance.Repository backed by db.
func NewAttendanceRepository(db *sqlx.DB, locks *core.KeyedRWMutex) (*attendanceRepository, error) {
	s, err := newStore(db, locks)
	if err != nil {
		return nil, err
	}
	return &attendanceRepository{store: s}, nil
}

func attendanceLockKey(sem string) string { return "attendance:" + sem }

func (repo *attendanceRepository) CreateSchema(ctx context.Context, sem string) (attendance.Table, error) {
	defer repo.locks.Lock(attendanceLockKey(sem))()

	table := attendance.NewTable(sem)
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		return repo.createSchema(ctx, tx, table)
	})
	if err != nil {
		return attendance.Table{}, err
	}
	return table, nil
}

func (repo *attendanceRepository) createSchema(ctx context.Context, tx *sqlx.Tx, table attendance.Table) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s %s, %s VARCHAR(64) NOT NULL, %s VARCHAR(255) NOT NULL)",
		repo.quote(table.Name),
		repo.quote(attendance.ColID), repo.dialect.PrimaryKey,
		repo.quote(attendance.ColUSN),
		repo.quote(attendance.ColStudentName),
	)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return core.NewSchemaError(err, "creating table %s", table.Name)
	}
	return nil
}

func (repo *attendanceRepository) AddSessions(ctx context.Context, table attendance.Table, sessions []attendance.Session) error {
	defer repo.locks.Lock(attendanceLockKey(table.Semester))()

	return repo.withTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := repo.tableExists(ctx, tx, table.Name)
		if err != nil {
			return err
		}
		if !ok {
			return core.NewNotFoundError("attendance of semester %q not found", table.Semester)
		}
		return repo.addSessions(ctx, tx, table, sessions)
	})
}

// columns lists the columns of table as the database reports them.
func (repo *attendanceRepository) columns(ctx context.Context, ex core.DBExecutor, table string) (map[string]bool, error) {
	rows, err := ex.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", repo.quote(table)))
	if err != nil {
		return nil, core.NewDataError(err, "inspecting %s", table)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, core.NewDataError(err, "inspecting %s", table)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}

func (repo *attendanceRepository) addSessions(ctx context.Context, tx *sqlx.Tx, table attendance.Table, sessions []attendance.Session) error {
	cols, err := repo.columns(ctx, tx, table.Name)
	if err != nil {
		return err
	}
	known, err := repo.sessions(ctx, tx, table.Semester)
	if err != nil {
		return err
	}
	recorded := make(map[string]bool, len(known))
	for _, s := range known {
		recorded[s.Column] = true
	}

	ordinal := len(known)
	for _, s := range sessions {
		if !cols[s.Column] {
			ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR(1) NULL", repo.quote(table.Name), repo.quote(s.Column))
			if _, err = tx.ExecContext(ctx, ddl); err != nil {
				return core.NewSchemaError(err, "adding session %q to %s", s.Label, table.Name)
			}
			cols[s.Column] = true
		}
		if recorded[s.Column] {
			continue
		}
		ins := repo.builder().
			Insert(sessionsTable).
			Columns("semester", "ordinal", "label", "column_name").
			Values(table.Semester, ordinal, s.Label, s.Column)
		if err = execContext(ctx, tx, ins); err != nil {
			return core.NewSchemaError(err, "saving session %q of %s", s.Label, table.Name)
		}
		recorded[s.Column] = true
		ordinal++
	}
	return nil
}

// sessions lists the recorded sessions of sem in discovery order.
func (repo *attendanceRepository) sessions(ctx context.Context, ex core.DBExecutor, sem string) ([]attendance.Session, error) {
	var rows []struct {
		Label  string `db:"label"`
		Column string `db:"column_name"`
	}
	q := repo.builder().
		Select("label", "column_name").
		From(sessionsTable).
		Where(sq.Eq{"semester": sem}).
		OrderBy("ordinal")
	if err := selectContext(ctx, ex, &rows, q); err != nil {
		return nil, core.NewDataError(err, "loading sessions of semester %s", sem)
	}

	sessions := make([]attendance.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, attendance.Session{Label: r.Label, Column: r.Column})
	}
	return sessions, nil
}

// Ingest merges records into the semester's attendance by USN: existing students are updated
// for the given sessions, new ones are appended. Sessions absent from the upload are left untouched.
func (repo *attendanceRepository) Ingest(ctx context.Context, sem string, sessions []attendance.Session, records []attendance.Record) (int, error) {
	defer repo.locks.Lock(attendanceLockKey(sem))()

	table := attendance.NewTable(sem)
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := repo.createSchema(ctx, tx, table); err != nil {
			return err
		}
		if err := repo.addSessions(ctx, tx, table, sessions); err != nil {
			return err
		}
		for _, rec := range records {
			if err := repo.upsert(ctx, tx, table, sessions, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (repo *attendanceRepository) upsert(ctx context.Context, tx *sqlx.Tx, table attendance.Table, sessions []attendance.Session, rec attendance.Record) error {
	values := map[string]interface{}{
		repo.quote(attendance.ColUSN):         rec.USN,
		repo.quote(attendance.ColStudentName): rec.StudentName,
	}
	for _, s := range sessions {
		m := rec.Marks[s.Label]
		values[repo.quote(s.Column)] = null.NewString(string(m), m != attendance.Unmarked)
	}

	upd := repo.builder().
		Update(repo.quote(table.Name)).
		SetMap(values).
		Where(sq.Expr("UPPER("+repo.quote(attendance.ColUSN)+") = UPPER(?)", rec.USN))
	query, args, err := upd.ToSql()
	if err != nil {
		return core.NewDataError(err, "building query")
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return core.NewDataError(err, "updating %s of %s", rec.USN, table.Name)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.NewDataError(err, "updating %s of %s", rec.USN, table.Name)
	} else if n > 0 {
		return nil
	}

	ins := repo.builder().Insert(repo.quote(table.Name)).SetMap(values)
	if err = execContext(ctx, tx, ins); err != nil {
		return core.NewDataError(err, "inserting %s into %s", rec.USN, table.Name)
	}
	return nil
}

func (repo *attendanceRepository) Register(ctx context.Context, sem, usn string) (attendance.Register, error) {
	defer repo.locks.RLock(attendanceLockKey(sem))()

	table := attendance.TableName(sem)
	ok, err := repo.tableExists(ctx, repo.db, table)
	if err != nil {
		return attendance.Register{}, err
	}
	if !ok {
		return attendance.Register{}, core.NewNotFoundError("attendance of semester %q not found", sem)
	}
	sessions, err := repo.sessions(ctx, repo.db, sem)
	if err != nil {
		return attendance.Register{}, err
	}

	cols := []string{repo.quote(attendance.ColUSN), repo.quote(attendance.ColStudentName)}
	for _, s := range sessions {
		cols = append(cols, repo.quote(s.Column))
	}
	q := repo.builder().Select(cols...).From(repo.quote(table)).OrderBy(repo.quote(attendance.ColID))
	if usn != "" {
		q = q.Where(sq.Expr("UPPER("+repo.quote(attendance.ColUSN)+") = UPPER(?)", usn))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return attendance.Register{}, core.NewDataError(err, "building query")
	}

	rows, err := repo.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return attendance.Register{}, core.NewDataError(err, "querying %s", table)
	}
	defer func() { _ = rows.Close() }()

	reg := attendance.Register{Semester: sem, Sessions: sessions, Records: make([]attendance.Record, 0)}
	for rows.Next() {
		var rec attendance.Record
		cells := make([]null.String, len(sessions))
		dest := []interface{}{&rec.USN, &rec.StudentName}
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err = rows.Scan(dest...); err != nil {
			return attendance.Register{}, core.NewDataError(err, "scanning %s", table)
		}

		rec.Marks = make(map[string]attendance.Mark, len(sessions))
		for i, s := range sessions {
			m, err := attendance.ParseMark(cells[i].String)
			if err != nil {
				return attendance.Register{}, core.NewDataError(err, "reading %s of %s", rec.USN, table)
			}
			rec.Marks[s.Label] = m
		}
		reg.Records = append(reg.Records, rec)
	}
	if err = rows.Err(); err != nil {
		return attendance.Register{}, core.NewDataError(err, "reading %s", table)
	}

	if usn != "" && len(reg.Records) == 0 {
		return attendance.Register{}, core.NewNotFoundError("student %q has no attendance in semester %q", usn, sem)
	}
	return reg, nil
}

func (repo *attendanceRepository) ListSemesters(ctx context.Context) ([]string, error) {
	sems := make([]string, 0)
	q := repo.builder().Select("DISTINCT semester").From(sessionsTable)
	if err := selectContext(ctx, repo.db, &sems, q); err != nil {
		return nil, core.NewDataError(err, "listing attendance semesters")
	}
	core.SortSemesters(sems)
	return sems, nil
}
