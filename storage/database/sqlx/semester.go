package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/semester"
)

const subjectsTable = "semester_subjects"

type semesterRepository struct {
	store
}

var _ semester.Repository = (*semesterRepository)(nil)

// NewSemesterRepository returns a semester.Repository backed by db.
// locks may be shared with other repositories; nil gets a private one.
func NewSemesterRepository(db *sqlx.DB, locks *core.KeyedRWMutex) (*semesterRepository, error) {
	s, err := newStore(db, locks)
	if err != nil {
		return nil, err
	}
	return &semesterRepository{store: s}, nil
}

func semesterLockKey(sem string) string { return "semester:" + sem }

type subjectRow struct {
	Ordinal      int    `db:"ordinal"`
	StorageKey   string `db:"storage_key"`
	SubjectName  string `db:"subject_name"`
	RawHeader    string `db:"raw_header"`
	CreditWeight int    `db:"credit_weight"`
}

func (repo *semesterRepository) CreateSchema(ctx context.Context, sem string, schema grade.Schema) (semester.Table, error) {
	defer repo.locks.Lock(semesterLockKey(sem))()

	table := semester.NewTable(sem)
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		return repo.createSchema(ctx, tx, table, schema)
	})
	if err != nil {
		return semester.Table{}, err
	}
	return table, nil
}

func (repo *semesterRepository) Insert(ctx context.Context, table semester.Table, records []grade.EnrichedStudentRecord) (int, error) {
	defer repo.locks.Lock(semesterLockKey(table.Semester))()

	var n int
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		schema, err := repo.schema(ctx, tx, table.Semester)
		if err != nil {
			return err
		}
		n, err = repo.insert(ctx, tx, table, schema, records)
		return err
	})
	return n, err
}

func (repo *semesterRepository) Replace(ctx context.Context, sem string, schema grade.Schema, records []grade.EnrichedStudentRecord) (semester.Table, int, error) {
	defer repo.locks.Lock(semesterLockKey(sem))()

	table := semester.NewTable(sem)
	var n int
	err := repo.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := repo.createSchema(ctx, tx, table, schema); err != nil {
			return err
		}
		var err error
		n, err = repo.insert(ctx, tx, table, schema, records)
		return err
	})
	if err != nil {
		return semester.Table{}, 0, err
	}
	return table, n, nil
}

func (repo *semesterRepository) createSchema(ctx context.Context, tx *sqlx.Tx, table semester.Table, schema grade.Schema) error {
	if len(schema) == 0 {
		return core.NewValidationErrorf("a semester needs at least one subject")
	}

	name := repo.quote(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return core.NewSchemaError(err, "dropping table %s", table.Name)
	}

	ddl := fmt.Sprintf(
		"CREATE TABLE %s (%s %s, %s VARCHAR(255) NOT NULL, %s VARCHAR(64) NOT NULL, %s %s NOT NULL, %s VARCHAR(8) NOT NULL, %s VARCHAR(4) NOT NULL",
		name,
		repo.quote(grade.ColID), repo.dialect.PrimaryKey,
		repo.quote(grade.ColStudentName),
		repo.quote(grade.ColUSN),
		repo.quote(grade.ColSGPA), repo.dialect.Float,
		repo.quote(grade.ColResult),
		repo.quote(grade.ColOverallGrade),
	)
	for _, col := range schema {
		ddl += fmt.Sprintf(", %s %s NULL", repo.quote(col.StorageKey), repo.dialect.Float)
	}
	ddl += ")"
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return core.NewSchemaError(err, "creating table %s", table.Name)
	}

	del := repo.builder().Delete(subjectsTable).Where(sq.Eq{"semester": table.Semester})
	if err := execContext(ctx, tx, del); err != nil {
		return core.NewSchemaError(err, "clearing subjects of %s", table.Name)
	}
	ins := repo.builder().
		Insert(subjectsTable).
		Columns("semester", "ordinal", "storage_key", "subject_name", "raw_header", "credit_weight")
	for i, col := range schema {
		ins = ins.Values(table.Semester, i, col.StorageKey, col.SubjectName, col.RawHeader, col.CreditWeight)
	}
	if err := execContext(ctx, tx, ins); err != nil {
		return core.NewSchemaError(err, "saving subjects of %s", table.Name)
	}
	return nil
}

func (repo *semesterRepository) insert(ctx context.Context, tx *sqlx.Tx, table semester.Table, schema grade.Schema, records []grade.EnrichedStudentRecord) (int, error) {
	cols := append([]string{grade.ColStudentName, grade.ColUSN, grade.ColSGPA, grade.ColResult, grade.ColOverallGrade}, schema.Keys()...)
	quoted := repo.quoteAll(cols)

	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		ins := repo.builder().Insert(repo.quote(table.Name)).Columns(quoted...)
		for _, rec := range records[start:end] {
			vals := make([]interface{}, 0, len(cols))
			vals = append(vals, rec.StudentName, rec.USN, rec.SGPA, string(rec.Result), string(rec.OverallGrade))
			for _, key := range schema.Keys() {
				vals = append(vals, rec.Marks[key])
			}
			ins = ins.Values(vals...)
		}
		if err := execContext(ctx, tx, ins); err != nil {
			return 0, core.NewDataError(err, "inserting records into %s", table.Name)
		}
	}
	return len(records), nil
}

// schema loads the subjects of sem, failing with a NotFoundError when the semester has no table.
func (repo *semesterRepository) schema(ctx context.Context, ex core.DBExecutor, sem string) (grade.Schema, error) {
	table := semester.TableName(sem)
	ok, err := repo.tableExists(ctx, ex, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewNotFoundError("semester %q not found", sem)
	}

	var rows []subjectRow
	q := repo.builder().
		Select("ordinal", "storage_key", "subject_name", "raw_header", "credit_weight").
		From(subjectsTable).
		Where(sq.Eq{"semester": sem}).
		OrderBy("ordinal")
	if err = selectContext(ctx, ex, &rows, q); err != nil {
		return nil, core.NewDataError(err, "loading subjects of %s", table)
	}
	if len(rows) == 0 {
		return nil, core.NewNotFoundError("semester %q has no subjects", sem)
	}

	schema := make(grade.Schema, 0, len(rows))
	for _, r := range rows {
		schema = append(schema, grade.SubjectColumn{
			RawHeader:    r.RawHeader,
			SubjectName:  r.SubjectName,
			CreditWeight: r.CreditWeight,
			StorageKey:   r.StorageKey,
		})
	}
	return schema, nil
}

func (repo *semesterRepository) ListSemesters(ctx context.Context) ([]string, error) {
	sems := make([]string, 0)
	q := repo.builder().Select("DISTINCT semester").From(subjectsTable)
	if err := selectContext(ctx, repo.db, &sems, q); err != nil {
		return nil, core.NewDataError(err, "listing semesters")
	}
	core.SortSemesters(sems)
	return sems, nil
}

func (repo *semesterRepository) Schema(ctx context.Context, sem string) (grade.Schema, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()
	return repo.schema(ctx, repo.db, sem)
}

func (repo *semesterRepository) selectRecords(ctx context.Context, sem string, schema grade.Schema, where ...sq.Sqlizer) ([]grade.EnrichedStudentRecord, error) {
	table := semester.TableName(sem)
	cols := append([]string{grade.ColStudentName, grade.ColUSN, grade.ColSGPA, grade.ColResult, grade.ColOverallGrade}, schema.Keys()...)
	q := repo.builder().Select(repo.quoteAll(cols)...).From(repo.quote(table)).OrderBy(repo.quote(grade.ColID))
	for _, w := range where {
		q = q.Where(w)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, core.NewDataError(err, "building query")
	}

	rows, err := repo.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewDataError(err, "querying %s", table)
	}
	defer func() { _ = rows.Close() }()

	records := make([]grade.EnrichedStudentRecord, 0)
	for rows.Next() {
		var (
			rec         grade.EnrichedStudentRecord
			result, grd string
		)
		marks := make([]null.Float64, len(schema))
		dest := []interface{}{&rec.StudentName, &rec.USN, &rec.SGPA, &result, &grd}
		for i := range marks {
			dest = append(dest, &marks[i])
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, core.NewDataError(err, "scanning %s", table)
		}

		rec.Result = grade.Result(result)
		rec.OverallGrade = grade.OverallGrade(grd)
		rec.Marks = make(map[string]null.Float64, len(schema))
		for i, col := range schema {
			rec.Marks[col.StorageKey] = marks[i]
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, core.NewDataError(err, "reading %s", table)
	}
	return records, nil
}

func (repo *semesterRepository) Records(ctx context.Context, sem string) ([]grade.EnrichedStudentRecord, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	schema, err := repo.schema(ctx, repo.db, sem)
	if err != nil {
		return nil, err
	}
	return repo.selectRecords(ctx, sem, schema)
}

// Record returns the student's row together with the schema it was read with.
func (repo *semesterRepository) Record(ctx context.Context, sem, usn string) (grade.Schema, grade.EnrichedStudentRecord, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	schema, err := repo.schema(ctx, repo.db, sem)
	if err != nil {
		return nil, grade.EnrichedStudentRecord{}, err
	}
	records, err := repo.selectRecords(ctx, sem, schema, sq.Expr("UPPER("+repo.quote(grade.ColUSN)+") = UPPER(?)", usn))
	if err != nil {
		return nil, grade.EnrichedStudentRecord{}, err
	}
	if len(records) == 0 {
		return nil, grade.EnrichedStudentRecord{}, core.NewNotFoundError("student %q not found in semester %q", usn, sem)
	}
	return schema, records[0], nil
}

func (repo *semesterRepository) Statistics(ctx context.Context, sem string) (semester.Statistics, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	if _, err := repo.schema(ctx, repo.db, sem); err != nil {
		return semester.Statistics{}, err
	}
	return repo.statistics(ctx, sem)
}

func (repo *semesterRepository) statistics(ctx context.Context, sem string) (semester.Statistics, error) {
	sgpa, result := repo.quote(grade.ColSGPA), repo.quote(grade.ColResult)
	passSGPA := fmt.Sprintf("CASE WHEN %s = ? THEN %s END", result, sgpa)
	q := repo.builder().
		Select("COUNT(*)").
		Column(fmt.Sprintf("COUNT(CASE WHEN %s = ? THEN 1 END)", result), grade.Pass).
		Column("AVG("+passSGPA+")", grade.Pass).
		Column("MAX("+passSGPA+")", grade.Pass).
		Column("MIN("+passSGPA+")", grade.Pass).
		From(repo.quote(semester.TableName(sem)))

	var (
		stats                semester.Statistics
		avg, highest, lowest sql.NullFloat64
	)
	row, err := queryRowContext(ctx, repo.db, q)
	if err != nil {
		return semester.Statistics{}, err
	}
	if err = row.Scan(&stats.Total, &stats.Passed, &avg, &highest, &lowest); err != nil {
		return semester.Statistics{}, core.NewDataError(err, "computing statistics of semester %s", sem)
	}

	stats.Failed = stats.Total - stats.Passed
	stats.PassPercentage = grade.Percentage(int64(stats.Passed), int64(stats.Total))
	if avg.Valid {
		stats.AverageSGPA = null.Float64From(grade.Round2(avg.Float64))
	}
	stats.HighestSGPA = null.NewFloat64(highest.Float64, highest.Valid)
	stats.LowestSGPA = null.NewFloat64(lowest.Float64, lowest.Valid)
	return stats, nil
}

func (repo *semesterRepository) SubjectAnalysis(ctx context.Context, sem string) ([]semester.SubjectAnalysis, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	schema, err := repo.schema(ctx, repo.db, sem)
	if err != nil {
		return nil, err
	}
	return repo.subjectAnalysis(ctx, sem, schema)
}

func (repo *semesterRepository) subjectAnalysis(ctx context.Context, sem string, schema grade.Schema) ([]semester.SubjectAnalysis, error) {
	from := repo.quote(semester.TableName(sem))
	analyses := make([]semester.SubjectAnalysis, 0, len(schema))
	for _, col := range schema {
		mark := repo.quote(col.StorageKey)
		a := semester.SubjectAnalysis{Subject: col, TopPerformers: make([]semester.Performer, 0, semester.LeaderboardSize)}

		q := repo.builder().
			Select().
			Column(fmt.Sprintf("COUNT(CASE WHEN %s >= ? THEN 1 END)", mark), grade.SubjectPassMark).
			Column(fmt.Sprintf("COUNT(CASE WHEN %s < ? THEN 1 END)", mark), grade.SubjectPassMark).
			Column("AVG(" + mark + ")").
			From(from)
		row, err := queryRowContext(ctx, repo.db, q)
		if err != nil {
			return nil, err
		}
		var avg sql.NullFloat64
		if err = row.Scan(&a.PassCount, &a.FailCount, &avg); err != nil {
			return nil, core.NewDataError(err, "analysing subject %s", col.StorageKey)
		}
		if avg.Valid {
			a.AverageMark = null.Float64From(grade.Round2(avg.Float64))
		}
		a.PassRate = grade.Percentage(int64(a.PassCount), int64(a.PassCount+a.FailCount))

		top := repo.builder().
			Select(repo.quote(grade.ColStudentName), repo.quote(grade.ColUSN), mark+" AS score").
			From(from).
			Where(mark+" >= ?", grade.SubjectPassMark).
			OrderBy(mark+" DESC", repo.quote(grade.ColID)+" ASC").
			Limit(uint64(semester.LeaderboardSize))
		if err = selectContext(ctx, repo.db, &a.TopPerformers, top); err != nil {
			return nil, core.NewDataError(err, "ranking subject %s", col.StorageKey)
		}
		analyses = append(analyses, a)
	}
	return analyses, nil
}

func (repo *semesterRepository) GradeDistribution(ctx context.Context, sem string) ([]semester.GradeCount, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	if _, err := repo.schema(ctx, repo.db, sem); err != nil {
		return nil, err
	}
	return repo.gradeDistribution(ctx, sem)
}

func (repo *semesterRepository) gradeDistribution(ctx context.Context, sem string) ([]semester.GradeCount, error) {
	var rows []struct {
		Grade string `db:"grade"`
		Count int    `db:"count"`
	}
	col := repo.quote(grade.ColOverallGrade)
	q := repo.builder().
		Select(col+" AS grade", "COUNT(*) AS count").
		From(repo.quote(semester.TableName(sem))).
		GroupBy(col)
	if err := selectContext(ctx, repo.db, &rows, q); err != nil {
		return nil, core.NewDataError(err, "counting grades of semester %s", sem)
	}

	counts := make(map[grade.OverallGrade]int, len(rows))
	for _, r := range rows {
		counts[grade.OverallGrade(r.Grade)] = r.Count
	}
	return semester.NewGradeDistribution(counts), nil
}

func (repo *semesterRepository) SGPAHistogram(ctx context.Context, sem string) ([]semester.HistogramBucket, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	if _, err := repo.schema(ctx, repo.db, sem); err != nil {
		return nil, err
	}
	return repo.sgpaHistogram(ctx, sem)
}

func (repo *semesterRepository) sgpaHistogram(ctx context.Context, sem string) ([]semester.HistogramBucket, error) {
	sgpa := repo.quote(grade.ColSGPA)
	q := repo.builder().Select().From(repo.quote(semester.TableName(sem)))
	for _, b := range semester.HistogramBuckets {
		upper := "<"
		if b.Inclusive {
			upper = "<="
		}
		q = q.Column(fmt.Sprintf("COUNT(CASE WHEN %s >= ? AND %s %s ? THEN 1 END)", sgpa, sgpa, upper), b.Min, b.Max)
	}

	counts := make([]int, len(semester.HistogramBuckets))
	dest := make([]interface{}, 0, len(counts))
	for i := range counts {
		dest = append(dest, &counts[i])
	}
	row, err := queryRowContext(ctx, repo.db, q)
	if err != nil {
		return nil, err
	}
	if err = row.Scan(dest...); err != nil {
		return nil, core.NewDataError(err, "building SGPA histogram of semester %s", sem)
	}
	return semester.NewHistogram(counts), nil
}

func (repo *semesterRepository) TopPerformers(ctx context.Context, sem string, n int) ([]semester.Performer, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	if _, err := repo.schema(ctx, repo.db, sem); err != nil {
		return nil, err
	}
	return repo.topPerformers(ctx, sem, n)
}

func (repo *semesterRepository) topPerformers(ctx context.Context, sem string, n int) ([]semester.Performer, error) {
	if n <= 0 {
		return []semester.Performer{}, nil
	}

	sgpa := repo.quote(grade.ColSGPA)
	performers := make([]semester.Performer, 0, n)
	q := repo.builder().
		Select(repo.quote(grade.ColStudentName), repo.quote(grade.ColUSN), sgpa+" AS score").
		From(repo.quote(semester.TableName(sem))).
		Where(sq.Eq{repo.quote(grade.ColResult): string(grade.Pass)}).
		OrderBy(sgpa+" DESC", repo.quote(grade.ColID)+" ASC").
		Limit(uint64(n))
	if err := selectContext(ctx, repo.db, &performers, q); err != nil {
		return nil, core.NewDataError(err, "ranking semester %s", sem)
	}
	return performers, nil
}

// Snapshot computes every aggregate of sem under one read lock, so a concurrent Replace cannot interleave.
func (repo *semesterRepository) Snapshot(ctx context.Context, sem string, n int) (semester.Snapshot, error) {
	defer repo.locks.RLock(semesterLockKey(sem))()

	schema, err := repo.schema(ctx, repo.db, sem)
	if err != nil {
		return semester.Snapshot{}, err
	}

	snap := semester.Snapshot{Schema: schema}
	if snap.Statistics, err = repo.statistics(ctx, sem); err != nil {
		return semester.Snapshot{}, err
	}
	if snap.GradeDistribution, err = repo.gradeDistribution(ctx, sem); err != nil {
		return semester.Snapshot{}, err
	}
	if snap.SGPAHistogram, err = repo.sgpaHistogram(ctx, sem); err != nil {
		return semester.Snapshot{}, err
	}
	if snap.Subjects, err = repo.subjectAnalysis(ctx, sem, schema); err != nil {
		return semester.Snapshot{}, err
	}
	if snap.TopPerformers, err = repo.topPerformers(ctx, sem, n); err != nil {
		return semester.Snapshot{}, err
	}
	return snap, nil
}
