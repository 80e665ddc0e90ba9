package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/attendance"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
	testutil "github.com/trezcool/gradebook/tests"
)

func newAttendanceRepo(t *testing.T) attendance.Repository {
	db := testutil.PrepareDB(t, testutil.NewConfig())
	repo, err := sqlxrepos.NewAttendanceRepository(db, core.NewKeyedRWMutex())
	require.NoError(t, err)
	return repo
}

func ingestSheet(t *testing.T, repo attendance.Repository, sem string) ([]attendance.Session, []attendance.Record) {
	sessions, records, err := attendance.ParseRegister(testutil.AttendanceSheet())
	require.NoError(t, err)
	n, err := repo.Ingest(context.Background(), sem, sessions, records)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
	return sessions, records
}

func TestAttendanceRepository_roundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newAttendanceRepo(t)
	sessions, records := ingestSheet(t, repo, "3")

	reg, err := repo.Register(ctx, "3", "")
	require.NoError(t, err)
	assert.Equal(t, attendance.Register{Semester: "3", Sessions: sessions, Records: records}, reg)

	one, err := repo.Register(ctx, "3", "1xx02")
	require.NoError(t, err)
	require.Len(t, one.Records, 1)
	assert.Equal(t, attendance.Absent, one.Records[0].Marks["2024-01-06"]) // "a" read back uppercased

	sems, err := repo.ListSemesters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, sems)
}

func TestAttendanceRepository_notFound(t *testing.T) {
	ctx := context.Background()
	repo := newAttendanceRepo(t)

	_, err := repo.Register(ctx, "3", "")
	assert.True(t, core.IsNotFound(err))
	err = repo.AddSessions(ctx, attendance.NewTable("3"), nil)
	assert.True(t, core.IsNotFound(err))

	ingestSheet(t, repo, "3")
	_, err = repo.Register(ctx, "3", "nobody")
	assert.True(t, core.IsNotFound(err))
}

func TestAttendanceRepository_AddSessions(t *testing.T) {
	ctx := context.Background()
	repo := newAttendanceRepo(t)

	table, err := repo.CreateSchema(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, attendance.Table{Semester: "3", Name: "attendance_sem_3"}, table)

	// creating twice is harmless
	_, err = repo.CreateSchema(ctx, "3")
	require.NoError(t, err)

	d1, _ := attendance.NewSession("2024-02-01")
	d2, _ := attendance.NewSession("2024-02-02")
	require.NoError(t, repo.AddSessions(ctx, table, []attendance.Session{d1}))
	require.NoError(t, repo.AddSessions(ctx, table, []attendance.Session{d1, d2}))
	require.NoError(t, repo.AddSessions(ctx, table, []attendance.Session{d2, d1}))

	reg, err := repo.Register(ctx, "3", "")
	require.NoError(t, err)
	assert.Equal(t, []attendance.Session{d1, d2}, reg.Sessions)
	assert.Empty(t, reg.Records)
}

func TestAttendanceRepository_Ingest_mergesByUSN(t *testing.T) {
	ctx := context.Background()
	repo := newAttendanceRepo(t)
	sessions, _ := ingestSheet(t, repo, "3")

	d4, _ := attendance.NewSession("2024-01-08")
	update := []attendance.Record{
		{USN: "1xx01", StudentName: "Alice", Marks: map[string]attendance.Mark{d4.Label: attendance.Absent}},
		{USN: "1XX05", StudentName: "Eve", Marks: map[string]attendance.Mark{d4.Label: attendance.Present}},
	}
	_, err := repo.Ingest(ctx, "3", []attendance.Session{d4}, update)
	require.NoError(t, err)

	reg, err := repo.Register(ctx, "3", "")
	require.NoError(t, err)
	assert.Equal(t, append(sessions, d4), reg.Sessions)
	require.Len(t, reg.Records, 5)

	alice := reg.Records[0]
	assert.Equal(t, "1xx01", alice.USN)
	assert.Equal(t, attendance.Present, alice.Marks["2024-01-05"]) // untouched
	assert.Equal(t, attendance.Absent, alice.Marks[d4.Label])

	eve := reg.Records[4]
	assert.Equal(t, "1XX05", eve.USN)
	assert.Equal(t, attendance.Unmarked, eve.Marks["2024-01-05"])
	assert.Equal(t, attendance.Present, eve.Marks[d4.Label])
}

func TestAttendanceRepository_ListSemesters_order(t *testing.T) {
	repo := newAttendanceRepo(t)
	for _, sem := range []string{"10", "2", "odd", "1"} {
		ingestSheet(t, repo, sem)
	}

	sems, err := repo.ListSemesters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10", "odd"}, sems)
}
