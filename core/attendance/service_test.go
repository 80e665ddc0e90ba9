package attendance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/sheet"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
	testutil "github.com/trezcool/gradebook/tests"
)

func setup(t *testing.T) attendance.Service {
	conf := testutil.NewConfig()
	db := testutil.PrepareDB(t, conf)
	repo, err := sqlxrepos.NewAttendanceRepository(db, nil)
	require.NoError(t, err)
	return attendance.NewService(repo, testutil.NewLogger(conf), conf)
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	res, err := svc.Ingest(ctx, "3", testutil.AttendanceSheet())
	require.NoError(t, err)
	assert.Equal(t, attendance.Table{Semester: "3", Name: "attendance_sem_3"}, res.Table)
	assert.Equal(t, 4, res.Ingested)
	assert.Len(t, res.Sessions, 3)

	_, err = svc.Ingest(ctx, "3", sheet.New("a", []string{"Name", "2024-01-05"}, []string{"A", "P"}))
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	_, err = svc.Ingest(ctx, "3", sheet.New("a", []string{"USN", "Student Name", "d1"}, []string{"1", "A", "late"}))
	assert.Equal(t, core.KindData, core.KindOf(err))
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	_, err := svc.Ingest(ctx, "3", testutil.AttendanceSheet())
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "3", 0)
	require.NoError(t, err)
	require.Len(t, stats.Students, 4)
	assert.Equal(t, 80.0, stats.Summary.Threshold) // configured default
	assert.Equal(t, 2, stats.Summary.ShortageCount)
	assert.InDelta(t, 58.33, stats.Summary.AveragePercentage, 0.01)

	want := []attendance.StudentStats{
		{USN: "1XX01", StudentName: "Alice", TotalClasses: 3, ClassesAttended: 3, AttendancePercentage: 100},
		{USN: "1XX02", StudentName: "Bob", TotalClasses: 3, ClassesAttended: 1, AttendancePercentage: 33.33, Shortage: true},
		{USN: "1XX03", StudentName: "Carol", TotalClasses: 2, ClassesAttended: 2, AttendancePercentage: 100},
		{USN: "1XX04", StudentName: "Dave", TotalClasses: 3, ClassesAttended: 0, AttendancePercentage: 0, Shortage: true},
	}
	assert.Equal(t, want, stats.Students)

	lenient, err := svc.Stats(ctx, "3", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, lenient.Summary.ShortageCount)
}

func TestService_StudentStats(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	_, err := svc.StudentStats(ctx, "3", "1XX01", 0)
	assert.True(t, core.IsNotFound(err))

	_, err = svc.Ingest(ctx, "3", testutil.AttendanceSheet())
	require.NoError(t, err)

	st, err := svc.StudentStats(ctx, "3", "1xx03", 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, st.AttendancePercentage)

	_, err = svc.StudentStats(ctx, "3", "1XX99", 0)
	assert.True(t, core.IsNotFound(err))

	_, err = svc.StudentStats(ctx, "3", "", 0)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}
