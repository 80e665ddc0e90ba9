package analysis

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/semester"
)

type (
	SemesterReport struct {
		Semester          string                     `json:"semester"`
		Statistics        semester.Statistics        `json:"statistics"`
		PassFail          Chart                      `json:"pass_fail"`
		GradeDistribution Chart                      `json:"grade_distribution"`
		SGPADistribution  Chart                      `json:"sgpa_distribution"`
		SubjectPassRate   Chart                      `json:"subject_pass_rate"`
		TopPerformers     []semester.Performer       `json:"top_performers"`
		Subjects          []semester.SubjectAnalysis `json:"subjects"`
	}

	StudentInfo struct {
		StudentName  string             `json:"name"`
		USN          string             `json:"usn"`
		SGPA         float64            `json:"sgpa"`
		Result       grade.Result       `json:"result"`
		OverallGrade grade.OverallGrade `json:"overall_grade"`
	}

	SubjectMark struct {
		Subject    grade.SubjectColumn `json:"subject"`
		Mark       null.Float64        `json:"mark"`
		GradePoint null.Int            `json:"grade_point"`
	}

	StudentReport struct {
		Semester     string                   `json:"semester"`
		Student      StudentInfo              `json:"student_info"`
		Subjects     []SubjectMark            `json:"subjects"`
		SubjectChart Chart                    `json:"subject_performance"`
		Performance  Chart                    `json:"performance_distribution"`
		Attendance   *attendance.StudentStats `json:"attendance,omitempty"`
	}

	AttendanceReport struct {
		Semester      string                    `json:"semester"`
		Summary       attendance.ClassSummary   `json:"class_summary"`
		Students      []attendance.StudentStats `json:"students"`
		Shortages     []attendance.StudentStats `json:"shortages"`
		TopAttendance []attendance.StudentStats `json:"top_attendance"`
		Chart         Chart                     `json:"chart"`
	}
)

type (
	Service interface {
		SemesterReport(ctx context.Context, sem string) (SemesterReport, error)
		// StudentReport includes the student's attendance when the semester has any for them.
		StudentReport(ctx context.Context, sem, usn string) (StudentReport, error)
		// AttendanceReport uses the configured threshold when threshold <= 0.
		AttendanceReport(ctx context.Context, sem string, threshold float64) (AttendanceReport, error)
	}

	service struct {
		semesters  semester.Service
		attendance attendance.Service
	}
)

var _ Service = (*service)(nil)

func NewService(semesters semester.Service, attendances attendance.Service) Service {
	return &service{semesters: semesters, attendance: attendances}
}

func (svc *service) SemesterReport(ctx context.Context, sem string) (SemesterReport, error) {
	snap, err := svc.semesters.Snapshot(ctx, sem)
	if err != nil {
		return SemesterReport{}, err
	}

	key, _ := core.SemesterKey(sem) // validated by Snapshot
	return SemesterReport{
		Semester:          key,
		Statistics:        snap.Statistics,
		PassFail:          PassFailChart(snap.Statistics),
		GradeDistribution: GradeChart(snap.GradeDistribution),
		SGPADistribution:  HistogramChart(snap.SGPAHistogram),
		SubjectPassRate:   SubjectPassRateChart(snap.Subjects),
		TopPerformers:     snap.TopPerformers,
		Subjects:          snap.Subjects,
	}, nil
}

// SubjectMarks pairs every subject of schema with the mark of rec, in schema order.
func SubjectMarks(rec grade.EnrichedStudentRecord, schema grade.Schema) []SubjectMark {
	marks := make([]SubjectMark, 0, len(schema))
	for _, col := range schema {
		sm := SubjectMark{Subject: col, Mark: rec.Marks[col.StorageKey]}
		if sm.Mark.Valid {
			sm.GradePoint = null.IntFrom(grade.GradePoint(sm.Mark.Float64))
		}
		marks = append(marks, sm)
	}
	return marks
}

func (svc *service) StudentReport(ctx context.Context, sem, usn string) (StudentReport, error) {
	schema, rec, err := svc.semesters.Student(ctx, sem, usn)
	if err != nil {
		return StudentReport{}, err
	}

	marks := SubjectMarks(rec, schema)
	key, _ := core.SemesterKey(sem)
	report := StudentReport{
		Semester: key,
		Student: StudentInfo{
			StudentName:  rec.StudentName,
			USN:          rec.USN,
			SGPA:         rec.SGPA,
			Result:       rec.Result,
			OverallGrade: rec.OverallGrade,
		},
		Subjects:     marks,
		SubjectChart: SubjectMarksChart(marks),
		Performance:  PerformanceChart(marks),
	}

	st, err := svc.attendance.StudentStats(ctx, sem, rec.USN, 0)
	switch {
	case err == nil:
		report.Attendance = &st
	case core.IsNotFound(err):
	default:
		return StudentReport{}, errors.Wrap(err, "getting attendance")
	}
	return report, nil
}

// TopAttendance returns the n best attended students, keeping sheet order between ties.
func TopAttendance(students []attendance.StudentStats, n int) []attendance.StudentStats {
	sorted := make([]attendance.StudentStats, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AttendancePercentage > sorted[j].AttendancePercentage
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (svc *service) AttendanceReport(ctx context.Context, sem string, threshold float64) (AttendanceReport, error) {
	stats, err := svc.attendance.Stats(ctx, sem, threshold)
	if err != nil {
		return AttendanceReport{}, err
	}

	shortages := make([]attendance.StudentStats, 0)
	for _, st := range stats.Students {
		if st.Shortage {
			shortages = append(shortages, st)
		}
	}
	key, _ := core.SemesterKey(sem)
	return AttendanceReport{
		Semester:      key,
		Summary:       stats.Summary,
		Students:      stats.Students,
		Shortages:     shortages,
		TopAttendance: TopAttendance(stats.Students, semester.LeaderboardSize),
		Chart:         AttendanceChart(stats.Students),
	}, nil
}
