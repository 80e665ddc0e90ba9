package semester

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/sheet"
)

type (
	// Repository owns the per-semester tables. Semester arguments are sanitized keys.
	Repository interface {
		// CreateSchema drops the semester table if any and creates it for schema.
		CreateSchema(ctx context.Context, semester string, schema grade.Schema) (Table, error)
		// Insert stores records in one transaction: all of them or none.
		Insert(ctx context.Context, table Table, records []grade.EnrichedStudentRecord) (int, error)
		// Replace runs CreateSchema and Insert as a single unit of work.
		Replace(ctx context.Context, semester string, schema grade.Schema, records []grade.EnrichedStudentRecord) (Table, int, error)

		ListSemesters(ctx context.Context) ([]string, error)
		Schema(ctx context.Context, semester string) (grade.Schema, error)
		Records(ctx context.Context, semester string) ([]grade.EnrichedStudentRecord, error)
		// Record returns the student's row along with the schema it was read under.
		Record(ctx context.Context, semester, usn string) (grade.Schema, grade.EnrichedStudentRecord, error)

		Statistics(ctx context.Context, semester string) (Statistics, error)
		SubjectAnalysis(ctx context.Context, semester string) ([]SubjectAnalysis, error)
		GradeDistribution(ctx context.Context, semester string) ([]GradeCount, error)
		SGPAHistogram(ctx context.Context, semester string) ([]HistogramBucket, error)
		TopPerformers(ctx context.Context, semester string, n int) ([]Performer, error)
		// Snapshot reads all of the above at once, never mixing two uploads.
		Snapshot(ctx context.Context, semester string, n int) (Snapshot, error)
	}

	Service interface {
		// Upload grades a gradebook sheet and replaces the semester's data with it.
		Upload(ctx context.Context, semester string, s *sheet.Sheet) (UploadResult, error)

		ListSemesters(ctx context.Context) ([]string, error)
		Schema(ctx context.Context, semester string) (grade.Schema, error)
		Students(ctx context.Context, semester string) ([]grade.EnrichedStudentRecord, error)
		Student(ctx context.Context, semester, usn string) (grade.Schema, grade.EnrichedStudentRecord, error)

		Statistics(ctx context.Context, semester string) (Statistics, error)
		SubjectAnalysis(ctx context.Context, semester string) ([]SubjectAnalysis, error)
		GradeDistribution(ctx context.Context, semester string) ([]GradeCount, error)
		SGPAHistogram(ctx context.Context, semester string) ([]HistogramBucket, error)
		TopPerformers(ctx context.Context, semester string) ([]Performer, error)
		Snapshot(ctx context.Context, semester string) (Snapshot, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Upload(ctx context.Context, semester string, s *sheet.Sheet) (UploadResult, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return UploadResult{}, err
	}

	schema, warnings := grade.ExtractSchema(s.Headers)
	for _, w := range warnings {
		svc.logger.Warn(fmt.Sprintf("semester %s: skipped %s", key, w), map[string]interface{}{"semester": key})
	}
	if len(schema) == 0 {
		return UploadResult{}, core.NewValidationErrorf(`no subject column found, expected headers like "Mathematics (4)"`)
	}

	records, err := grade.ParseStudentRecords(s, schema)
	if err != nil {
		return UploadResult{}, err
	}
	if len(records) == 0 {
		return UploadResult{}, core.NewValidationErrorf("sheet has no student rows")
	}

	table, n, err := svc.repo.Replace(ctx, key, schema, grade.Compute(records, schema))
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "replacing semester data")
	}
	svc.logger.Info(fmt.Sprintf("semester %s: %d students graded over %d subjects", key, n, len(schema)))

	if warnings == nil {
		warnings = []grade.Warning{}
	}
	return UploadResult{Table: table, Inserted: n, Subjects: schema, Warnings: warnings}, nil
}

func (svc *service) ListSemesters(ctx context.Context) ([]string, error) {
	return svc.repo.ListSemesters(ctx)
}

func (svc *service) Schema(ctx context.Context, semester string) (grade.Schema, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.Schema(ctx, key)
}

func (svc *service) Students(ctx context.Context, semester string) ([]grade.EnrichedStudentRecord, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.Records(ctx, key)
}

func (svc *service) Student(ctx context.Context, semester, usn string) (grade.Schema, grade.EnrichedStudentRecord, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, grade.EnrichedStudentRecord{}, err
	}
	usn = core.CleanString(usn)
	if usn == "" {
		return nil, grade.EnrichedStudentRecord{}, core.NewValidationError(nil, core.FieldError{Field: "usn", Error: "this field is required"})
	}
	return svc.repo.Record(ctx, key, usn)
}

func (svc *service) Statistics(ctx context.Context, semester string) (Statistics, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return Statistics{}, err
	}
	return svc.repo.Statistics(ctx, key)
}

func (svc *service) SubjectAnalysis(ctx context.Context, semester string) ([]SubjectAnalysis, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.SubjectAnalysis(ctx, key)
}

func (svc *service) GradeDistribution(ctx context.Context, semester string) ([]GradeCount, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.GradeDistribution(ctx, key)
}

func (svc *service) SGPAHistogram(ctx context.Context, semester string) ([]HistogramBucket, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.SGPAHistogram(ctx, key)
}

func (svc *service) TopPerformers(ctx context.Context, semester string) ([]Performer, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return nil, err
	}
	return svc.repo.TopPerformers(ctx, key, LeaderboardSize)
}

func (svc *service) Snapshot(ctx context.Context, semester string) (Snapshot, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return Snapshot{}, err
	}
	return svc.repo.Snapshot(ctx, key, LeaderboardSize)
}
