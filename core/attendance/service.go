package attendance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/sheet"
)

type (
	// Repository owns the per-semester attendance tables. Semester arguments are sanitized keys.
	Repository interface {
		// CreateSchema creates the attendance table with its fixed columns if it does not exist.
		CreateSchema(ctx context.Context, semester string) (Table, error)
		// AddSessions adds one column per session; existing sessions are left untouched.
		AddSessions(ctx context.Context, table Table, sessions []Session) error
		// Ingest creates the table and sessions as needed and merges records by USN, in one transaction.
		Ingest(ctx context.Context, semester string, sessions []Session, records []Record) (int, error)
		// Register returns every record, or only the one of usn when usn is not empty.
		Register(ctx context.Context, semester, usn string) (Register, error)
		ListSemesters(ctx context.Context) ([]string, error)
	}

	Service interface {
		Ingest(ctx context.Context, semester string, s *sheet.Sheet) (IngestResult, error)
		Get(ctx context.Context, semester, usn string) (Register, error)
		// Stats uses the configured threshold when threshold <= 0.
		Stats(ctx context.Context, semester string, threshold float64) (Stats, error)
		StudentStats(ctx context.Context, semester, usn string, threshold float64) (StudentStats, error)
		ListSemesters(ctx context.Context) ([]string, error)
	}

	service struct {
		repo             Repository
		logger           core.Logger
		defaultThreshold float64
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:             repo,
		logger:           logger,
		defaultThreshold: conf.AttendanceThreshold,
	}
}

func (svc *service) threshold(th float64) float64 {
	if th <= 0 {
		return svc.defaultThreshold
	}
	return th
}

func (svc *service) Ingest(ctx context.Context, semester string, s *sheet.Sheet) (IngestResult, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return IngestResult{}, err
	}
	sessions, records, err := ParseRegister(s)
	if err != nil {
		return IngestResult{}, err
	}
	if len(records) == 0 {
		return IngestResult{}, core.NewValidationErrorf("sheet has no student rows")
	}

	n, err := svc.repo.Ingest(ctx, key, sessions, records)
	if err != nil {
		return IngestResult{}, errors.Wrap(err, "ingesting attendance")
	}
	svc.logger.Info(fmt.Sprintf("attendance %s: %d students over %d sessions", key, n, len(sessions)))

	if sessions == nil {
		sessions = []Session{}
	}
	return IngestResult{Table: NewTable(key), Ingested: n, Sessions: sessions}, nil
}

func (svc *service) Get(ctx context.Context, semester, usn string) (Register, error) {
	key, err := core.SemesterKey(semester)
	if err != nil {
		return Register{}, err
	}
	return svc.repo.Register(ctx, key, core.CleanString(usn))
}

func (svc *service) Stats(ctx context.Context, semester string, threshold float64) (Stats, error) {
	reg, err := svc.Get(ctx, semester, "")
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(reg, svc.threshold(threshold)), nil
}

func (svc *service) StudentStats(ctx context.Context, semester, usn string, threshold float64) (StudentStats, error) {
	if core.CleanString(usn) == "" {
		return StudentStats{}, core.NewValidationError(nil, core.FieldError{Field: "usn", Error: "this field is required"})
	}
	reg, err := svc.Get(ctx, semester, usn)
	if err != nil {
		return StudentStats{}, err
	}
	return StatsFor(reg.Records[0], reg.Sessions, svc.threshold(threshold)), nil
}

func (svc *service) ListSemesters(ctx context.Context) ([]string, error) {
	return svc.repo.ListSemesters(ctx)
}
