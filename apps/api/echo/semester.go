package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/analysis"
	"github.com/trezcool/gradebook/core/semester"
	"github.com/trezcool/gradebook/core/sheet"
)

type semesterApi struct {
	svc      semester.Service
	analysis analysis.Service
}

func registerSemesterAPI(g *echo.Group, jwt, uploadLimit echo.MiddlewareFunc, deps ServerDeps) {
	api := semesterApi{
		svc:      deps.SemesterSvc,
		analysis: deps.AnalysisSvc,
	}

	sg := g.Group("/semesters", jwt)

	// any authenticated account
	sg.GET("/:sem/students/:usn", api.studentReport)

	// teachers only
	tg := sg.Group("", teacherMiddleware())
	tg.GET("", api.list)
	tg.POST("/:sem/marks", api.upload, uploadLimit)
	tg.GET("/:sem/report", api.report)
	tg.GET("/:sem/statistics", api.statistics)
	tg.GET("/:sem/subjects", api.subjects)
	tg.GET("/:sem/grades", api.grades)
	tg.GET("/:sem/histogram", api.histogram)
}

// Handlers

func (api *semesterApi) upload(ctx echo.Context) error {
	s, err := readUploadedSheet(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Upload(ctx.Request().Context(), ctx.Param("sem"), s)
	if err != nil {
		return errors.Wrap(err, "uploading marks")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *semesterApi) list(ctx echo.Context) error {
	sems, err := api.svc.ListSemesters(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing semesters")
	}
	return ctx.JSON(http.StatusOK, sems)
}

func (api *semesterApi) report(ctx echo.Context) error {
	rep, err := api.analysis.SemesterReport(ctx.Request().Context(), ctx.Param("sem"))
	if err != nil {
		return errors.Wrap(err, "building semester report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *semesterApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.Statistics(ctx.Request().Context(), ctx.Param("sem"))
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *semesterApi) subjects(ctx echo.Context) error {
	subjects, err := api.svc.SubjectAnalysis(ctx.Request().Context(), ctx.Param("sem"))
	if err != nil {
		return errors.Wrap(err, "analysing subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *semesterApi) grades(ctx echo.Context) error {
	dist, err := api.svc.GradeDistribution(ctx.Request().Context(), ctx.Param("sem"))
	if err != nil {
		return errors.Wrap(err, "getting grade distribution")
	}
	return ctx.JSON(http.StatusOK, dist)
}

func (api *semesterApi) histogram(ctx echo.Context) error {
	hist, err := api.svc.SGPAHistogram(ctx.Request().Context(), ctx.Param("sem"))
	if err != nil {
		return errors.Wrap(err, "getting SGPA histogram")
	}
	return ctx.JSON(http.StatusOK, hist)
}

func (api *semesterApi) studentReport(ctx echo.Context) error {
	rep, err := api.analysis.StudentReport(ctx.Request().Context(), ctx.Param("sem"), ctx.Param("usn"))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// readUploadedSheet decodes the multipart "file" field of the request.
func readUploadedSheet(ctx echo.Context) (*sheet.Sheet, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, errMissingFile
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	s, err := sheet.Read(f, fh.Filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", fh.Filename)
	}
	return s, nil
}
