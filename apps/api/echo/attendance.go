package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/analysis"
	"github.com/trezcool/gradebook/core/attendance"
)

type attendanceApi struct {
	svc      attendance.Service
	analysis analysis.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt, uploadLimit echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		analysis: deps.AnalysisSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/semesters/:sem/attendance", jwt)

	// any authenticated account
	ag.GET("/:usn", api.studentStats)

	// teachers only
	ag.POST("", api.upload, teacherMiddleware(), uploadLimit)
	ag.GET("", api.report, teacherMiddleware())
}

// Handlers

func (api *attendanceApi) upload(ctx echo.Context) error {
	s, err := readUploadedSheet(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Ingest(ctx.Request().Context(), ctx.Param("sem"), s)
	if err != nil {
		return errors.Wrap(err, "uploading attendance")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	var query ThresholdQuery
	if err := query.Bind(ctx, api.validate); err != nil {
		return err
	}
	rep, err := api.analysis.AttendanceReport(ctx.Request().Context(), ctx.Param("sem"), query.Threshold)
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *attendanceApi) studentStats(ctx echo.Context) error {
	var query ThresholdQuery
	if err := query.Bind(ctx, api.validate); err != nil {
		return err
	}
	st, err := api.svc.StudentStats(ctx.Request().Context(), ctx.Param("sem"), ctx.Param("usn"), query.Threshold)
	if err != nil {
		return errors.Wrap(err, "computing attendance")
	}
	return ctx.JSON(http.StatusOK, st)
}
