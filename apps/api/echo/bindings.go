package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

// ThresholdQuery binds (on GET requests) the optional attendance `threshold` query param; zero means the configured one.
type ThresholdQuery struct {
	Threshold float64 `query:"threshold" json:"threshold" validate:"gte=0,lte=100"`
}

func (q *ThresholdQuery) Bind(ctx echo.Context, validate *validator.Validate) error {
	if err := ctx.Bind(q); err != nil {
		if herr, ok := errors.Cause(err).(*echo.HTTPError); ok && herr.Internal != nil {
			err = herr.Internal
		}
		return core.NewValidationError(err, core.FieldError{Field: "threshold", Error: "must be a number"})
	}
	return validate.Struct(q)
}
