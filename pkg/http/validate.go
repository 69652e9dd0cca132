package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// field names in errors follow the json/query tags clients send
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Bind fills req with its defaults, then the request, and validates it.
// Failures come back as a 400 AppError.
func Bind(c echo.Context, req any) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("request defaults: %w", err)
	}
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return Invalid([]ErrorDetail{{Code: "ERR_MALFORMED", Message: fmt.Sprint(he.Message)}})
		}
		return Invalid([]ErrorDetail{{Code: "ERR_MALFORMED", Message: err.Error()}})
	}
	err := validate.StructCtx(c.Request().Context(), req)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]ErrorDetail, len(verrs))
		for i, fe := range verrs {
			details[i] = detailFor(fe)
		}
		return Invalid(details)
	}
	return err
}

var bound = map[string]string{
	"min": "at least",
	"gte": "at least",
	"gt":  "greater than",
	"max": "at most",
	"lte": "at most",
	"lt":  "less than",
}

func detailFor(fe validator.FieldError) ErrorDetail {
	d := ErrorDetail{Code: "ERR_" + strings.ToUpper(fe.Tag()), Field: fe.Field()}
	switch tag := fe.Tag(); tag {
	case "required":
		d.Message = fe.Field() + " is required"
	case "oneof":
		opts := strings.Fields(fe.Param())
		d.Message = fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(opts, ", "))
		d.Params = map[string]any{"options": opts}
	case "min", "gte", "gt", "max", "lte", "lt":
		verb, unit := "be", ""
		switch fe.Kind() {
		case reflect.Slice, reflect.Map:
			verb, unit = "have", " items"
		case reflect.String:
			verb, unit = "have", " characters"
		}
		d.Message = fmt.Sprintf("%s must %s %s %s%s", fe.Field(), verb, bound[tag], fe.Param(), unit)
		d.Params = map[string]any{"limit": fe.Param()}
	default:
		d.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
	return d
}
