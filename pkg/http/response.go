package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	applogger "CandleNet/pkg/logger"
)

// JSON writes data in an Envelope with status.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

func OK(c echo.Context, data any) error {
	return JSON(c, http.StatusOK, data)
}

func List(c echo.Context, rows any, total int) error {
	return OK(c, Page{Rows: rows, Total: total})
}

// ErrorHandler renders errors returned by handlers and middleware as an
// Envelope. Server-side failures are logged with their cause.
func ErrorHandler(l *applogger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae := toAppError(err)
		if ae.Status >= http.StatusInternalServerError {
			l.Error("request failed",
				applogger.String("path", c.Path()),
				applogger.Int("status", ae.Status),
				applogger.Error(err))
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(ae.Status)
		} else {
			werr = c.JSON(ae.Status, Envelope{Status: ae.Status, Message: http.StatusText(ae.Status), Errors: ae.Details})
		}
		if werr != nil {
			l.Warn("write error response", applogger.Error(werr))
		}
	}
}
