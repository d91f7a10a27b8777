package factory

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.WithField("module", module)
}

// LoggerWithContext tags the logger with the request's X-Request-ID, preferring the echoed response header.
func LoggerWithContext(logger logrus.FieldLogger, ctx echo.Context) logrus.FieldLogger {
	if ctx == nil {
		return logger
	}

	requestID := strings.TrimSpace(ctx.Response().Header().Get(requestIDHeader))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Request().Header.Get(requestIDHeader))
	}
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
