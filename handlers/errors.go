package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/demoapi/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	key    string
}{
	{service.ErrValidation, http.StatusBadRequest, "error_validation"},
	{service.ErrUserExists, http.StatusBadRequest, "error_user_exists"},
	{service.ErrUserNotFound, http.StatusBadRequest, "error_user_not_found"},
	{service.ErrDemoExists, http.StatusBadRequest, "error_demo_exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "error_invalid_credentials"},
	{service.ErrStaleCredentials, http.StatusUnauthorized, "error_modified_user"},
	{service.ErrForbidden, http.StatusForbidden, "error_access_denied"},
}

// ErrorHandler maps handler errors to a status code and a message key.
// Anything unrecognised, including storage failures, is a logged 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := describe(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("writing error response", zap.Error(err))
		}
	}
}

func describe(err error) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprint(he.Message)}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, errorResponse{Error: k.key, Message: err.Error()}
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: "error_internal_server_error"}
}
