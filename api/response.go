package api

import (
	"community-pulse/errors"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// errorHandler maps sentinel errors to status codes and writes them in the envelope.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, apiErr := mapError(log, err)
		if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
			log.Error("failed to send error response", "error", jsonErr)
		}
	}
}

func mapError(log *slog.Logger, err error) (int, APIError) {
	var echoErr *echo.HTTPError
	if stderrors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{Code: http.StatusText(echoErr.Code), Message: msg}
	}

	switch {
	case stderrors.Is(err, errors.ErrUnauthorized), stderrors.Is(err, errors.ErrInvalidToken):
		return http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "Authentication is required"}
	case stderrors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden, APIError{Code: "forbidden", Message: "You do not have permission to perform this action"}
	case stderrors.Is(err, errors.ErrMalformedEvent),
		stderrors.Is(err, errors.ErrInvalidSchedule),
		stderrors.Is(err, errors.ErrInvalidClock),
		stderrors.Is(err, errors.ErrInvalidPayload),
		stderrors.Is(err, errors.ErrInvalidScope),
		stderrors.Is(err, errors.ErrUnknownEventType):
		return http.StatusBadRequest, APIError{Code: "invalid_input", Message: err.Error()}
	case stderrors.Is(err, errors.ErrDispatchQueueFull):
		return http.StatusServiceUnavailable, APIError{Code: "busy", Message: "Events cannot be accepted right now, retry later"}
	default:
		log.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, APIError{Code: "internal_error", Message: "An unexpected error occurred"}
	}
}
