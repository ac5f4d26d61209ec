package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/scheduler"
)

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *orchestrator.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	var reqErr *orchestrator.RequirementsError
	if errors.As(err, &reqErr) {
		return echo.NewHTTPError(http.StatusBadRequest, reqErr.Error())
	}
	if errors.Is(err, orchestrator.ErrAgentDisabled) || errors.Is(err, orchestrator.ErrUnknownPipeline) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, orchestrator.ErrAgentNotFound) ||
		errors.Is(err, execution.ErrNotFound) ||
		errors.Is(err, scheduler.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, execution.ErrNotCancellable) {
		return echo.NewHTTPError(http.StatusConflict, "execution is not in a cancellable state")
	}
	if errors.Is(err, scheduler.ErrJobRunning) || errors.Is(err, scheduler.ErrJobLocked) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// httpErrorHandler renders errors as ErrorResponse. Non-HTTP errors become
// a generic 500.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		slog.Error("Unhandled request error",
			"method", c.Request().Method, "path", c.Path(), "error", err)
	}

	resp := ErrorResponse{
		Error:     fmt.Sprintf("http_%d", code),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, resp)
	}
	if writeErr != nil {
		slog.Warn("Failed to write error response", "error", writeErr)
	}
}
