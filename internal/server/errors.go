package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
	"github.com/julianstephens/habitpact/internal/logger"
)

// errorBody is the shape of every error response. Errors is a string for
// single failures and a list of messages for validation failures.
type errorBody struct {
	Errors any `json:"errors"`
}

func respondError(c echo.Context, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return internalError(c, err)
	}

	switch appErr.Kind {
	case apperrors.KindNotFound:
		return c.JSON(http.StatusNotFound, errorBody{Errors: appErr.Message})
	case apperrors.KindValidation:
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Errors: appErr.Messages()})
	case apperrors.KindInvalidState:
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Errors: appErr.Message})
	case apperrors.KindTransient:
		logger.Warn("Transient storage failure", "path", c.Path(), "error", err)
		return c.JSON(http.StatusServiceUnavailable, errorBody{Errors: "Service temporarily unavailable"})
	default:
		return internalError(c, err)
	}
}

func internalError(c echo.Context, err error) error {
	logger.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{Errors: "Internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Errors: msg})
}
