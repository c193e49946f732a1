package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// statusOf maps an error kind to its HTTP status
func statusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusForbidden
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNetwork, apperrors.KindSchemaDegraded:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// toHTTPError converts an error from the repositories into an echo.HTTPError
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ae *apperrors.AppError
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, ErrorBody{Error: "internal error"}).SetInternal(err)
	}
	body := ErrorBody{Error: ae.Message, Details: ae.Details}
	if ae.Kind == apperrors.KindInternal {
		body = ErrorBody{Error: "internal error"}
	}
	return echo.NewHTTPError(statusOf(ae.Kind), body).SetInternal(err)
}

// ErrorHandler renders errors as ErrorBody JSON
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he := toHTTPError(err)
		var body ErrorBody
		switch m := he.Message.(type) {
		case ErrorBody:
			body = m
		case string:
			body = ErrorBody{Error: m}
		default:
			body = ErrorBody{Error: http.StatusText(he.Code)}
		}
		if he.Code >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.Warn("failed to write error response", zap.Error(err))
		}
	}
}
