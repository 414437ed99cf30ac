package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Detail string `json:"detail"`
}

func detail(code int, msg string) *echo.HTTPError {
	return echo.NewHTTPError(code, msg)
}

// apiError translates a service error into an HTTP error.
func apiError(err error) *echo.HTTPError {
	var (
		ve *common.ValidationError
		ue *common.UpstreamError
		he *echo.HTTPError
	)

	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &ve):
		return detail(http.StatusBadRequest, ve.Message)
	case errors.Is(err, common.ErrEmailTaken):
		return detail(http.StatusBadRequest, "Email already registered")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return detail(http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, common.ErrWebhookToken):
		return detail(http.StatusUnauthorized, "Invalid webhook token")
	case errors.Is(err, common.ErrorUnauthorized):
		return detail(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, common.ErrorNotFound):
		return detail(http.StatusNotFound, "Workflow not found")
	case errors.Is(err, services.ErrArchiveDisabled):
		return detail(http.StatusNotFound, "Crate archive is not configured")
	case errors.As(err, &ue):
		return detail(http.StatusBadGateway, ue.Error())
	default:
		return detail(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := apiError(err)
	if he.Code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request error", "error", err, "path", c.Path())
	}

	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, errorBody{Detail: msg})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err)
	}
}
