package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// requestContext copies the request id assigned by middleware.RequestID into
// the request context so log records carry it.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		}
		return next(c)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AccessTokenHeaderName)
	if len(h) <= len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(common.BearerPrefix):])
}

func (s *Server) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			return detail(http.StatusUnauthorized, "Not authenticated")
		}
		userID, err := s.users.Authenticate(token)
		if err != nil {
			return detail(http.StatusUnauthorized, "Invalid or expired token")
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

// requireWebhookToken checks the token query parameter against
// webhook.secret. An empty secret accepts every call.
func (s *Server) requireWebhookToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := s.cfg.Webhook.Secret
		if secret == "" {
			return next(c)
		}
		token := c.QueryParam("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			s.logger.Warn(c.Request().Context(), "webhook rejected", "workflow_id", c.Param("id"))
			return common.ErrWebhookToken
		}
		return next(c)
	}
}

// requireSession redirects to /login unless the session cookie holds a valid token.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUser(c)
		if !ok {
			s.clearSession(c)
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUser(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
