package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/bmd/internal/server/auth"
	"github.com/labstack/echo/v4"
)

const (
	flashCookie = "bmd_flash"
	orcidCookie = "bmd_orcid"
)

// Flash kinds, used as CSS classes.
const (
	flashPositive = "positive"
	flashNegative = "negative"
	flashInfo     = "info"
)

type flash struct {
	Kind    string
	Message string
}

func (s *Server) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) sessionUser(c echo.Context) (string, bool) {
	ck, err := c.Cookie(s.cfg.Session.CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	userID, err := s.users.Authenticate(ck.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}

func (s *Server) setSession(c echo.Context, token string) {
	c.SetCookie(s.cookie(s.cfg.Session.CookieName, token, int(s.cfg.AccessTokenTTL.Seconds())))
}

func (s *Server) clearSession(c echo.Context) {
	c.SetCookie(s.cookie(s.cfg.Session.CookieName, "", -1))
}

// setFlash stores a one-shot notification shown by the next rendered page.
func (s *Server) setFlash(c echo.Context, kind, msg string) {
	c.SetCookie(s.cookie(flashCookie, url.QueryEscape(kind+"|"+msg), 60))
}

func (s *Server) popFlash(c echo.Context) *flash {
	ck, err := c.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	c.SetCookie(s.cookie(flashCookie, "", -1))

	raw, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

func (s *Server) saveLoginAttempt(c echo.Context, a auth.LoginAttempt) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	c.SetCookie(s.cookie(orcidCookie, base64.RawURLEncoding.EncodeToString(b), 600))
	return nil
}

func (s *Server) takeLoginAttempt(c echo.Context) (auth.LoginAttempt, bool) {
	var a auth.LoginAttempt

	ck, err := c.Cookie(orcidCookie)
	if err != nil || ck.Value == "" {
		return a, false
	}
	c.SetCookie(s.cookie(orcidCookie, "", -1))

	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return a, false
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return a, false
	}
	return a, a.State != ""
}
