package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce/adapters/session"
)

const (
	SESSION_KEY_REQUEST_STATE    = "request_state"
	SESSION_KEY_REQUEST_NONCE    = "request_nonce"
	SESSION_KEY_URL_BEFORE_LOGIN = "url_before_login"
)

func (impl *ServerImpl) SessionMiddleware() gin.HandlerFunc {
	opts := []session.MiddlewareOption{
		session.WithCookieSecure(impl.config.Session.CookieSecure),
		session.WithCookieSameSite(http.SameSiteLaxMode),
	}
	if impl.config.Session.KeyForCookie != "" {
		opts = append(opts, session.WithCookieName(impl.config.Session.KeyForCookie))
	}
	if impl.config.Session.CookieMaxAge > 0 {
		opts = append(opts, session.WithCookieMaxAge(impl.config.Session.CookieMaxAge))
	}
	return session.GinMiddleware(impl.sessionStore, opts...)
}
