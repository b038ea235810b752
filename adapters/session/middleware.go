package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const DefaultSessionKeyForContext = "commerce-session"

var ErrSessionNotFound = errors.New("session not found")

type MiddlewareOptions struct {
	cookieName     string
	contextKey     string
	cookieMaxAge   time.Duration
	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieSameSite http.SameSite
}

type MiddlewareOption func(*MiddlewareOptions)

// WithCookieName 設定 session id 在 cookie 中的名稱
func WithCookieName(name string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookieName = name
	}
}

// WithContextKey 設定 session 在 gin context 中的 key
func WithContextKey(key string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.contextKey = key
	}
}

// WithCookieMaxAge 設定 cookie 的有效時間
func WithCookieMaxAge(maxAge time.Duration) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookieMaxAge = maxAge
	}
}

func WithCookiePath(path string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookiePath = path
	}
}

func WithCookieDomain(domain string) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookieDomain = domain
	}
}

// WithCookieSecure 本機開發使用 http 時需要關閉
func WithCookieSecure(secure bool) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookieSecure = secure
	}
}

func WithCookieSameSite(sameSite http.SameSite) MiddlewareOption {
	return func(o *MiddlewareOptions) {
		o.cookieSameSite = sameSite
	}
}

func defaultMiddlewareOptions() MiddlewareOptions {
	return MiddlewareOptions{
		cookieName:     "session",
		contextKey:     DefaultSessionKeyForContext,
		cookieMaxAge:   10 * time.Minute,
		cookiePath:     "/",
		cookieSecure:   true,
		cookieSameSite: http.SameSiteLaxMode,
	}
}

// GinMiddleware 為每個請求準備 session
// 只有在 handler 修改過 session 時才會寫回 store 並發出 cookie
func GinMiddleware(store IStore, opts ...MiddlewareOption) gin.HandlerFunc {
	options := defaultMiddlewareOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		sessionID, err := c.Cookie(options.cookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.NewString()
		}
		s := NewSession(c.Request.Context(), sessionID, store)
		c.Set(options.contextKey, s)

		committed := false
		commit := func() {
			if committed || !s.Dirty() {
				return
			}
			committed = true
			if err := s.Save(); err != nil {
				_ = c.Error(err)
				return
			}
			c.SetSameSite(options.cookieSameSite)
			c.SetCookie(
				options.cookieName,
				sessionID,
				int(options.cookieMaxAge/time.Second),
				options.cookiePath,
				options.cookieDomain,
				options.cookieSecure,
				true,
			)
		}
		c.Writer = &commitWriter{ResponseWriter: c.Writer, commit: commit}

		c.Next()

		if !c.Writer.Written() {
			commit()
		}
	}
}

// commitWriter 在 header 送出前寫回 session，確保 Set-Cookie 能跟著回應送出
type commitWriter struct {
	gin.ResponseWriter
	commit func()
}

func (w *commitWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *commitWriter) Write(data []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(data)
}

func (w *commitWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

// GetSession 從 context 取得 session 並載入資料
func GetSession(ctx context.Context, opts ...MiddlewareOption) (ISession, error) {
	const op = "session.GetSession"
	options := defaultMiddlewareOptions()
	for _, opt := range opts {
		opt(&options)
	}

	v := ctx.Value(options.contextKey)
	if v == nil {
		return nil, ErrSessionNotFound
	}
	s, ok := v.(ISession)
	if !ok {
		return nil, fmt.Errorf("[%s] invalid session type %T in context", op, v)
	}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("[%s] Fail to load session, err=%w", op, err)
	}
	return s, nil
}
