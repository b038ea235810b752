package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commerce/ledger"
)

const (
	AccessTokenCookie = "access_token"
	UsernameCookie    = "username"

	contextKeyPrincipal = "commerce-principal"
)

var errUnauthenticated = errors.New("authentication required")

var _ ledger.Actor = (*Principal)(nil)

// Principal 是通過驗證的使用者
type Principal struct {
	ID    uuid.UUID
	Name  string
	Admin bool
}

func (p *Principal) UserID() uuid.UUID { return p.ID }
func (p *Principal) Username() string  { return p.Name }
func (p *Principal) IsAdmin() bool     { return p.Admin }

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

// Authenticate 解析 access token，沒有或無效的 token 視為匿名請求
func (impl *ServerImpl) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := impl.tokens.Parse(token)
		if err != nil {
			impl.logger.Debug("ignore invalid access token", slog.Any("error", err))
			c.Next()
			return
		}
		c.Set(contextKeyPrincipal, &Principal{
			ID:    uuid.MustParse(claims.Subject),
			Name:  claims.Username,
			Admin: claims.Admin,
		})
		c.Next()
	}
}

// CurrentPrincipal 取得目前登入的使用者，匿名請求回傳 nil
func CurrentPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return nil
	}
	principal, _ := v.(*Principal)
	return principal
}

func (impl *ServerImpl) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentPrincipal(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Authentication required."})
			return
		}
		c.Next()
	}
}

// RequireAdmin 以資料庫中的權限為準，token 內的 admin 旗標可能已經過期
func (impl *ServerImpl) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Authentication required."})
			return
		}
		user, err := impl.store.GetUser(c, principal.ID)
		if err != nil {
			impl.abortWithError(c, "RequireAdmin", err)
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "Administrator permission required."})
			return
		}
		principal.Admin = true
		c.Next()
	}
}
