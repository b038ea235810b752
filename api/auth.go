package api

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"commerce/adapters/oidc"
	"commerce/adapters/session"
	"commerce/models"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"omitempty,email,max=254"`
	// bcrypt 只會使用前 72 bytes
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// setTokenCookies 與舊版前端相容：access token 為 HttpOnly，username 以 base64 提供給頁面顯示
func (impl *ServerImpl) setTokenCookies(c *gin.Context, username, token string) {
	maxAge := int(impl.tokens.Expire().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, token, maxAge, "/", "", impl.config.Session.CookieSecure, true)
	c.SetCookie(UsernameCookie, base64.StdEncoding.EncodeToString([]byte(username)), maxAge, "/", "", impl.config.Session.CookieSecure, false)
}

func (impl *ServerImpl) respondToken(c *gin.Context, status int, user *models.User) {
	const op = "respondToken"
	token, err := impl.tokens.Issue(user)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	impl.setTokenCookies(c, user.Username, token)
	c.JSON(status, tokenResponse{Username: user.Username, AccessToken: token})
}

// Register a new account
// (POST /auth/register)
func (impl *ServerImpl) PostAuthRegister(c *gin.Context) {
	const op = "PostAuthRegister"
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(c, "Username cannot be empty.")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		impl.abortWithError(c, op, fmt.Errorf("[%s] Fail to hash password, err=%w", op, err))
		return
	}
	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
	}
	if err := impl.store.CreateUser(c, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Message: "Username already taken."})
			return
		}
		impl.abortWithError(c, op, err)
		return
	}
	impl.logger.Info("user registered", slog.String("user", user.ID.String()))
	impl.respondToken(c, http.StatusCreated, user)
}

// Login with username and password
// (POST /auth/login)
func (impl *ServerImpl) PostAuthLogin(c *gin.Context) {
	const op = "PostAuthLogin"
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := impl.store.GetUserByUsername(c, strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		impl.abortWithError(c, op, err)
		return
	}
	// SSO 建立的帳號沒有密碼
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid username and/or password."})
		return
	}
	impl.respondToken(c, http.StatusOK, user)
}

// Revoke authentication token
// (GET /auth/logout)
func (impl *ServerImpl) GetAuthLogout(c *gin.Context) {
	// only clear the cookie without revoking the token
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", impl.config.Session.CookieSecure, true)
	c.SetCookie(UsernameCookie, "", -1, "/", "", impl.config.Session.CookieSecure, false)
	c.Status(http.StatusNoContent)
}

// Obtain authentication url
// (GET /auth/sso/{provider}/login)
func (impl *ServerImpl) GetAuthSsoProviderLogin(c *gin.Context) {
	const op = "GetAuthSsoProviderLogin"
	// 取得provider
	provider, ok := impl.oidcProviders[c.Param("provider")]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Message: "Unknown SSO provider."})
		return
	}
	state, err := generateID("st")
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	nonce, err := generateID("n")
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	s, err := session.GetSession(c)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	s.Set(SESSION_KEY_REQUEST_STATE, state)
	s.Set(SESSION_KEY_REQUEST_NONCE, nonce)
	if next := c.Query("next"); isLocalPath(next) {
		s.Set(SESSION_KEY_URL_BEFORE_LOGIN, next)
	}
	// 返回 sso server 的登入頁面
	c.Redirect(http.StatusFound, provider.AuthURL(state, nonce))
}

// Exchange authorization code
// (GET /auth/sso/{provider}/callback)
func (impl *ServerImpl) GetAuthSsoProviderCallback(c *gin.Context) {
	const op = "GetAuthSsoProviderCallback"
	providerName := c.Param("provider")
	provider, ok := impl.oidcProviders[providerName]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Message: "Unknown SSO provider."})
		return
	}
	s, err := session.GetSession(c)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	// state 與 nonce 只能使用一次
	verifier := provider.NewExchangeVerifier(
		s.Pop(SESSION_KEY_REQUEST_STATE),
		s.Pop(SESSION_KEY_REQUEST_NONCE),
	)
	next := s.Pop(SESSION_KEY_URL_BEFORE_LOGIN)

	// 向驗證伺服器交換token
	token, err := provider.Exchange(c, verifier, c.Query("code"), c.Query("state"))
	if errors.Is(err, oidc.ErrStateMismatch) || errors.Is(err, oidc.ErrNonceMismatch) {
		badRequest(c, "Login request expired, please try again.")
		return
	}
	if err != nil {
		impl.abortWithError(c, op, fmt.Errorf("[%s] Fail to exchange token, err=%w", op, err))
		return
	}

	// 關聯使用者資料，identity 不存在時建立新的使用者
	ssoProvider, err := impl.store.GetOrCreateSsoProvider(c, providerName)
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}
	user, err := impl.store.GetUserByIdentity(c, ssoProvider.ID, token.IDToken.Sub)
	if errors.Is(err, models.ErrNotFound) {
		user, err = impl.createSsoUser(c, ssoProvider, &token.IDToken)
	}
	if err != nil {
		impl.abortWithError(c, op, err)
		return
	}

	if next != "" {
		signed, err := impl.tokens.Issue(user)
		if err != nil {
			impl.abortWithError(c, op, err)
			return
		}
		impl.setTokenCookies(c, user.Username, signed)
		c.Redirect(http.StatusFound, next)
		return
	}
	impl.respondToken(c, http.StatusOK, user)
}

// createSsoUser 以 ID token 的資料建立帳號，名稱重複時加上流水號
func (impl *ServerImpl) createSsoUser(c *gin.Context, provider *models.SsoProvider, idToken *oidc.IDToken) (*models.User, error) {
	const op = "createSsoUser"
	base := idToken.Username()
	for i := 0; i < 10; i++ {
		username := base
		if i > 0 {
			username = fmt.Sprintf("%s%d", base, i+1)
		}
		user := &models.User{
			Username: username,
			Email:    idToken.VerifiedEmail(),
		}
		identity := &models.UserIdentity{
			SsoProviderID: provider.ID,
			Identity:      idToken.Sub,
		}
		err := impl.store.CreateUserWithIdentity(c, user, identity)
		if err == nil {
			impl.logger.Info("user created from sso",
				slog.String("provider", provider.Name),
				slog.String("user", user.ID.String()),
			)
			return user, nil
		}
		if !errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("[%s] Fail to create user identity, err=%w", op, err)
		}
	}
	return nil, fmt.Errorf("[%s] Fail to find a free username for %q, err=%w", op, base, models.ErrDuplicate)
}

// isLocalPath 只接受站內路徑，避免登入後被導向外部網站
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

func generateID(prefix string) (string, error) {
	const op = "generateID"
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("[%s] Fail to generate unique id, err=%w", op, err)
	}
	return prefix + "_" + base64.URLEncoding.EncodeToString(bytes), nil
}
