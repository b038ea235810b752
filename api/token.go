package api

import (
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"commerce/models"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims 是 access token 的內容，Subject 為使用者 ID
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer 以 Ed25519 簽發與驗證 access token
type TokenIssuer struct {
	secret   crypto.Signer
	issuer   string
	audience string
	expire   time.Duration
	now      func() time.Time
}

func NewTokenIssuer(config AuthConfig) (*TokenIssuer, error) {
	if len(config.PrivateKey) != ed25519.PrivateKeySize {
		return nil, errors.New("auth private key must be an ed25519 key")
	}
	expire := config.ExpireDuration
	if expire <= 0 {
		expire = 3 * time.Hour
	}
	return &TokenIssuer{
		secret:   config.PrivateKey,
		issuer:   config.Issuer,
		audience: config.Audience,
		expire:   expire,
		now:      time.Now,
	}, nil
}

func (t *TokenIssuer) Expire() time.Duration {
	return t.expire
}

func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	const op = "TokenIssuer.Issue"
	now := t.now()
	claims := Claims{
		Username: user.Username,
		Admin:    user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
		},
	}
	if t.audience != "" {
		claims.Audience = []string{t.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to sign JWT, err=%w", op, err)
	}
	return signed, nil
}

// Parse 驗證簽章、簽發者與受眾，回傳 token 內的 claims
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret.Public(), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}
