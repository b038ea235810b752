// 參考https://auth0.com/docs/get-started/apis/scopes/openid-connect-scopes
package oidc

import (
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type OpenID struct {
	Sub    string `json:"sub"`
	Iss    string `json:"iss"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
	AtHash string `json:"at_hash"`
}

type Email struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type Profile struct {
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Nickname          string `json:"nickname"`
	Picture           string `json:"picture"`
}

type IDToken struct {
	OpenID
	Email
	Profile

	internal *oidc.IDToken
}

func (i *IDToken) Claims(v any) error {
	return i.internal.Claims(v)
}

// Username 建立新帳號時使用的名稱，依序取 preferred_username、nickname、email 的帳號部分、name
func (i *IDToken) Username() string {
	candidates := []string{i.PreferredUsername, i.Nickname}
	if local, _, ok := strings.Cut(i.Email.Email, "@"); ok {
		candidates = append(candidates, local)
	}
	candidates = append(candidates, strings.ReplaceAll(i.Name, " ", ""))
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return "user-" + i.Sub
}

// VerifiedEmail 只回傳已驗證的 email
func (i *IDToken) VerifiedEmail() string {
	if !i.EmailVerified {
		return ""
	}
	return i.Email.Email
}
