//go:generate mockgen -package=oidc -destination=mock.go -source=interfaces.go

package oidc

import "context"

// IProvider 是 SSO 登入流程需要的操作
type IProvider interface {
	// AuthURL 回傳 SSO 登入頁面的網址
	AuthURL(state, nonce string) string
	// NewExchangeVerifier 以登入時保存的 state 與 nonce 建立驗證器
	NewExchangeVerifier(reqState, reqNonce string) *ExchangeVerifier
	// Exchange 以授權碼交換並驗證 ID token
	Exchange(ctx context.Context, verifier *ExchangeVerifier, code, state string) (*ExchangeToken, error)
}
