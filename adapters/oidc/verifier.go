package oidc

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// ExchangeVerifier 用於驗證 OIDC 身份驗證過程中的令牌和狀態
type ExchangeVerifier struct {
	idTokenVerifier idTokenVerifier // ID 令牌驗證器
	reqState        string          // 登入時保存在 session 的 state
	reqNonce        string          // 登入時保存在 session 的 nonce
}

// VerifyIDToken 驗證 ID 令牌的有效性
func (v *ExchangeVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	const op = "VerifyIDToken"
	idToken, err := v.idTokenVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[%s] err=%w", op, err)
	}
	return idToken, nil
}

// VerifyState 驗證狀態值是否匹配，session 中沒有 state 時一律失敗
func (v *ExchangeVerifier) VerifyState(state string) bool {
	return equal(v.reqState, state)
}

// VerifyNonce 驗證隨機數是否匹配
func (v *ExchangeVerifier) VerifyNonce(nonce string) bool {
	return equal(v.reqNonce, nonce)
}

func equal(expected, actual string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
