package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

var (
	ErrStateMismatch = errors.New("state mismatch")
	ErrNonceMismatch = errors.New("nonce mismatch")
	ErrMissingToken  = errors.New("no id_token in token response")
)

// DefaultScopes 登入時要求的 scope，email 用於寄送通知
var DefaultScopes = []string{oidc.ScopeOpenID, "email", "profile"}

var _ IProvider = (*Provider)(nil)

// Provider 是一個 SSO 登入來源，例如 Google 或 GitHub 的 OIDC 端點
type Provider struct {
	oauth2   oauth2.Config
	verifier idTokenVerifier
}

type ClientConfig struct {
	ID          string
	Secret      string
	RedirectURL string
	// Scopes 沒有設定時使用 DefaultScopes
	Scopes []string
}

// NewProvider 透過 issuer 的 discovery 文件建立 provider
func NewProvider(ctx context.Context, issuerURL string, client ClientConfig) (*Provider, error) {
	const op = "NewProvider"
	discovery, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to discover issuer %s, err=%w", op, issuerURL, err)
	}
	scopes := client.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &Provider{
		oauth2: oauth2.Config{
			ClientID:     client.ID,
			ClientSecret: client.Secret,
			Endpoint:     discovery.Endpoint(),
			RedirectURL:  client.RedirectURL,
			Scopes:       scopes,
		},
		verifier: discovery.Verifier(&oidc.Config{ClientID: client.ID}),
	}, nil
}

func (p *Provider) AuthURL(state, nonce string) string {
	return p.oauth2.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange 以授權碼換取 token，並依序檢查 state、簽章與 nonce
func (p *Provider) Exchange(ctx context.Context, verifier *ExchangeVerifier, code, state string) (*ExchangeToken, error) {
	const op = "Provider.Exchange"
	if !verifier.VerifyState(state) {
		return nil, ErrStateMismatch
	}
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to exchange code, err=%w", op, err)
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("[%s] %w", op, ErrMissingToken)
	}
	idToken, err := verifier.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to verify id_token, err=%w", op, err)
	}
	if !verifier.VerifyNonce(idToken.Nonce) {
		return nil, ErrNonceMismatch
	}
	token := &ExchangeToken{
		OAuth2Token: oauth2Token,
		IDToken:     IDToken{internal: idToken},
	}
	if err := idToken.Claims(&token.IDToken); err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse id_token claims, err=%w", op, err)
	}
	return token, nil
}

func (p *Provider) NewExchangeVerifier(reqState, reqNonce string) *ExchangeVerifier {
	return &ExchangeVerifier{
		idTokenVerifier: p.verifier,
		reqState:        reqState,
		reqNonce:        reqNonce,
	}
}

type ExchangeToken struct {
	OAuth2Token *oauth2.Token
	IDToken     IDToken
}
