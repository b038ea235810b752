package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	return srv
}

func TestProvider_AuthURL(t *testing.T) {
	srv := newDiscoveryServer(t)
	provider, err := NewProvider(context.Background(), srv.URL, ClientConfig{
		ID:          "commerce",
		Secret:      "secret",
		RedirectURL: "https://auction.example.com/auth/sso/google/callback",
	})
	require.NoError(t, err)

	raw := provider.AuthURL("st_abc", "n_xyz")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	query := u.Query()
	assert.Equal(t, "commerce", query.Get("client_id"))
	assert.Equal(t, "st_abc", query.Get("state"))
	assert.Equal(t, "n_xyz", query.Get("nonce"))
	assert.Equal(t, "https://auction.example.com/auth/sso/google/callback", query.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", query.Get("scope"))

	custom, err := NewProvider(context.Background(), srv.URL, ClientConfig{ID: "commerce", Scopes: []string{"openid"}})
	require.NoError(t, err)
	u, err = url.Parse(custom.AuthURL("st", "n"))
	require.NoError(t, err)
	assert.Equal(t, "openid", u.Query().Get("scope"))
}

func TestNewProvider_BadIssuer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewProvider(context.Background(), srv.URL, ClientConfig{ID: "commerce"})
	assert.Error(t, err)
}

func TestProvider_Exchange(t *testing.T) {
	srv := newDiscoveryServer(t)
	provider, err := NewProvider(context.Background(), srv.URL, ClientConfig{ID: "commerce", Secret: "secret"})
	require.NoError(t, err)

	verifier := provider.NewExchangeVerifier("st_abc", "n_xyz")
	_, err = provider.Exchange(context.Background(), verifier, "code", "st_other")
	assert.ErrorIs(t, err, ErrStateMismatch)

	// token endpoint 沒有回傳 id_token
	_, err = provider.Exchange(context.Background(), verifier, "code", "st_abc")
	assert.ErrorIs(t, err, ErrMissingToken)
}

type stubVerifier struct {
	token *oidc.IDToken
	err   error
}

func (s stubVerifier) Verify(context.Context, string) (*oidc.IDToken, error) {
	return s.token, s.err
}

func TestExchangeVerifier(t *testing.T) {
	v := &ExchangeVerifier{idTokenVerifier: stubVerifier{err: errors.New("expired")}, reqState: "st", reqNonce: "n"}
	assert.True(t, v.VerifyState("st"))
	assert.False(t, v.VerifyState("st2"))
	assert.True(t, v.VerifyNonce("n"))
	assert.False(t, v.VerifyNonce(""))

	_, err := v.VerifyIDToken(context.Background(), "raw")
	assert.Error(t, err)

	empty := &ExchangeVerifier{}
	assert.False(t, empty.VerifyState(""), "missing session state never matches")
}

func TestIDToken_Username(t *testing.T) {
	tests := []struct {
		name  string
		token IDToken
		want  string
	}{
		{name: "preferred", token: IDToken{Profile: Profile{PreferredUsername: "alice", Nickname: "al"}}, want: "alice"},
		{name: "nickname", token: IDToken{Profile: Profile{Nickname: "al"}}, want: "al"},
		{name: "email", token: IDToken{Email: Email{Email: "bob@example.com"}, Profile: Profile{Name: "Bob B"}}, want: "bob"},
		{name: "name", token: IDToken{Profile: Profile{Name: "Carol C"}}, want: "CarolC"},
		{name: "subject", token: IDToken{OpenID: OpenID{Sub: "123"}}, want: "user-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Username())
		})
	}
}

func TestIDToken_VerifiedEmail(t *testing.T) {
	token := IDToken{Email: Email{Email: "bob@example.com"}}
	assert.Empty(t, token.VerifiedEmail())
	token.EmailVerified = true
	assert.Equal(t, "bob@example.com", token.VerifiedEmail())
}
