package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"commerce/adapters/memory"
	"commerce/models"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	impl   *ServerImpl
	store  *memory.Store
	router *gin.Engine
}

func testConfig(t *testing.T) ServerConfig {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return ServerConfig{
		ID:      "test",
		BaseURL: "http://localhost:8080",
		Store:   StoreKindMemory,
		Auth: AuthConfig{
			PrivateKey:     key,
			Issuer:         "commerce-test",
			Audience:       "commerce",
			ExpireDuration: time.Hour,
		},
	}
}

func newTestServer(t *testing.T, config ServerConfig, opts ...ServerOption) *testServer {
	t.Helper()
	store := memory.NewStore()
	opts = append([]ServerOption{
		WithStore(store),
		WithLogger(discardLogger),
		WithSessionStore(memory.NewSessionStore()),
	}, opts...)
	impl, err := NewServer(config, opts...)
	require.NoError(t, err)
	require.NoError(t, impl.Start())
	t.Cleanup(impl.Close)
	return &testServer{impl: impl, store: store, router: impl.Router()}
}

// createUser 直接寫入資料層，使用最低成本的 bcrypt 以加快測試
func (s *testServer) createUser(t *testing.T, username string, admin bool) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsAdmin:      admin,
	}
	require.NoError(t, s.store.CreateUser(context.Background(), user))
	token, err := s.impl.tokens.Issue(user)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Message
}

func (s *testServer) createListing(t *testing.T, token string, body gin.H) ListingSummary {
	t.Helper()
	w := s.do(t, http.MethodPost, "/listings", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[ListingSummary](t, w)
}
