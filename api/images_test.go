package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"commerce/adapters/s3"
)

// 最小的 PNG 檔頭，足以讓 http.DetectContentType 判斷為 image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func (s *testServer) upload(t *testing.T, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/images", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestImages_Upload(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := s3.NewMockIImageStore(ctrl)
	config := testConfig(t)
	config.S3.RateLimitPerHour = 1
	s := newTestServer(t, config, WithImageStore(store))
	_, token := s.createUser(t, "alice", false)

	t.Run("rejects non images", func(t *testing.T) {
		w := s.upload(t, token, []byte("<html><script>alert(1)</script></html>"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.True(t, strings.HasPrefix(messageOf(t, w), "Invalid image type: text/html"))
	})

	t.Run("rejects large images", func(t *testing.T) {
		body := append(append([]byte{}, pngHeader...), make([]byte, s3.MaxImageSize)...)
		w := s.upload(t, token, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("uploads png", func(t *testing.T) {
		store.EXPECT().
			Upload(gomock.Any(), gomock.Any(), "image/png", pngHeader).
			DoAndReturn(func(_ any, name, _ string, _ []byte) (string, error) {
				assert.True(t, strings.HasSuffix(name, ".png"))
				return "https://cdn.example.com/abc.png", nil
			})
		w := s.upload(t, token, pngHeader)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "https://cdn.example.com/abc.png", decode[map[string]string](t, w)["url"])
		assert.Equal(t, "https://cdn.example.com/abc.png", w.Header().Get("Location"))
	})

	t.Run("rate limited", func(t *testing.T) {
		w := s.upload(t, token, pngHeader)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("requires login", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/images", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestImages_Unavailable(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	_, token := s.createUser(t, "alice", false)
	w := s.upload(t, token, pngHeader)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
