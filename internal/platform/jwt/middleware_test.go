package jwtmw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockDecoder はTokenDecoderのモック実装です。
type mockDecoder struct {
	DecodeFunc func(token string) (string, error)
	calls      int
}

func (m *mockDecoder) Decode(token string) (string, error) {
	m.calls++
	return m.DecodeFunc(token)
}

// runGate はミドルウェアを単体で実行し、レコーダーとコンテキストを返します。
func runGate(t *testing.T, decoder TokenDecoder, cookie *http.Cookie) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		c.Request.AddCookie(cookie)
	}

	AuthRequired(decoder)(c)
	return w, c
}

// TestAuthRequired_MissingCookie はクッキーがない場合にデコーダーを呼ばず400が返されることを検証します。
func TestAuthRequired_MissingCookie(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"other cookie only", &http.Cookie{Name: "session", Value: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := &mockDecoder{DecodeFunc: func(string) (string, error) { return "u", nil }}

			w, c := runGate(t, dec, tt.cookie)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.True(t, c.IsAborted())
			assert.Equal(t, 0, dec.calls)
			assert.JSONEq(t, `"missing token"`, w.Body.String())
		})
	}
}

// TestAuthRequired_InvalidToken は不正なトークン（改ざん・期限切れ等）で400が返されることを検証します。
func TestAuthRequired_InvalidToken(t *testing.T) {
	codec := NewCodec(Config{Secret: testSecret})
	expired := newTestCodec(time.Now().Add(-48 * time.Hour))
	expiredToken, err := expired.Sign("user-1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		wantBody string
	}{
		{"malformed token", "not.a.valid.token", `"invalid token"`},
		{"random string", "randomstring", `"invalid token"`},
		{"wrong secret", signWith(t, jwt.SigningMethodHS256, "wrong-secret", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}), `"invalid token"`},
		{"expired token", expiredToken, `"token expired"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := runGate(t, codec, &http.Cookie{Name: CookieName, Value: tt.token})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.True(t, c.IsAborted())
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			_, ok := Principal(c)
			assert.False(t, ok)
		})
	}
}

// TestAuthRequired_ValidToken は有効なトークンでリクエストが通過し、コンテキストにユーザーIDが設定されることを検証します。
func TestAuthRequired_ValidToken(t *testing.T) {
	codec := NewCodec(Config{Secret: testSecret})

	for _, id := range []string{"user-1", "9b2f8c52-7f5e-4c2a-9d4c-2f1e7b8a6c10"} {
		t.Run(id, func(t *testing.T) {
			token, err := codec.Sign(id)
			require.NoError(t, err)

			w, c := runGate(t, codec, &http.Cookie{Name: CookieName, Value: token})

			require.False(t, c.IsAborted(), "response: %s", w.Body.String())
			got, ok := Principal(c)
			require.True(t, ok)
			assert.Equal(t, id, got)
		})
	}
}

// TestAuthRequired_DownstreamNotReached はゲートで拒否された場合に後続ハンドラーが呼ばれないことを検証します。
func TestAuthRequired_DownstreamNotReached(t *testing.T) {
	codec := NewCodec(Config{Secret: testSecret})
	reached := false

	r := gin.New()
	r.GET("/protected", AuthRequired(codec), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reached)

	var body string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "missing token", body)
}

// TestAuthenticate はAuthenticateが欠落と不正を区別して返すことを検証します。
func TestAuthenticate(t *testing.T) {
	codec := NewCodec(Config{Secret: testSecret})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Authenticate(req, codec)
	assert.ErrorIs(t, err, ErrMissingToken)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	_, err = Authenticate(req, codec)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.NotErrorIs(t, err, ErrMissingToken)
}

// TestPrincipal_NotSet は未認証のコンテキストでPrincipalがfalseを返すことを検証します。
func TestPrincipal_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := Principal(c)
	assert.False(t, ok)

	c.Set(ContextUserID, 42)
	_, ok = Principal(c)
	assert.False(t, ok)
}
