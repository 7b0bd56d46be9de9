package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/printdesk/backend/internal/infrastructure/auth"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const identitySecret = "identity-secret-key-at-least-32-chars"

func decodeIdentity(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIdentity_Headers(t *testing.T) {
	r := newTestRouter(Identity(IdentityConfig{SkipPaths: []string{"/health"}}))

	t.Run("resolves requester", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(IdentityUserHeader, " u-7 ")
		req.Header.Set(IdentityNameHeader, "Grace")

		w := serve(r, req)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeIdentity(t, w)
		assert.Equal(t, "u-7", body["requester_id"])
		assert.Equal(t, "Grace", body["requester_name"])
	})

	t.Run("missing identity", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("skip path", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIdentity_BearerTokens(t *testing.T) {
	tokens := auth.NewJWTService(config.JWTConfig{Secret: identitySecret, Issuer: "printdesk"})
	valid, err := tokens.Issue("u-9", "Linus", time.Hour)
	require.NoError(t, err)
	expired, err := tokens.Issue("u-9", "Linus", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		userHeader string
		wantStatus int
		wantCode   string
		wantID     string
	}{
		{"valid token", "Bearer " + valid, "", http.StatusOK, "", "u-9"},
		{"header ignored", "Bearer " + valid, "u-spoof", http.StatusOK, "", "u-9"},
		{"no header", "", "u-1", http.StatusUnauthorized, dto.ErrCodeTokenInvalid, ""},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, dto.ErrCodeTokenInvalid, ""},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized, dto.ErrCodeTokenExpired, ""},
		{"garbage", "Bearer abc.def.ghi", "", http.StatusUnauthorized, dto.ErrCodeTokenInvalid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			r := newTestRouter(Identity(IdentityConfig{Tokens: tokens, Logger: zap.New(core)}))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.userHeader != "" {
				req.Header.Set(IdentityUserHeader, tt.userHeader)
			}

			w := serve(r, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				body := decodeIdentity(t, w)
				assert.Equal(t, tt.wantID, body["requester_id"])
				assert.Equal(t, "Linus", body["requester_name"])
				assert.Zero(t, logs.Len())
				return
			}
			assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
			assert.Equal(t, 1, logs.FilterMessage("Bearer token rejected").Len())
		})
	}
}

func TestIdentity_TokensWithoutSecretFallBackToHeaders(t *testing.T) {
	tokens := auth.NewJWTService(config.JWTConfig{})
	r := newTestRouter(Identity(IdentityConfig{Tokens: tokens}))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(IdentityUserHeader, "u-3")

	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-3", decodeIdentity(t, w)["requester_id"])
}
