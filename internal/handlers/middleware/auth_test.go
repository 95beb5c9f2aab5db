package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/handlers/userctx"
	"github.com/contactly/backend/internal/models"
)

// Allow to use a function as auth service
type resolveFunc func(ctx context.Context, accessToken string) (models.User, error)

func (f resolveFunc) ResolveUser(ctx context.Context, accessToken string) (models.User, error) {
	return f(ctx, accessToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
		ok       bool
	}{
		{name: "ok", header: "Bearer some-token", expected: "some-token", ok: true},
		{name: "case insensitive scheme", header: "bearer some-token", expected: "some-token", ok: true},
		{name: "no header", header: "", ok: false},
		{name: "wrong scheme", header: "Basic dXNlcjpwd2Q=", ok: false},
		{name: "scheme without token", header: "Bearer ", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			token, ok := BearerToken(r)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, token)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that try to get user from context
	// If ok write it username to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set user or write error to response
		user, ok := userctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(user.Username))
		require.NoError(t, err, "should write username to response")
	})

	serve := func(t *testing.T, resolve resolveFunc, header string) (int, string) {
		t.Helper()

		middleware := AuthMiddleware(resolve)
		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp.StatusCode, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		resolve := resolveFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			require.Equal(t, "valid-token", accessToken)
			return models.User{Username: "test-user"}, nil
		})

		code, body := serve(t, resolve, "Bearer valid-token")
		require.Equalf(t, http.StatusOK, code, "should return status OK. Resp: %s", body)
		require.Equal(t, "test-user", body, "should return username in response")
	})

	t.Run("no bearer token", func(t *testing.T) {
		resolve := resolveFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			t.Fatal("resolver should not be called without a token")
			return models.User{}, nil
		})

		code, body := serve(t, resolve, "")
		require.Equalf(t, http.StatusUnauthorized, code, "should return status Unauthorized. Resp: %s", body)
	})

	t.Run("resolve fails", func(t *testing.T) {
		resolve := resolveFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			return models.User{}, errors.New("some resolve error")
		})

		code, body := serve(t, resolve, "Bearer bad-token")
		require.Equalf(t, http.StatusUnauthorized, code, "should return status Unauthorized. Resp: %s", body)
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Could not validate credentials"
			}`,
			body,
		)
	})

	t.Run("cache down answers 503", func(t *testing.T) {
		resolve := resolveFunc(func(ctx context.Context, accessToken string) (models.User, error) {
			return models.User{}, apperrors.ErrCacheUnavailable
		})

		code, body := serve(t, resolve, "Bearer valid-token")
		require.Equalf(t, http.StatusServiceUnavailable, code, "should return status ServiceUnavailable. Resp: %s", body)
	})
}
