package auth_test

import (
	"community-pulse/auth"
	"community-pulse/errors"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestTokens_GenerateAndValidate(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokens("test-secret", "community-pulse")

	raw, err := tokens.GenerateToken("42", []string{auth.RolePublisher}, time.Minute)
	req.NoError(err)

	claims, err := tokens.ValidateToken(raw)
	req.NoError(err)
	req.Equal("42", claims.UserID)
	req.True(claims.HasRole(auth.RolePublisher))
	req.False(claims.HasRole(auth.RoleSubscriber))
}

func TestTokens_ValidateToken_Refused(t *testing.T) {
	tokens := auth.NewTokens("test-secret", "community-pulse")
	otherKey := auth.NewTokens("other-secret", "community-pulse")

	expired, err := tokens.GenerateToken("42", nil, -time.Minute)
	require.NoError(t, err)
	forged, err := otherKey.GenerateToken("42", nil, time.Minute)
	require.NoError(t, err)
	anonymous, err := tokens.GenerateToken("", nil, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid-token-string"},
		{"expired", expired},
		{"wrong signature", forged},
		{"no user id", anonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.ValidateToken(tt.token)
			require.True(t, stderrors.Is(err, errors.ErrInvalidToken), "got %v", err)
		})
	}
}

func TestUnverifiedClaims(t *testing.T) {
	req := require.New(t)
	raw, err := auth.NewTokens("someone-elses-secret", "community-pulse").
		GenerateToken("42", []string{auth.RoleSubscriber}, time.Minute)
	req.NoError(err)

	claims, err := auth.UnverifiedClaims(raw)
	req.NoError(err)
	req.Equal("42", claims.UserID)

	_, err = auth.UnverifiedClaims("not-a-jwt")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		target  string
		want    string
		wantErr bool
	}{
		{"header", "Bearer abc", "/ws", "abc", false},
		{"query", "", "/ws?token=xyz", "xyz", false},
		{"header wins", "Bearer abc", "/ws?token=xyz", "abc", false},
		{"wrong scheme", "Basic abc", "/ws", "", true},
		{"missing", "", "/ws", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := auth.BearerToken(r)

			if tt.wantErr {
				req.True(stderrors.Is(err, errors.ErrUnauthorized))
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokens("test-secret", "community-pulse")
	publisher, err := tokens.GenerateToken("1", []string{auth.RolePublisher}, time.Minute)
	require.NoError(t, err)
	subscriber, err := tokens.GenerateToken("2", []string{auth.RoleSubscriber}, time.Minute)
	require.NoError(t, err)

	var seen *auth.CustomClaims
	handler := auth.RequireRole(tokens, auth.RolePublisher)(func(c echo.Context) error {
		seen = auth.ClaimsFrom(c)
		return nil
	})
	call := func(token string) error {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return handler(echo.New().NewContext(r, httptest.NewRecorder()))
	}

	t.Run("should inject claims for publishers", func(t *testing.T) {
		req := require.New(t)
		req.NoError(call(publisher))
		req.Equal("1", seen.UserID)
	})

	t.Run("should refuse other roles", func(t *testing.T) {
		require.True(t, stderrors.Is(call(subscriber), errors.ErrForbidden))
	})

	t.Run("should refuse missing token", func(t *testing.T) {
		require.True(t, stderrors.Is(call(""), errors.ErrUnauthorized))
	})
}
