package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-settlement/internal/domain"
)

func TestAuthenticator_IssueAndParse(t *testing.T) {
	a := NewAuthenticator("secret", "loan-settlement")

	token, err := a.IssueToken("user-1", domain.RoleEmployee, time.Hour)
	require.NoError(t, err)

	actor, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, domain.RoleEmployee, actor.Role)
	assert.Equal(t, "user-1", actor.OwnerScope())
}

func TestAuthenticator_Parse_Rejects(t *testing.T) {
	a := NewAuthenticator("secret", "loan-settlement")

	expired, err := a.IssueToken("user-1", domain.RoleAdmin, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewAuthenticator("other", "loan-settlement").IssueToken("user-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewAuthenticator("secret", "someone-else").IssueToken("user-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	badRole, err := a.IssueToken("user-1", domain.Role("root"), time.Hour)
	require.NoError(t, err)

	noSubject, err := a.IssueToken("", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: domain.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"bad role":     badRole,
		"no subject":   noSubject,
		"alg none":     none,
		"garbage":      "not.a.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Parse(token)
			assert.Error(t, err)
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator("secret", "")
	token, err := a.IssueToken("admin-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var seen domain.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	})
	handler := a.Middleware(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "lower-case scheme", header: "bearer " + token, want: http.StatusNoContent},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer abc", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}, seen)
}
