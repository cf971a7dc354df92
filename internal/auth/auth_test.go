package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "test-issuer"}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       "user-1",
		"tenant_id": "tenant-1",
		"iss":       testConfig.Issuer,
		"exp":       time.Now().Add(time.Hour).Unix(),
		"scopes":    "trainings:read trainings:write",
	}
}

func TestParseNormalizesClaims(t *testing.T) {
	claims, err := Parse(signToken(t, testConfig.Secret, validClaims()), testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "tenant-1", claims.TenantID)
	require.True(t, claims.HasScope(ScopeTrainingsRead))
	require.True(t, claims.HasScope(ScopeTrainingsWrite))
	require.False(t, claims.ExpiresAt.IsZero())
}

func TestParseRejectsWrongSecretAndIssuer(t *testing.T) {
	_, err := Parse(signToken(t, "other-secret", validClaims()), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "someone-else"
	_, err = Parse(signToken(t, testConfig.Secret, wrongIssuer), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresTenant(t *testing.T) {
	claims := validClaims()
	delete(claims, "tenant_id")
	_, err := Parse(signToken(t, testConfig.Secret, claims), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestNormalizeScopesAcceptsLists(t *testing.T) {
	scopes := normalizeScopes([]interface{}{"trainings:read", "", 7})
	require.Len(t, scopes, 1)
	require.Contains(t, scopes, "trainings:read")
}

func TestMiddlewareSkipsPublicPathsAndStoresClaims(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig).Wrap(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Nil(t, seen)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/trainings", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/trainings", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testConfig.Secret, validClaims()))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "tenant-1", seen.TenantID)
}
