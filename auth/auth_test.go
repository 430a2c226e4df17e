package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-engine/auth"
	"github.com/warp/payslip-engine/payroll"
)

var secret = []byte("test-secret")

func mint(t *testing.T, p auth.Principal, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.NewIssuer(secret, "payslip-engine", ttl).Issue(p)
	require.NoError(t, err)
	return tok
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := auth.NewVerifier(secret, "payslip-engine", nil)
	tok := mint(t, auth.Principal{EmployeeID: 42, Role: payroll.RoleManager}, time.Hour)

	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, payroll.EmployeeID(42), p.EmployeeID)
	assert.True(t, p.IsManager())
}

func TestVerifier_Rejects(t *testing.T) {
	v := auth.NewVerifier(secret, "payslip-engine", nil)

	expired := mint(t, auth.Principal{EmployeeID: 1, Role: payroll.RoleManager}, -time.Minute)
	_, err := v.Verify(expired)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	other, err := auth.NewIssuer([]byte("other"), "payslip-engine", time.Hour).Issue(auth.Principal{EmployeeID: 1})
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer, err := auth.NewIssuer(secret, "someone-else", time.Hour).Issue(auth.Principal{EmployeeID: 1})
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// GIVEN: A correctly signed token whose subject is not numeric
	claims := jwt.RegisteredClaims{Subject: "alice", Issuer: "payslip-engine", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	_, err = v.Verify(bad)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// GIVEN: A correctly signed token that never expires
	forever := jwt.RegisteredClaims{Subject: "1", Issuer: "payslip-engine"}
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{Role: "manager", RegisteredClaims: forever}).SignedString(secret)
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.ErrorContains(t, err, "exp")
}

func TestMiddleware(t *testing.T) {
	v := auth.NewVerifier(secret, "", nil)
	var seen auth.Principal
	h := v.Middleware(auth.RequireManager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, http.StatusUnauthorized},
		{"employee", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+mint(t, auth.Principal{EmployeeID: 7, Role: payroll.RoleEmployee}, time.Hour))
		}, http.StatusForbidden},
		{"manager via header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+mint(t, auth.Principal{EmployeeID: 1, Role: payroll.RoleManager}, time.Hour))
		}, http.StatusNoContent},
		{"manager via cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: mint(t, auth.Principal{EmployeeID: 1, Role: payroll.RoleManager}, time.Hour)})
		}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/slips/generate", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, payroll.EmployeeID(1), seen.EmployeeID)
}
