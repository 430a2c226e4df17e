/*
Package auth verifies bearer tokens and carries the caller's identity.

PURPOSE:
  Every manager operation acts on "the authenticated manager". Identity
  arrives as an HS256 JWT whose subject is the employee id and whose
  "role" claim is manager or employee. The middleware verifies the token
  and puts a Principal on the request context; handlers read it back
  with FromContext.

TOKEN SOURCES (first match wins):
  1. Cookie "auth_token"
  2. Header "Authorization: Bearer <token>"

ISSUING:
  Issuer exists for local development and tests (cmd/server -mint-token).
  Production tokens come from whatever identity service signs with the
  shared secret.

SEE ALSO:
  - api/server.go: where the middleware is mounted
*/
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/payslip-engine/payroll"
)

// CookieName is the cookie checked before the Authorization header.
const CookieName = "auth_token"

var (
	ErrNoToken      = errors.New("authorization token not provided")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Principal is the authenticated caller.
type Principal struct {
	EmployeeID payroll.EmployeeID `json:"employee_id"`
	Role       payroll.Role       `json:"role"`
}

func (p Principal) IsManager() bool { return p.Role == payroll.RoleManager }

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// =============================================================================
// VERIFY
// =============================================================================

type Verifier struct {
	secret []byte
	issuer string
	logger *slog.Logger
}

// NewVerifier accepts tokens signed with secret. A non-empty issuer must
// match the token's iss claim.
func NewVerifier(secret []byte, issuer string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{secret: secret, issuer: issuer, logger: logger}
}

// Verify parses and checks a token string.
func (v *Verifier) Verify(tokenStr string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := payroll.ParseEmployeeID(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject %q is not an employee id", ErrInvalidToken, claims.Subject)
	}
	role := payroll.Role(claims.Role)
	if role != payroll.RoleManager {
		role = payroll.RoleEmployee
	}
	return Principal{EmployeeID: id, Role: role}, nil
}

// Middleware rejects requests without a valid token with 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, err := tokenFrom(r)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		p, err := v.Verify(tokenStr)
		if err != nil {
			v.logger.InfoContext(r.Context(), "rejected token", "path", r.URL.Path, "error", err)
			unauthorized(w, ErrInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireManager must run after Middleware. Non-managers get 403.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			unauthorized(w, ErrNoToken.Error())
			return
		}
		if !p.IsManager() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "manager role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFrom(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="payslip"`)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// CONTEXT
// =============================================================================

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// =============================================================================
// ISSUE
// =============================================================================

// Issuer signs tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the principal.
func (i *Issuer) Issue(p Principal) (string, error) {
	now := i.now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.EmployeeID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
