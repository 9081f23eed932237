package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Staff roles carried in the token's role claim.
const (
	RoleAdmin     = "ADMIN"
	RoleReception = "RECEPTION"
	RoleKiosk     = "KIOSK"
	RoleNurse     = "NURSE"
	RoleDoctor    = "DOCTOR"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authContextKey struct{}

// SignToken issues an HS256 staff token. It backs the token subcommand and tests.
func SignToken(secret, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		Role: strings.ToUpper(strings.TrimSpace(role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware verifies bearer tokens on non-public endpoints. An empty secret disables
// the gate entirely, which is how single-desk and development deployments run.
func AuthMiddleware(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims, err := parseToken(secret, raw)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(authContextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// requireRole passes when auth is disabled, when the caller is an admin, or when the
// caller's role is one of roles.
func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	if !h.authEnabled {
		return true
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if claims.Role == RoleAdmin || contains(roles, claims.Role) {
		return true
	}
	writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "role "+claims.Role+" may not perform this action")
	return false
}

// actor names the caller for audit fields such as vitals.recorded_by.
func actor(r *http.Request) string {
	if claims, ok := claimsFromContext(r.Context()); ok && claims.Subject != "" {
		return claims.Subject
	}
	return strings.TrimSpace(r.Header.Get("X-Staff-ID"))
}

func contains(values []string, value string) bool {
	for _, item := range values {
		if item == value {
			return true
		}
	}
	return false
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// Queue boards and the doctor directory are read without a token.
func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/ws/queue":
		return true
	case "/api/doctors", "/api/queue", "/api/queue/preview":
		return r.Method == http.MethodGet
	default:
		return r.Method == http.MethodOptions
	}
}
