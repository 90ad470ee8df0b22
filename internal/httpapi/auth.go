package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"eline/internal/auth"
	"eline/internal/models"
)

type authContextKey struct{}

// AuthMiddleware verifies the bearer token on staff routes and stores the
// claims in the request context. Public routes pass through untouched.
func AuthMiddleware(tokens *auth.Tokens, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing token")
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "token_expired", "token expired")
				return
			}
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(authContextKey{}).(auth.Claims)
	return claims, ok
}

// requireBarber returns the business id of the calling barber.
func requireBarber(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing token")
		return "", false
	}
	if claims.Role != models.RoleBarber {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "barber access required")
		return "", false
	}
	return claims.Subject, true
}

// requireAdmin returns the id of the calling admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing token")
		return "", false
	}
	if !auth.IsAdminRole(claims.Role) {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "Admin access required")
		return "", false
	}
	return claims.Subject, true
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

func isPublicEndpoint(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	switch r.URL.Path {
	case "/api/barber/login", "/api/admin/login":
		return true
	}
	return !strings.HasPrefix(r.URL.Path, "/api/barber/") && !strings.HasPrefix(r.URL.Path, "/api/admin/")
}
