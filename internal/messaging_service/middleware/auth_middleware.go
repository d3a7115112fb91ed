package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedUserContextKey = ContextKey("authenticatedUser")

// AuthenticatedUser holds the identity claims of the caller. OrgID scopes
// every repository call downstream; no handler accepts an org id from the
// request body.
type AuthenticatedUser struct {
	ID       uuid.UUID
	OrgID    uuid.UUID
	Role     domain.Role
	Username string
}

type accessClaims struct {
	OrgID    string `json:"org_id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and injects the caller's
// identity into the request context.
func AuthMiddleware(jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			user, err := parseAccessToken(parts[1], jwtSecret)
			if err != nil {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseAccessToken(tokenString, secret string) (*AuthenticatedUser, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("invalid org_id claim: %w", err)
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleOwner, domain.RoleAdmin, domain.RoleSitter:
	default:
		return nil, fmt.Errorf("unknown role claim %q", claims.Role)
	}

	return &AuthenticatedUser{
		ID:       userID,
		OrgID:    orgID,
		Role:     role,
		Username: claims.Username,
	}, nil
}

// RequireRoles rejects callers whose role is not in the allow list.
// AuthMiddleware must run first.
func RequireRoles(logger *slog.Logger, roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := r.Context().Value(AuthenticatedUserContextKey).(AuthenticatedUser)
			if !ok {
				logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context. AuthMiddleware must run first.")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			for _, role := range roles {
				if authUser.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.WarnContext(r.Context(), "Role not permitted for this endpoint",
				"user_id", authUser.ID, "role", authUser.Role)
			http.Error(w, "Forbidden: your role does not permit this action", http.StatusForbidden)
		})
	}
}

// UserFromContext extracts the authenticated caller set by AuthMiddleware.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	return user, ok
}
