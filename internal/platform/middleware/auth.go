// Package middleware holds the HTTP middleware that establishes who is calling.
package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	jwttoken "fitgap/internal/jwt_token"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/httputil"
	"fitgap/pkg/requestcontext"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireActor validates the bearer token and stores the actor and its
// authentication provenance in the request context.
func RequireActor(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{
				ID:    id.UserID(userID),
				Email: claims.Email,
				Role:  strings.ToLower(claims.Role),
			})
			ctx = requestcontext.WithAuthProvenance(ctx, "jwt", claims.MFAVerified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects actors whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := requestcontext.Actor(r.Context())
			if actor.IsZero() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role "+actor.Role+" may not perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
