package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ActorKey is the context key for the authenticated operator.
const ActorKey contextKey = "actor"

// GetActor extracts the authenticated operator from the context.
// Returns the zero Actor if not found.
func GetActor(ctx context.Context) models.Actor {
	actor, _ := ctx.Value(ActorKey).(models.Actor)
	return actor
}

// WithActor returns a context carrying the given actor. Used by tests
// and by the auth middleware.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// RequireAuth returns a middleware that validates JWT bearer tokens and
// requires authentication. On success the operator's identity is added
// to the request context, where handlers pick it up as the audit actor.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, auth.ErrMissingToken)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			ctx := WithActor(r.Context(), models.Actor{
				ID:   claims.OperatorID,
				Name: claims.Name,
				Role: claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
