package api

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
)

// Middleware resolves bearer tokens into a request-scoped identity
type Middleware struct {
	DB     databases.UserDatabase
	Secret string
}

// Auth verifies the bearer token and stores the caller identity on the
// request context. Session tokens are used as-is; legacy id-only tokens
// trigger a user lookup.
func (m Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		tokenString := bearerToken(r)
		if tokenString == "" {
			config.ErrorStatus("access denied, no token provided", http.StatusUnauthorized, w, nil)
			return
		}

		variant, err := DecodeToken(m.Secret, tokenString)
		if err != nil {
			zap.S().Debugw("rejected token", "url", r.URL.Path, "error", err)
			config.ErrorStatus("invalid or expired token", http.StatusForbidden, w, err)
			return
		}

		var identity Identity
		switch v := variant.(type) {
		case SessionToken:
			oid, err := primitive.ObjectIDFromHex(v.ID)
			if err != nil {
				config.ErrorStatus("invalid token format", http.StatusUnauthorized, w, err)
				return
			}
			identity = Identity{ID: oid, Role: v.Role, Email: v.Email}
		case LegacyToken:
			oid, err := primitive.ObjectIDFromHex(v.ID)
			if err != nil {
				config.ErrorStatus("invalid token format", http.StatusUnauthorized, w, err)
				return
			}
			ctx, cancel := WithQueryTimeout(r.Context())
			defer cancel()
			user, err := m.DB.FindOne(ctx, bson.M{"_id": oid})
			if err == mongo.ErrNoDocuments {
				config.ErrorStatus("user not found", http.StatusUnauthorized, w, err)
				return
			}
			if err != nil {
				config.ErrorStatus("failed to resolve user", http.StatusInternalServerError, w, err)
				return
			}
			identity = Identity{ID: user.ID, Role: user.Role, Email: user.Email, Name: user.Name}
		}

		next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), identity)))
	})
}

// RequireAdmin gates admin-only routes. Compose after Auth.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			config.ErrorStatus("not authenticated", http.StatusUnauthorized, w, nil)
			return
		}
		if !identity.IsAdmin() {
			config.ErrorStatus("admin access required", http.StatusForbidden, w, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
