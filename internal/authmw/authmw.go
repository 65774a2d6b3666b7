// Package authmw provides HTTP middleware that derives the caller's
// identity from a signed JWT. Identities are minted by an external
// credential system; this middleware only verifies and decodes them.
package authmw

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linnemanlabs/redress/internal/complaint"
)

type ctxKey struct{}

// FromContext extracts the authenticated identity, if any.
func FromContext(ctx context.Context) (*complaint.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*complaint.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity. Exported for tests.
func WithIdentity(ctx context.Context, id *complaint.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Identity returns middleware that validates the Authorization bearer JWT
// (HMAC-signed) and stashes the decoded identity in the request context.
// Requests without a valid token are rejected with 401; role and ownership
// checks are the service's job, not this middleware's.
func Identity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(auth[len("Bearer "):], func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, `{"error":"invalid token claims"}`, http.StatusUnauthorized)
				return
			}

			ident, err := identityFromClaims(claims)
			if err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func identityFromClaims(claims jwt.MapClaims) (*complaint.Identity, error) {
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return nil, fmt.Errorf("token missing userId claim")
	}
	roleStr, _ := claims["role"].(string)
	role := complaint.Role(roleStr)
	switch role {
	case complaint.RoleUser, complaint.RoleDepartment, complaint.RoleAdmin:
	default:
		return nil, fmt.Errorf("token carries unknown role")
	}

	ident := &complaint.Identity{
		UserID: userID,
		Role:   role,
	}
	ident.Name, _ = claims["name"].(string)
	ident.Email, _ = claims["email"].(string)
	ident.Department, _ = claims["department"].(string)

	if role == complaint.RoleDepartment && ident.Department == "" {
		return nil, fmt.Errorf("department token missing department claim")
	}
	return ident, nil
}
