package middleware

import (
	internaljwt "clean-care-backend/internal/jwt"
	"context"
	"net/http"
)

type identityKey struct{}

// ValidateJWTMiddleware accepts requests carrying a valid bearer token for
// role and stores the caller's identity in the request context.
func ValidateJWTMiddleware(role internaljwt.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := internaljwt.FromBearer(r.Header.Get("Authorization"))
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := internaljwt.ParseToken(tokenString, role)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}
	}
}

func WithIdentity(ctx context.Context, identity internaljwt.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (internaljwt.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(internaljwt.Identity)
	return identity, ok
}

var ValidateCitizenJWT = ValidateJWTMiddleware(internaljwt.RoleCitizen)
var ValidateAdminJWT = ValidateJWTMiddleware(internaljwt.RoleAdmin)
