// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
)

const IdentityKey contextKey = "identity"

type IdentityResolver interface {
	ResolveHeader(
		ctx context.Context,
		header string,
		required role.Role,
	) (*auth.Identity, error)
}

// Authenticate resolves the Authorization header against required and
// stores the resulting identity in the request context. Requests that
// fail are answered here and never reach next.
func Authenticate(
	resolver IdentityResolver,
	required role.Role,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.ResolveHeader(
				r.Context(),
				r.Header.Get("Authorization"),
				required,
			)
			if err != nil {
				LoggerFromContext(r.Context()).Debug("identity rejected",
					"required", required.String(),
					"error", err,
				)
				core.JSONError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticator returns a constructor for Authenticate bound to resolver,
// for handlers that register routes needing different roles.
func Authenticator(
	resolver IdentityResolver,
) func(required role.Role) func(http.Handler) http.Handler {
	return func(required role.Role) func(http.Handler) http.Handler {
		return Authenticate(resolver, required)
	}
}

func IdentityFromContext(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(IdentityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
