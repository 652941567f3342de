package services

import (
	"net/http"
	"strings"

	"contactos/internal/admin"
	apperrors "contactos/pkg/errors"
)

// StaffAuthMiddleware requires a bearer token of an active staff user on
// every request except those for publicPaths.
func StaffAuthMiddleware(auth *AuthService, publicPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range publicPaths {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				admin.WriteError(r.Context(), w, apperrors.New(apperrors.ErrCodeUnauthorized, "authorization header required"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				admin.WriteError(r.Context(), w, apperrors.New(apperrors.ErrCodeUnauthorized, "invalid authorization header format"))
				return
			}

			user, err := auth.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				admin.WriteError(r.Context(), w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(admin.WithUser(r.Context(), user)))
		})
	}
}
