package admin

import (
	"context"

	"contactos/internal/domain"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated staff user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the staff user stored by WithUser.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*domain.User)
	return user, ok && user != nil
}
