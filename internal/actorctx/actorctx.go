// Package actorctx carries the authenticated principal on a context.Context.
package actorctx

import (
	"context"

	"github.com/geocoder89/campuserp/internal/domain/user"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(user.Principal)
	return p, ok && p.Identifier != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return "", false
	}
	// the admin principal has no stored record, so fall back to its name
	if p.UserID == "" {
		return p.Identifier, true
	}
	return p.UserID, true
}
