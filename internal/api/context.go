package api

import (
	"context"

	"github.com/famvault/famvault/internal/family"
)

func withIdentity(ctx context.Context, ident *family.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// identityFrom returns the authenticated caller. Only reachable behind
// requireSession, so the value is always present.
func identityFrom(ctx context.Context) *family.Identity {
	return ctx.Value(identityKey).(*family.Identity)
}
