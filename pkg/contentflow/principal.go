package contentflow

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// WithPrincipal returns a context carrying p as the acting caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextPrincipalProvider reads the principal from the request context.
type ContextPrincipalProvider struct{}

// CurrentPrincipal returns ErrUnauthenticated when no principal was attached.
func (ContextPrincipalProvider) CurrentPrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID == uuid.Nil || p.TenantID == uuid.Nil {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}
