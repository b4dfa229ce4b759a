package httpapi

import (
	"context"

	"github.com/creditojus/creditojus/internal/domain/user"
)

type authContextKey string

const principalKey authContextKey = "principal"

func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey).(user.Principal)
	return p, ok
}
