package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

// PrincipalFromContext rebuilds the authenticated principal seeded by Auth.
func PrincipalFromContext(ctx context.Context) (policy.Principal, bool) {
	if ctx == nil {
		return policy.Principal{}, false
	}
	rawID, ok := ctx.Value(ctxUserID).(string)
	if !ok {
		return policy.Principal{}, false
	}
	rawRole, ok := ctx.Value(ctxRole).(string)
	if !ok {
		return policy.Principal{}, false
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return policy.Principal{}, false
	}
	role := enums.Role(rawRole)
	if !role.IsValid() {
		return policy.Principal{}, false
	}
	return policy.Principal{ID: id, Role: role}, true
}

// AccessIDFromContext returns the token's jti, used by logout to revoke the
// session.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal injects an authenticated principal, used by handler tests.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, p.ID.String())
	return context.WithValue(ctx, ctxRole, string(p.Role))
}

// WithAccessID injects the token jti, used by handler tests.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
