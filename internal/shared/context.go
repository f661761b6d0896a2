package shared

import "context"

// Actor is the resolved identity supplied by the upstream gateway. The
// ledger core trusts it and never authenticates on its own; company scoping
// of every operation derives from CompanyID.
type Actor struct {
	UserID    int64
	CompanyID int64
	Role      string
}

type actorContextKey struct{}

// ContextWithActor stores the acting identity on the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the acting identity, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok && actor.CompanyID != 0
}
