package core

import "context"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   string
	TenantID string
	Roles    []string
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the zero Actor for unauthenticated calls.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

func userID(ctx context.Context) string {
	if id := ActorFromContext(ctx).UserID; id != "" {
		return id
	}
	return "system"
}
