package service

import "context"

type actorKey struct{}

// WithActor attaches the identity of the caller to ctx. It is recorded on
// stock movements.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the caller identity stored by WithActor
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
