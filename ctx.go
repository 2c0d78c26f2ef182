package idle

import (
	"context"
	"fmt"
)

var coordinatorCtxKey = &contextKey{"coordinator"}

type contextKey struct {
	name string
}

// WithContext sets the Coordinator in the given context. Consumers receive
// the coordinator by reference through their call chain; there is no
// ambient singleton.
func WithContext(ctx context.Context, c *Coordinator) context.Context {
	return context.WithValue(ctx, coordinatorCtxKey, c)
}

// FromContext finds the coordinator in the context. Requesting published
// state outside a coordinator scope is a wiring bug, so the miss surfaces
// as ErrNoCoordinator rather than a default state.
func FromContext(ctx context.Context) (*Coordinator, error) {
	c, ok := ctx.Value(coordinatorCtxKey).(*Coordinator)
	if !ok || c == nil {
		return nil, ErrNoCoordinator
	}
	return c, nil
}

// MustFromContext is FromContext for mount points where a missing
// coordinator is unrecoverable.
func MustFromContext(ctx context.Context) *Coordinator {
	c, err := FromContext(ctx)
	if err != nil {
		panic(fmt.Sprintf(
			"go-idle: coordinator not found in context: %v\nWrap the request context with idle.WithContext at the session mount point.",
			err,
		))
	}
	return c
}
