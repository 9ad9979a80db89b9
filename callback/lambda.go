package callback

import "context"

// LambdaHooks configures up to three standalone funcs as hook bodies.
// Nil entries default to no-ops.
type LambdaHooks struct {
	OnBegin func(ctx context.Context) error
	OnEpoch func(ctx context.Context, logs Logs) error
	OnEnd   func(ctx context.Context, logs Logs) error
}

// Lambda adapts plain funcs into a Callback, for one-off hooks that do not
// warrant a named type.
type Lambda struct {
	Base

	hooks LambdaHooks
}

var _ Callback = (*Lambda)(nil)

func NewLambda(hooks LambdaHooks) *Lambda {
	return &Lambda{hooks: hooks}
}

func (l *Lambda) OnTrainingBegin(ctx context.Context) error {
	if l.hooks.OnBegin == nil {
		return nil
	}
	return l.hooks.OnBegin(ctx)
}

func (l *Lambda) OnEpochEnd(ctx context.Context, logs Logs) error {
	if l.hooks.OnEpoch == nil {
		return nil
	}
	return l.hooks.OnEpoch(ctx, logs)
}

func (l *Lambda) OnTrainingEnd(ctx context.Context, logs Logs) error {
	if l.hooks.OnEnd == nil {
		return nil
	}
	return l.hooks.OnEnd(ctx, logs)
}
