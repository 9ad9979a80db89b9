package callback

import "context"

// Model is the read-only view a callback gets of the trainer's in-progress
// model. LogProbability evaluates already-fitted state over arbitrary data
// and must not mutate fitted parameters.
type Model interface {
	LogProbability(X [][]float64) ([]float64, error)
}

// Params is an opaque configuration mapping supplied by the trainer.
// Callbacks treat it as read-only; the trainer passes a clone.
type Params map[string]any

// CloneParams returns a shallow copy safe to hand across the binding boundary.
func CloneParams(in Params) Params {
	if in == nil {
		return nil
	}
	out := make(Params, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

// Binding carries the trainer-owned references injected into a callback
// after construction and before OnTrainingBegin.
type Binding struct {
	Model  Model
	Params Params
}

// Binder is implemented by callbacks that want the trainer to inject a
// Binding during registration. Callbacks that never read the model can
// skip it.
type Binder interface {
	Bind(binding Binding)
}

// Callback observes an iterative fitting session it does not control.
// Hooks are invoked synchronously, in registration order, on a single
// goroutine; a hook may block and that latency is attributed to the
// session. A non-nil error from any hook aborts the entire session.
type Callback interface {
	// OnTrainingBegin is called once, before the first epoch.
	OnTrainingBegin(ctx context.Context) error
	// OnEpochEnd is called once per completed epoch, after that epoch's
	// statistics are finalized. Logs is a value copy; keep fields, not
	// references, when retaining it.
	OnEpochEnd(ctx context.Context, logs Logs) error
	// OnTrainingEnd is called exactly once, after the final epoch or an
	// early-stop condition. Logs repeats the last epoch's values with
	// session aggregates.
	OnTrainingEnd(ctx context.Context, logs Logs) error
}

// Base is an embeddable no-op Callback with trainer-injected references.
// Embed it and override only the hooks you need.
type Base struct {
	Model  Model
	Params Params
}

var _ Callback = (*Base)(nil)
var _ Binder = (*Base)(nil)

func (b *Base) Bind(binding Binding) {
	b.Model = binding.Model
	b.Params = binding.Params
}

func (*Base) OnTrainingBegin(context.Context) error     { return nil }
func (*Base) OnEpochEnd(context.Context, Logs) error    { return nil }
func (*Base) OnTrainingEnd(context.Context, Logs) error { return nil }
