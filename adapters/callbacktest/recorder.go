package callbacktest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tankgauravgt/pomegranate/callback"
	"github.com/tankgauravgt/pomegranate/train"
)

// Hook names recorded by the Recorder.
const (
	HookTrainingBegin = "on_training_begin"
	HookEpochEnd      = "on_epoch_end"
	HookTrainingEnd   = "on_training_end"
)

// Call is one recorded hook invocation.
type Call struct {
	Hook string
	Logs callback.Logs
}

// Recorder captures hook invocations in order and supports scripted
// failures for abort-path tests.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	binding callback.Binding
	bound   bool
	closed  int

	failHook  string
	failEpoch int
	failErr   error
}

var _ callback.Callback = (*Recorder)(nil)
var _ callback.Binder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{calls: make([]Call, 0)}
}

// FailOn makes the named hook return err. For HookEpochEnd the failure
// triggers only at the given epoch; other hooks ignore epoch.
func (r *Recorder) FailOn(hook string, epoch int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failHook = hook
	r.failEpoch = epoch
	r.failErr = err
}

func (r *Recorder) Bind(binding callback.Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.binding = binding
	r.bound = true
}

func (r *Recorder) OnTrainingBegin(context.Context) error {
	return r.record(HookTrainingBegin, callback.Logs{})
}

func (r *Recorder) OnEpochEnd(_ context.Context, logs callback.Logs) error {
	return r.record(HookEpochEnd, logs)
}

func (r *Recorder) OnTrainingEnd(_ context.Context, logs callback.Logs) error {
	return r.record(HookTrainingEnd, logs)
}

// Close records resource release; the trainer runs it on every exit path.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed++
	return nil
}

func (r *Recorder) record(hook string, logs callback.Logs) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Hook: hook, Logs: logs.Clone()})
	if r.failErr != nil && hook == r.failHook {
		if hook != HookEpochEnd || logs.Epoch == r.failEpoch {
			return r.failErr
		}
	}
	return nil
}

// Calls returns a snapshot of every recorded invocation, in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// EpochCalls returns only the recorded epoch-end invocations.
func (r *Recorder) EpochCalls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, len(r.calls))
	for _, call := range r.calls {
		if call.Hook == HookEpochEnd {
			out = append(out, call)
		}
	}
	return out
}

// Bound reports whether the trainer injected a binding, and the binding.
func (r *Recorder) Bound() (callback.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.binding, r.bound
}

// Closed reports how many times Close ran.
func (r *Recorder) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// CounterIDGenerator provides deterministic in-process session IDs.
type CounterIDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

var _ train.IDGenerator = (*CounterIDGenerator)(nil)

func NewCounterIDGenerator(prefix string) *CounterIDGenerator {
	if prefix == "" {
		prefix = "sess"
	}
	return &CounterIDGenerator{prefix: prefix}
}

func (g *CounterIDGenerator) NewSessionID(_ context.Context) (train.SessionID, error) {
	next := g.counter.Add(1)
	return train.SessionID(fmt.Sprintf("%s-%06d", g.prefix, next)), nil
}
