package fittertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tankgauravgt/pomegranate/train"
)

// Step configures one fitting iteration in a scripted sequence.
type Step struct {
	LogProbability float64
	Err            error
}

// ScriptedFitter is a deterministic fitter for trainer tests. Baseline is
// the dataset log-likelihood before any step; each Step call consumes the
// next scripted entry.
type ScriptedFitter struct {
	mu       sync.Mutex
	baseline float64
	current  float64
	index    int
	steps    []Step
}

var _ train.Fitter = (*ScriptedFitter)(nil)

func NewScriptedFitter(baseline float64, steps ...Step) *ScriptedFitter {
	cloned := make([]Step, len(steps))
	copy(cloned, steps)
	return &ScriptedFitter{
		baseline: baseline,
		current:  baseline,
		steps:    cloned,
	}
}

// LogProbability distributes the current dataset log-likelihood evenly
// over the samples, so callbacks summing it recover the scripted value.
func (f *ScriptedFitter) LogProbability(X [][]float64) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(X) == 0 {
		return nil, nil
	}
	out := make([]float64, len(X))
	share := f.current / float64(len(X))
	for i := range out {
		out[i] = share
	}
	return out, nil
}

func (f *ScriptedFitter) Step(_ context.Context, _ [][]float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index >= len(f.steps) {
		return 0, fmt.Errorf("script exhausted at step %d", f.index+1)
	}
	current := f.steps[f.index]
	f.index++
	if current.Err != nil {
		return 0, current.Err
	}
	f.current = current.LogProbability
	return current.LogProbability, nil
}

// Steps reports how many scripted iterations have been consumed.
func (f *ScriptedFitter) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.index
}
