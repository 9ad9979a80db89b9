package train

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tankgauravgt/pomegranate/callback"
)

// Fitter is one iterative model being fit. Step performs one full fitting
// iteration over the dataset and returns the post-step dataset
// log-likelihood sum; the trainer derives per-epoch improvement from
// consecutive Step results.
type Fitter interface {
	callback.Model
	Step(ctx context.Context, X [][]float64) (float64, error)
}

// SessionID is the stable identifier for one training session.
type SessionID string

// IDGenerator creates session IDs at the trainer boundary.
type IDGenerator interface {
	NewSessionID(ctx context.Context) (SessionID, error)
}

// uuidIDGenerator is the production default.
type uuidIDGenerator struct{}

var _ IDGenerator = uuidIDGenerator{}

func (uuidIDGenerator) NewSessionID(_ context.Context) (SessionID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new session id: %w", err)
	}
	return SessionID(id.String()), nil
}
