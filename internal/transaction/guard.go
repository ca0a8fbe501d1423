package transaction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ReleaseFunc gives back one resource acquired during a transaction
type ReleaseFunc func() error

type releaseStep struct {
	name string
	fn   ReleaseFunc
}

// Guard holds the release steps of one invocation. Release runs them in reverse
// order (LIFO) exactly once, whatever path the invocation took.
type Guard struct {
	steps  []releaseStep
	mu     sync.Mutex
	logger *zerolog.Logger
}

// NewGuard creates an empty guard
func NewGuard(logger *zerolog.Logger) *Guard {
	return &Guard{
		steps:  make([]releaseStep, 0, 2),
		logger: logger,
	}
}

// Push registers a release step
func (g *Guard) Push(name string, fn ReleaseFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, releaseStep{name: name, fn: fn})
}

// Pending returns the number of steps not yet released
func (g *Guard) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.steps)
}

// Release runs every registered step in LIFO order and clears the stack.
// A failing step does not stop the remaining ones.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.steps) == 0 {
		return nil
	}

	var errs []error
	for i := len(g.steps) - 1; i >= 0; i-- {
		step := g.steps[i]
		if g.logger != nil {
			g.logger.Debug().Str("step", step.name).Msg("releasing")
		}
		if err := step.fn(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", step.name, err))
			if g.logger != nil {
				g.logger.Error().Err(err).Str("step", step.name).Msg("release failed")
			}
		}
	}

	g.steps = nil

	return errors.Join(errs...)
}
