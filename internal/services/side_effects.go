package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const sideEffectTimeout = 30 * time.Second

// SideEffects runs best-effort work off the request path. Failures are
// reported to the logger and never reach the caller.
type SideEffects struct {
	log zerolog.Logger
	wg  sync.WaitGroup
}

// NewSideEffects creates a runner reporting failures to logger.
func NewSideEffects(logger zerolog.Logger) *SideEffects {
	return &SideEffects{log: logger}
}

// Go starts fn on its own goroutine with a context detached from the caller.
func (s *SideEffects) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("effect", name).Str("panic", fmt.Sprint(r)).Msg("side effect panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Str("effect", name).Msg("side effect failed")
		}
	}()
}

// Wait blocks until every started side effect has finished.
func (s *SideEffects) Wait() {
	s.wg.Wait()
}
