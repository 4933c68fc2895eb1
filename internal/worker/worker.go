package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// DefaultSweepInterval is how often expired states are removed
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically removes expired login states.
// Consume rejects expired states on its own; sweeping only bounds memory
// held by abandoned logins.
type Sweeper struct {
	states   driven.StateStore
	logger   *slog.Logger
	interval time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	States   driven.StateStore
	Logger   *slog.Logger
	Interval time.Duration // Time between sweeps
}

// NewSweeper creates a new state sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		states:   cfg.States,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.Info("state sweeper starting", "interval", s.interval)

	go func() {
		defer close(done)
		s.loop(ctx, stop)

		// A cancelled context ends the run; clear the flag so Start can run it again
		s.mu.Lock()
		if s.doneCh == done {
			s.running = false
		}
		s.mu.Unlock()
	}()

	return nil
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("state sweeper stopped")
}

// Wait blocks until the sweeper stops.
func (s *Sweeper) Wait() {
	s.mu.RLock()
	done := s.doneCh
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// IsRunning returns whether the sweeper is currently running.
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.states.Sweep(ctx)
	if err != nil {
		s.logger.Error("failed to sweep expired states", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("swept expired states", "removed", removed)
	}
}
