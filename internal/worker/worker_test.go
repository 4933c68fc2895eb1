package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/memory"
	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStates is a StateStore whose sweeps always fail
type failingStates struct {
	mu     sync.Mutex
	sweeps int
}

func (f *failingStates) Issue(ctx context.Context, returnTo string, provider domain.ProviderType) (string, error) {
	return "", errors.New("not implemented")
}

func (f *failingStates) Consume(ctx context.Context, value string) (*domain.StateToken, error) {
	return nil, domain.ErrInvalidState
}

func (f *failingStates) Sweep(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 0, errors.New("sweep failed")
}

func (f *failingStates) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestNewSweeper_Defaults(t *testing.T) {
	s := NewSweeper(SweeperConfig{States: memory.NewStateStore()})

	if s.interval != DefaultSweepInterval {
		t.Errorf("expected interval %v, got %v", DefaultSweepInterval, s.interval)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
	if s.IsRunning() {
		t.Error("expected sweeper not running")
	}
}

func TestSweeper_RemovesExpiredStates(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	states := memory.NewStateStore().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := states.Issue(ctx, "https://fe.example", domain.ProviderGoogle); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	mu.Lock()
	now = now.Add(domain.StateTTL + time.Minute)
	mu.Unlock()

	s := NewSweeper(SweeperConfig{States: states, Logger: discardLogger(), Interval: 5 * time.Millisecond})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for states.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected expired states to be swept, %d left", states.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweeper_KeepsRunningAfterErrors(t *testing.T) {
	states := &failingStates{}
	s := NewSweeper(SweeperConfig{States: states, Logger: discardLogger(), Interval: 2 * time.Millisecond})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for states.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated sweeps, got %d", states.count())
		}
		time.Sleep(2 * time.Millisecond)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("expected sweeper stopped")
	}
}

func TestSweeper_StartTwice(t *testing.T) {
	s := NewSweeper(SweeperConfig{States: memory.NewStateStore(), Logger: discardLogger(), Interval: time.Hour})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected sweeper running")
	}

	s.Stop()
	s.Stop()
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(SweeperConfig{States: memory.NewStateStore(), Logger: discardLogger(), Interval: time.Hour})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}

func TestSweeper_RestartsAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	states := &failingStates{}
	s := NewSweeper(SweeperConfig{States: states, Logger: discardLogger(), Interval: 2 * time.Millisecond})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	s.Wait()

	if s.IsRunning() {
		t.Fatal("expected sweeper not running after context cancel")
	}

	before := states.count()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()

	if !s.IsRunning() {
		t.Fatal("expected sweeper running after restart")
	}

	deadline := time.Now().Add(2 * time.Second)
	for states.count() <= before {
		if time.Now().After(deadline) {
			t.Fatal("expected sweeps after restart")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
