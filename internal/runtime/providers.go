package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// Ensure Providers implements ProviderRegistry
var _ driven.ProviderRegistry = (*Providers)(nil)

// Providers holds the configured identity providers and their readiness.
// A provider is registered as pending and becomes ready once its discovery succeeds.
// Thread-safe for concurrent access.
type Providers struct {
	mu      sync.RWMutex
	entries map[domain.ProviderType]*providerEntry

	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

type providerEntry struct {
	adapter driven.IdentityProvider
	ready   bool
}

// NewProviders creates an empty registry
func NewProviders(logger *slog.Logger) *Providers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Providers{
		entries:    make(map[domain.ProviderType]*providerEntry),
		logger:     logger,
		newBackOff: defaultBackOff,
	}
}

// WithBackOff replaces the retry policy used by Initialize
func (p *Providers) WithBackOff(newBackOff func() backoff.BackOff) *Providers {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.newBackOff = newBackOff
	return p
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	// The caller's context bounds the total time
	b.MaxElapsedTime = 0
	return b
}

// Register adds a provider in the pending state. Registering the same
// provider type again replaces the adapter and resets readiness.
func (p *Providers) Register(adapter driven.IdentityProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[adapter.Type()] = &providerEntry{adapter: adapter}
}

// Get returns a ready provider
func (p *Providers) Get(provider domain.ProviderType) (driven.IdentityProvider, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[provider]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	if !entry.ready {
		return nil, domain.ErrProviderNotReady
	}
	return entry.adapter, nil
}

// Ready reports whether every registered provider has completed discovery
func (p *Providers) Ready() bool {
	return len(p.Pending()) == 0
}

// Pending returns the registered providers that are not ready, sorted
func (p *Providers) Pending() []domain.ProviderType {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var pending []domain.ProviderType
	for t, entry := range p.entries {
		if !entry.ready {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	return pending
}

// Configured returns every registered provider, sorted
func (p *Providers) Configured() []domain.ProviderType {
	p.mu.RLock()
	defer p.mu.RUnlock()

	configured := make([]domain.ProviderType, 0, len(p.entries))
	for t := range p.entries {
		configured = append(configured, t)
	}
	sort.Slice(configured, func(i, j int) bool { return configured[i] < configured[j] })
	return configured
}

// Initialize discovers every pending provider concurrently, retrying each
// with backoff until it succeeds or ctx ends. Providers that succeed are
// marked ready even when others fail; failures are returned together.
func (p *Providers) Initialize(ctx context.Context) error {
	p.mu.RLock()
	pending := make([]driven.IdentityProvider, 0, len(p.entries))
	for _, entry := range p.entries {
		if !entry.ready {
			pending = append(pending, entry.adapter)
		}
	}
	newBackOff := p.newBackOff
	p.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		result *multierror.Error
	)

	for _, adapter := range pending {
		wg.Add(1)
		go func(adapter driven.IdentityProvider) {
			defer wg.Done()

			if err := p.discover(ctx, adapter, newBackOff()); err != nil {
				errMu.Lock()
				result = multierror.Append(result, fmt.Errorf("provider %s: %w", adapter.Type(), err))
				errMu.Unlock()
				return
			}
			p.markReady(adapter)
		}(adapter)
	}
	wg.Wait()

	return result.ErrorOrNil()
}

func (p *Providers) discover(ctx context.Context, adapter driven.IdentityProvider, b backoff.BackOff) error {
	provider := adapter.Type()
	start := time.Now()

	op := func() error {
		return adapter.Discover(ctx)
	}
	notify := func(err error, next time.Duration) {
		p.logger.Warn("provider discovery failed, retrying",
			"provider", provider,
			"error", err,
			"retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		p.logger.Error("provider discovery gave up",
			"provider", provider,
			"error", err,
			"elapsed", time.Since(start))
		return err
	}

	p.logger.Info("provider ready",
		"provider", provider,
		"elapsed", time.Since(start))
	return nil
}

func (p *Providers) markReady(adapter driven.IdentityProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A concurrent Register may have replaced the adapter
	if entry, ok := p.entries[adapter.Type()]; ok && entry.adapter == adapter {
		entry.ready = true
	}
}
