package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the bean definitions of one feature.
//
// Register runs during bootstrap and may only add definitions. Boot runs
// after the container has started, so every bean can be looked up there.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(r *container.Registry) error {
//	    return r.Register(container.NewBean(newSMTPMailer).
//	        Scoped(container.ApplicationScoped).
//	        As(reflect.TypeFor[Mailer]()))
//	}
//
//	func (p *MailProvider) Boot(ctx context.Context, c *container.Container) error {
//	    h, err := container.Instance[Mailer](ctx, c)
//	    ...
//	}
type ServiceProvider interface {
	// Register adds bean definitions. Do NOT look anything up here.
	Register(r *Registry) error

	// Boot is called once the container has started.
	Boot(ctx context.Context, c *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(r *container.Registry) error { ... }
type BaseProvider struct{}

func (BaseProvider) Boot(context.Context, *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers providers into a container and boots them
// once the container has started.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register calls provider.Register against the container's registry.
// Registering the same provider twice is a no-op; registering after Boot
// fails because the registry is frozen by then.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if provider == nil {
		return fmt.Errorf("register nil provider: %w", ErrRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Only comparable providers can be recognised a second time.
	dedupe := reflect.TypeOf(provider).Comparable()
	if dedupe && r.registered[provider] {
		return nil
	}
	if r.booted {
		return fmt.Errorf("register %T: %w", provider, ErrRegistration)
	}
	if err := provider.Register(r.app.Registry()); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	if dedupe {
		r.registered[provider] = true
	}
	r.providers = append(r.providers, provider)
	return nil
}

// Boot starts the container and then boots every provider in registration
// order. Boot errors of all providers are aggregated. Calling Boot again
// is a no-op.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booted {
		return nil
	}
	if err := r.app.Start(ctx); err != nil {
		return err
	}
	r.booted = true

	var errs error
	for _, p := range r.providers {
		if err := p.Boot(ctx, r.app); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("boot %T: %w", p, err))
		}
	}
	return errs
}

// Booted returns true if Boot() has been called successfully.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.providers...)
}
