package container

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container ties the registry, the resolver and the context manager
// together. There is no global container: callers hold a *Container and
// pass it where lookups happen.
//
// Lifecycle:
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register beans (directly or through service providers)
//  3. Start: freezes the registry and creates startup beans
//  4. Serve: lookups, request contexts
//  5. Shutdown: destroys the application context
type Container struct {
	registry  *Registry
	resolver  *Resolver
	contexts  *ContextManager
	observers *observers
	log       *zap.Logger

	startMu sync.Mutex
	started bool
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logger *zap.Logger
	strict bool
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrictRegistration turns ambiguous type+qualifier registrations into
// a RegistrationError at Start instead of an AmbiguousResolutionError at
// lookup time.
func WithStrictRegistration() Option {
	return func(o *options) { o.strict = true }
}

// New creates a container in its bootstrap phase.
func New(opts ...Option) *Container {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.Named("arc")
	c := &Container{
		registry:  NewRegistry(o.strict),
		observers: &observers{},
		log:       log,
	}
	c.resolver = NewResolver(c.registry)
	c.contexts = newContextManager(c, log, c.observers)
	return c
}

// ── Bootstrap ─────────────────────────────────────────────────────────────────

// Register adds bean definitions. Only possible before Start.
func (c *Container) Register(beans ...Registrable) error {
	return c.registry.Register(beans...)
}

// Registry exposes the bean registry.
func (c *Container) Registry() *Registry { return c.registry }

// Start freezes the registry and creates startup beans. Registration
// problems are reported all at once in a *RegistrationError. Calling Start
// again is a no-op.
func (c *Container) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return nil
	}
	if err := c.registry.Freeze(); err != nil {
		c.log.Error("bean registration failed", zap.Error(err))
		return err
	}
	c.started = true

	beans := c.registry.Beans()
	var errs error
	startup := 0
	for _, def := range beans {
		if !def.startup {
			continue
		}
		startup++
		if _, err := c.contexts.GetOrCreate(ctx, def); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	c.log.Info("container started", zap.Int("beans", len(beans)), zap.Int("startup_beans", startup))
	return errs
}

// Started reports whether Start succeeded.
func (c *Container) Started() bool {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	return c.started
}

// Shutdown destroys every ApplicationScoped instance, newest first. The
// application context cannot be reactivated afterwards.
func (c *Container) Shutdown(context.Context) error {
	err := c.contexts.destroyAll(c.contexts.app)
	if err != nil {
		c.log.Warn("container shutdown reported errors", zap.Error(err))
	} else {
		c.log.Info("container shut down")
	}
	return err
}

// ── Lookups ───────────────────────────────────────────────────────────────────

// Resolve returns the bean definition for a type and qualifiers.
func (c *Container) Resolve(t reflect.Type, qualifiers ...Qualifier) (*BeanDefinition, error) {
	return c.resolver.Resolve(t, qualifiers...)
}

// GetOrCreate returns the contextual instance of def. Dependent instances
// are owned by the caller, who must pass them to Destroy.
func (c *Container) GetOrCreate(ctx context.Context, def *BeanDefinition) (*ContextInstance, error) {
	return c.contexts.GetOrCreate(ctx, def)
}

// Destroy destroys a contextual instance. It is idempotent.
func (c *Container) Destroy(inst *ContextInstance) error {
	return c.contexts.Destroy(inst)
}

// Contexts exposes the context manager.
func (c *Container) Contexts() *ContextManager { return c.contexts }

// Beans returns every registered definition in registration order.
func (c *Container) Beans() []*BeanDefinition { return c.registry.Beans() }

// Live returns how many ApplicationScoped instances currently exist.
func (c *Container) Live() int { return c.contexts.app.size() }

// ── Request scope ─────────────────────────────────────────────────────────────

// BeginRequest activates a new request context and returns a context.Context
// carrying it. The caller must call End on the returned RequestContext.
//
//	ctx, rc := c.BeginRequest(r.Context())
//	defer rc.End()
func (c *Container) BeginRequest(ctx context.Context) (context.Context, *RequestContext) {
	return c.contexts.beginRequest(ctx)
}

// ── Observers ─────────────────────────────────────────────────────────────────

// OnCreated registers a callback fired after an instance has been created
// and its post-construct callbacks have run.
func (c *Container) OnCreated(fn func(*ContextInstance)) {
	c.observers.onCreated(fn)
}

// OnDestroyed registers a callback fired after an instance was destroyed.
func (c *Container) OnDestroyed(fn func(*ContextInstance)) {
	c.observers.onDestroyed(fn)
}
