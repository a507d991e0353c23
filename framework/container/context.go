package container

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ContextInstance is a live object created for a bean. Managed-scope
// instances belong to their context; Dependent instances belong to
// whoever requested them.
type ContextInstance struct {
	bean      *BeanDefinition
	value     any
	cc        *CreationalContext
	store     *scopeContext
	createdAt time.Time
	destroyed atomic.Bool
}

func (i *ContextInstance) Bean() *BeanDefinition { return i.bean }
func (i *ContextInstance) Value() any            { return i.value }
func (i *ContextInstance) CreatedAt() time.Time  { return i.createdAt }
func (i *ContextInstance) Destroyed() bool       { return i.destroyed.Load() }

// ── Scope contexts ────────────────────────────────────────────────────────────

// scopeContext stores the instances of one managed context.
type scopeContext struct {
	scope Scope
	id    string

	mu        sync.Mutex
	instances map[BeanID]*ContextInstance
	order     []*ContextInstance
	ended     bool
}

func newScopeContext(scope Scope) *scopeContext {
	return &scopeContext{
		scope:     scope,
		id:        uuid.NewString(),
		instances: make(map[BeanID]*ContextInstance),
	}
}

// get returns the stored instance, or nil. An ended context still hands
// out the instances it has not destroyed yet, so disposers running during
// teardown can reach their declaring beans.
func (s *scopeContext) get(id BeanID) (*ContextInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst := s.instances[id]
	if s.ended && inst == nil {
		return nil, &ContextNotActiveError{Scope: s.scope}
	}
	return inst, nil
}

func (s *scopeContext) put(inst *ContextInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return &ContextNotActiveError{Scope: s.scope}
	}
	inst.store = s
	s.instances[inst.bean.id] = inst
	s.order = append(s.order, inst)
	return nil
}

func (s *scopeContext) remove(inst *ContextInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instances[inst.bean.id] == inst {
		delete(s.instances, inst.bean.id)
	}
	if i := slices.Index(s.order, inst); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// end marks the context inactive and hands back its instances in creation
// order. Only the first call gets them. The instances stay reachable until
// they are destroyed.
func (s *scopeContext) end() []*ContextInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	s.ended = true
	live := slices.Clone(s.order)
	return live
}

func (s *scopeContext) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// ── Request contexts ──────────────────────────────────────────────────────────

type requestContextKey struct{}

// RequestContext is one activation of the request scope. It is created by
// Container.BeginRequest and torn down in full by End.
type RequestContext struct {
	store   *scopeContext
	manager *ContextManager
}

// ID identifies the request context in logs.
func (rc *RequestContext) ID() string { return rc.store.id }

// Active reports whether End has not run yet.
func (rc *RequestContext) Active() bool {
	rc.store.mu.Lock()
	defer rc.store.mu.Unlock()
	return !rc.store.ended
}

// End destroys every RequestScoped instance of this request. Calling it
// again is a no-op.
func (rc *RequestContext) End() error {
	return rc.manager.destroyAll(rc.store)
}

// RequestFrom returns the request context attached to ctx, if any.
func RequestFrom(ctx context.Context) (*RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// ── Context manager ───────────────────────────────────────────────────────────

// ContextManager owns the contexts of a container and creates, stores and
// destroys contextual instances.
type ContextManager struct {
	container *Container
	app       *scopeContext
	log       *zap.Logger
	observers *observers
	flights   *flights
}

func newContextManager(c *Container, log *zap.Logger, obs *observers) *ContextManager {
	return &ContextManager{
		container: c,
		app:       newScopeContext(ApplicationScoped),
		log:       log,
		observers: obs,
		flights:   newFlights(),
	}
}

func (m *ContextManager) beginRequest(ctx context.Context) (context.Context, *RequestContext) {
	if ctx == nil {
		ctx = context.Background()
	}
	rc := &RequestContext{store: newScopeContext(RequestScoped), manager: m}
	m.log.Debug("request context started", zap.String("request_context", rc.ID()))
	return context.WithValue(ctx, requestContextKey{}, rc), rc
}

// GetOrCreate returns the instance of def for the applicable context. For
// managed scopes an existing instance is reused and concurrent callers
// share a single construction; Dependent beans always get a new instance,
// which the caller must destroy.
func (m *ContextManager) GetOrCreate(ctx context.Context, def *BeanDefinition) (*ContextInstance, error) {
	return m.getOrCreate(ctx, def, nil)
}

func (m *ContextManager) getOrCreate(ctx context.Context, def *BeanDefinition, parent *CreationalContext) (*ContextInstance, error) {
	if parent != nil && parent.creating(def) {
		return nil, &ConstructionError{Bean: def, Phase: "creation", Err: ErrCircularDependency}
	}
	switch def.scope {
	case ApplicationScoped:
		return m.contextual(ctx, m.app, def, parent)
	case RequestScoped:
		rc, ok := RequestFrom(ctx)
		if !ok || rc.manager != m {
			return nil, &ContextNotActiveError{Scope: RequestScoped}
		}
		return m.contextual(ctx, rc.store, def, parent)
	default:
		return m.create(ctx, def, parent, chainOf(parent))
	}
}

func (m *ContextManager) contextual(ctx context.Context, sc *scopeContext, def *BeanDefinition, parent *CreationalContext) (*ContextInstance, error) {
	me := chainOf(parent)
	for {
		if inst, err := sc.get(def.id); inst != nil || err != nil {
			return inst, err
		}
		f, lead, err := m.flights.join(flightKey{store: sc, bean: def.id}, me)
		if err != nil {
			return nil, &ConstructionError{Bean: def, Phase: "creation", Err: err}
		}
		if lead {
			func() {
				defer m.flights.land(f)
				f.inst, f.err = m.createIn(ctx, sc, def, parent, me)
			}()
			return f.inst, f.err
		}
		m.flights.wait(f, me)
		switch {
		case f.err != nil:
			return nil, f.err
		case f.inst != nil:
			return f.inst, nil
		}
	}
}

// createIn creates an instance for a managed context. A context that
// ended meanwhile destroys the new instance again.
func (m *ContextManager) createIn(ctx context.Context, sc *scopeContext, def *BeanDefinition, parent *CreationalContext, owner *chain) (*ContextInstance, error) {
	if inst, err := sc.get(def.id); inst != nil || err != nil {
		return inst, err
	}
	inst, err := m.create(ctx, def, parent, owner)
	if err != nil {
		return nil, err
	}
	if err := sc.put(inst); err != nil {
		_ = m.Destroy(inst)
		return nil, err
	}
	return inst, nil
}

// create runs the creation strategy and post-construct callbacks. On any
// failure the dependents created so far are released and nothing is kept.
func (m *ContextManager) create(ctx context.Context, def *BeanDefinition, parent *CreationalContext, owner *chain) (*ContextInstance, error) {
	cc := newCreationalContext(ctx, m.container, def, parent, owner)
	value, err := m.construct(cc, def)
	if err == nil && isNil(value) {
		err = ErrNilInstance
	}
	if err != nil {
		_ = cc.release()
		return nil, &ConstructionError{Bean: def, Phase: phaseOf(def), Err: err}
	}

	inst := &ContextInstance{bean: def, value: value, cc: cc, createdAt: time.Now()}
	for _, cb := range def.postConstruct {
		if err := guard(func() error { return cb(value) }); err != nil {
			_ = cc.release()
			return nil, &ConstructionError{Bean: def, Phase: "post-construct", Err: err}
		}
	}

	m.log.Debug("bean instance created", zap.Stringer("bean", def), zap.String("id", string(def.id)))
	m.observers.fireCreated(inst)
	return inst, nil
}

func (m *ContextManager) construct(cc *CreationalContext, def *BeanDefinition) (value any, err error) {
	err = guard(func() error {
		if def.declaring != nil {
			value, err = m.produce(cc, def)
		} else {
			value, err = def.create(cc)
		}
		return err
	})
	return value, err
}

// Destroy removes inst from its context, then runs its pre-destroy
// callbacks once, then its disposer, then destroys its dependent objects.
// Later calls are no-ops. Callback errors are aggregated and do not stop
// the remaining callbacks.
//
// The instance leaves its context before any callback runs: a lookup that
// arrives during a slow teardown gets a new instance while the old one is
// still being destroyed.
func (m *ContextManager) Destroy(inst *ContextInstance) error {
	if inst == nil || !inst.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	if inst.store != nil {
		inst.store.remove(inst)
	}

	def := inst.bean
	var errs error
	for _, cb := range def.preDestroy {
		if err := guard(func() error { return cb(inst.value) }); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("pre-destroy of %s: %w", def, err))
		}
	}
	if def.dispose != nil {
		if err := guard(func() error { return m.disposeWith(inst) }); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("disposer of %s: %w", def, err))
		}
	}
	errs = multierr.Append(errs, inst.cc.release())

	if errs != nil {
		m.log.Warn("bean destruction reported errors", zap.Stringer("bean", def), zap.Error(errs))
	} else {
		m.log.Debug("bean instance destroyed", zap.Stringer("bean", def), zap.String("id", string(def.id)))
	}
	m.observers.fireDestroyed(inst)
	return errs
}

// destroyAll ends a context and destroys its instances, newest first.
func (m *ContextManager) destroyAll(sc *scopeContext) error {
	live := sc.end()
	var errs error
	for i := len(live) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, m.Destroy(live[i]))
	}
	m.log.Debug("context destroyed",
		zap.Stringer("scope", sc.scope), zap.String("context", sc.id), zap.Int("instances", len(live)))
	return errs
}

func phaseOf(def *BeanDefinition) string {
	switch def.kind {
	case ProducerMethodBean, ProducerFieldBean:
		return "producer"
	default:
		return "constructor"
	}
}

// guard turns a panic in user code into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
