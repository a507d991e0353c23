package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// CreationalContext accompanies the construction of one instance. It gives
// constructors and producers access to the container and records the
// Dependent objects they obtain, which are destroyed together with the
// instance.
type CreationalContext struct {
	ctx       context.Context
	container *Container
	bean      *BeanDefinition
	parent    *CreationalContext
	chain     *chain

	mu         sync.Mutex
	dependents []*ContextInstance
}

func newCreationalContext(ctx context.Context, c *Container, bean *BeanDefinition, parent *CreationalContext, owner *chain) *CreationalContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if owner == nil {
		owner = chainOf(parent)
	}
	return &CreationalContext{ctx: ctx, container: c, bean: bean, parent: parent, chain: owner}
}

// Context returns the context.Context of the lookup that triggered creation.
func (cc *CreationalContext) Context() context.Context { return cc.ctx }

// Container returns the owning container.
func (cc *CreationalContext) Container() *Container { return cc.container }

// Bean returns the definition being created.
func (cc *CreationalContext) Bean() *BeanDefinition { return cc.bean }

// creating reports whether def is already under construction in this chain.
func (cc *CreationalContext) creating(def *BeanDefinition) bool {
	for c := cc; c != nil; c = c.parent {
		if c.bean == def {
			return true
		}
	}
	return false
}

func (cc *CreationalContext) addDependent(inst *ContextInstance) {
	cc.mu.Lock()
	cc.dependents = append(cc.dependents, inst)
	cc.mu.Unlock()
}

// release destroys the recorded dependents, newest first.
func (cc *CreationalContext) release() error {
	cc.mu.Lock()
	deps := cc.dependents
	cc.dependents = nil
	cc.mu.Unlock()

	var errs error
	for i := len(deps) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, cc.container.contexts.Destroy(deps[i]))
	}
	return errs
}

// Inject obtains a dependency while constructing a bean. Dependent
// instances obtained this way are destroyed with the bean being built.
//
//	func newGreeter(cc *container.CreationalContext) (*Greeter, error) {
//	    clock, err := container.Inject[Clock](cc)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Greeter{clock: clock}, nil
//	}
func Inject[T any](cc *CreationalContext, qualifiers ...Qualifier) (T, error) {
	var zero T
	def, err := cc.container.Resolve(reflect.TypeFor[T](), qualifiers...)
	if err != nil {
		return zero, err
	}
	inst, err := cc.container.contexts.getOrCreate(cc.ctx, def, cc)
	if err != nil {
		return zero, err
	}
	if def.scope == Dependent {
		cc.addDependent(inst)
	}
	v, ok := inst.value.(T)
	if !ok {
		return zero, fmt.Errorf("arc: instance of %s is a %T, not %s", def, inst.value, reflect.TypeFor[T]())
	}
	return v, nil
}

// MustInject is Inject that panics on error; the panic surfaces as a
// ConstructionError of the bean being built.
func MustInject[T any](cc *CreationalContext, qualifiers ...Qualifier) T {
	v, err := Inject[T](cc, qualifiers...)
	if err != nil {
		panic(err)
	}
	return v
}
