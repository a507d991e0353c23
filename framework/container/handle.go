package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// InstanceHandle is what callers hold instead of a raw reference. The bean
// is resolved when the handle is created; the instance is created lazily
// by the first Get and reused until Destroy.
type InstanceHandle[T any] struct {
	container *Container
	ctx       context.Context
	bean      *BeanDefinition

	mu        sync.Mutex
	inst      *ContextInstance
	value     T
	destroyed bool
}

// Instance resolves T and returns a handle for it. Resolution errors are
// returned here; construction errors are returned by Get.
//
//	h, err := container.Instance[*Greeter](ctx, c)
//	if err != nil {
//	    return err
//	}
//	defer h.Destroy()
//	greeter, err := h.Get()
func Instance[T any](ctx context.Context, c *Container, qualifiers ...Qualifier) (*InstanceHandle[T], error) {
	def, err := c.Resolve(reflect.TypeFor[T](), qualifiers...)
	if err != nil {
		return nil, err
	}
	return &InstanceHandle[T]{container: c, ctx: ctx, bean: def}, nil
}

// Bean returns the resolved definition.
func (h *InstanceHandle[T]) Bean() *BeanDefinition { return h.bean }

// Get returns the instance, creating it on first use.
func (h *InstanceHandle[T]) Get() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	if h.destroyed {
		return zero, &UseAfterDestroyError{Bean: h.bean}
	}
	if h.inst != nil {
		if h.inst.Destroyed() {
			return zero, &UseAfterDestroyError{Bean: h.bean}
		}
		return h.value, nil
	}

	inst, err := h.container.contexts.GetOrCreate(h.ctx, h.bean)
	if err != nil {
		return zero, err
	}
	v, ok := inst.value.(T)
	if !ok {
		_ = h.container.contexts.Destroy(inst)
		return zero, fmt.Errorf("arc: instance of %s is a %T, not %s", h.bean, inst.value, reflect.TypeFor[T]())
	}
	h.inst, h.value = inst, v
	return v, nil
}

// MustGet is Get that panics on error.
func (h *InstanceHandle[T]) MustGet() T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Destroy destroys the instance obtained through this handle, if any. For
// managed scopes this removes the instance from its context, so the next
// lookup creates a new one. Only the first call has an effect.
func (h *InstanceHandle[T]) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	inst := h.inst
	h.inst = nil
	var zero T
	h.value = zero
	h.mu.Unlock()

	return h.container.contexts.Destroy(inst)
}
