package container

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// ProducerMethod defines a bean whose instances come from calling fn on an
// instance of the declaring bean.
//
// A Dependent declaring instance is created for the call and destroyed as
// soon as fn returns; its lifecycle is not tied to the produced instance.
// A managed declaring instance is taken from its own context and is left
// alone.
//
//	factory := container.NewBean(newListFactory)
//	lists := container.ProducerMethod(factory, func(f *ListFactory, cc *container.CreationalContext) ([]string, error) {
//	    return f.Build(), nil
//	})
func ProducerMethod[T, D any](declaring *Bean[D], fn func(D, *CreationalContext) (T, error)) *Bean[T] {
	b := newBean[T](ProducerMethodBean)
	if declaring == nil {
		b.def.problem("%s: producer has no declaring bean", b.def)
	} else {
		b.def.declaring = declaring.def
	}
	if fn != nil {
		b.def.produce = func(decl any, cc *CreationalContext) (any, error) { return fn(decl.(D), cc) }
	}
	return b
}

// ProducerField defines a bean whose instances are read from the declaring
// instance. Declaring-instance rules are those of ProducerMethod.
func ProducerField[T, D any](declaring *Bean[D], field func(D) T) *Bean[T] {
	b := newBean[T](ProducerFieldBean)
	if declaring == nil {
		b.def.problem("%s: producer has no declaring bean", b.def)
	} else {
		b.def.declaring = declaring.def
	}
	if field != nil {
		b.def.produce = func(decl any, _ *CreationalContext) (any, error) { return field(decl.(D)), nil }
	}
	return b
}

// WithDisposer attaches a disposer to a producer bean. On destruction fn is
// called with a declaring instance obtained under the same rules as the
// producer, after the bean's pre-destroy callbacks.
func WithDisposer[T, D any](b *Bean[T], fn func(D, T) error) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		if d.declaring == nil {
			d.problem("%s: disposer on a bean without declaring bean", d)
			return
		}
		if want := reflect.TypeFor[D](); want != d.declaring.implType {
			d.problem("%s: disposer expects declaring type %s, got %s", d, want, d.declaring.implType)
			return
		}
		d.dispose = func(decl, inst any) error { return fn(decl.(D), inst.(T)) }
	})
}

// ── Invocation ────────────────────────────────────────────────────────────────

// produce runs the producer of def against its declaring instance.
func (m *ContextManager) produce(cc *CreationalContext, def *BeanDefinition) (any, error) {
	var value any
	err := m.withDeclaring(cc, def.declaring, func(decl any) error {
		v, err := def.produce(decl, cc)
		value = v
		return err
	})
	return value, err
}

// disposeWith runs the disposer of inst against a declaring instance.
func (m *ContextManager) disposeWith(inst *ContextInstance) error {
	cc := newCreationalContext(inst.cc.ctx, m.container, inst.bean, nil, nil)
	return m.withDeclaring(cc, inst.bean.declaring, func(decl any) error {
		return inst.bean.dispose(decl, inst.value)
	})
}

// withDeclaring obtains the declaring instance, hands it to fn, and
// destroys it afterwards when it is Dependent.
func (m *ContextManager) withDeclaring(cc *CreationalContext, declaring *BeanDefinition, fn func(any) error) error {
	inst, err := m.getOrCreate(cc.ctx, declaring, cc)
	if err != nil {
		return fmt.Errorf("obtain declaring bean %s: %w", declaring, err)
	}
	if declaring.scope == Dependent {
		defer func() {
			if err := m.Destroy(inst); err != nil {
				m.log.Warn("destroying transient declaring instance failed",
					zap.Stringer("bean", declaring), zap.Error(err))
			}
		}()
	}
	return fn(inst.value)
}
