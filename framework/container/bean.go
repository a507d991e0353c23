package container

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"
)

// BeanID is the stable synthetic identity of a bean definition.
type BeanID string

// Kind tells how a bean's instances come into being.
type Kind int

const (
	ClassBean Kind = iota
	ProducerMethodBean
	ProducerFieldBean
	SyntheticBean
)

func (k Kind) String() string {
	switch k {
	case ClassBean:
		return "Class"
	case ProducerMethodBean:
		return "ProducerMethod"
	case ProducerFieldBean:
		return "ProducerField"
	case SyntheticBean:
		return "Synthetic"
	default:
		return "Unknown"
	}
}

type (
	createFunc   func(cc *CreationalContext) (any, error)
	produceFunc  func(declaring any, cc *CreationalContext) (any, error)
	disposeFunc  func(declaring any, instance any) error
	callbackFunc func(instance any) error
)

// BeanDefinition describes one bean: its types, qualifiers, scope, creation
// strategy and lifecycle callbacks. Definitions are built with NewBean,
// ProducerMethod, ProducerField or Value and become immutable once the
// registry is frozen.
type BeanDefinition struct {
	id         BeanID
	explicitID bool
	kind       Kind

	implType reflect.Type
	types    []reflect.Type

	declared   []Qualifier
	qualifiers QualifierSet

	scope       Scope
	alternative bool
	priority    int
	startup     bool

	create    createFunc
	produce   produceFunc
	dispose   disposeFunc
	declaring *BeanDefinition

	postConstruct []callbackFunc
	preDestroy    []callbackFunc

	// problems found while building, reported by Registry.Freeze
	problems []error
	frozen   atomic.Bool
}

func (d *BeanDefinition) ID() BeanID                 { return d.id }
func (d *BeanDefinition) Kind() Kind                 { return d.kind }
func (d *BeanDefinition) Type() reflect.Type         { return d.implType }
func (d *BeanDefinition) Types() []reflect.Type      { return slices.Clone(d.types) }
func (d *BeanDefinition) Qualifiers() QualifierSet   { return slices.Clone(d.qualifiers) }
func (d *BeanDefinition) Scope() Scope               { return d.scope }
func (d *BeanDefinition) Alternative() bool          { return d.alternative }
func (d *BeanDefinition) Priority() int              { return d.priority }
func (d *BeanDefinition) Startup() bool              { return d.startup }
func (d *BeanDefinition) Declaring() *BeanDefinition { return d.declaring }

func (d *BeanDefinition) String() string {
	s := fmt.Sprintf("%s bean %s (%s %s)", d.kind, d.implType, d.scope, d.qualifiers)
	if d.declaring != nil {
		s += " declared by " + d.declaring.implType.String()
	}
	return s
}

// matches reports whether the bean is a candidate for a lookup.
func (d *BeanDefinition) matches(t reflect.Type, required QualifierSet) bool {
	if !d.qualifiers.ContainsAll(required) {
		return false
	}
	for _, bt := range d.types {
		if bt.AssignableTo(t) {
			return true
		}
	}
	return false
}

// signature identifies the definition independently of registration order.
func (d *BeanDefinition) signature() string {
	var b strings.Builder
	b.WriteString(d.kind.String())
	b.WriteByte('|')
	b.WriteString(typeName(d.implType))
	b.WriteByte('|')
	b.WriteString(d.qualifiers.String())
	if d.declaring != nil {
		b.WriteString("|<")
		b.WriteString(d.declaring.signature())
		b.WriteByte('>')
	}
	return b.String()
}

func (d *BeanDefinition) problem(format string, args ...any) {
	d.problems = append(d.problems, fmt.Errorf(format, args...))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Builder ───────────────────────────────────────────────────────────────────

// Registrable is anything a Registry accepts.
type Registrable interface {
	Definition() *BeanDefinition
}

// Bean is the typed builder for a BeanDefinition.
//
//	counter := container.NewBean(func(cc *container.CreationalContext) (*Counter, error) {
//	    return &Counter{}, nil
//	}).Scoped(container.ApplicationScoped).
//	    PreDestroy(func(c *Counter) error { return c.Flush() })
//
//	c.Register(counter)
type Bean[T any] struct {
	def *BeanDefinition
}

func newBean[T any](kind Kind) *Bean[T] {
	t := reflect.TypeFor[T]()
	return &Bean[T]{def: &BeanDefinition{
		kind:     kind,
		implType: t,
		types:    []reflect.Type{t},
		scope:    Dependent,
	}}
}

// NewBean defines a bean created by calling ctor. The constructor may
// obtain its own dependencies through Inject on the given context.
func NewBean[T any](ctor func(cc *CreationalContext) (T, error)) *Bean[T] {
	b := newBean[T](ClassBean)
	if ctor != nil {
		b.def.create = func(cc *CreationalContext) (any, error) { return ctor(cc) }
	}
	return b
}

// Value defines an ApplicationScoped bean backed by an existing value.
//
//	c.Register(container.Value(cfg))
func Value[T any](v T) *Bean[T] {
	b := newBean[T](SyntheticBean)
	b.def.scope = ApplicationScoped
	b.def.create = func(*CreationalContext) (any, error) { return v, nil }
	return b
}

// Definition returns the definition being built.
func (b *Bean[T]) Definition() *BeanDefinition { return b.def }

func (b *Bean[T]) mutate(fn func(d *BeanDefinition)) *Bean[T] {
	if b.def.frozen.Load() {
		panic(fmt.Sprintf("container: %s modified after registry freeze", b.def))
	}
	fn(b.def)
	return b
}

// ID overrides the synthetic id.
func (b *Bean[T]) ID(id string) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		d.id = BeanID(id)
		d.explicitID = id != ""
	})
}

// Scoped sets the bean's scope. Beans are Dependent unless told otherwise.
func (b *Bean[T]) Scoped(s Scope) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) { d.scope = s })
}

// Qualified adds qualifiers.
func (b *Bean[T]) Qualified(qs ...Qualifier) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) { d.declared = append(d.declared, qs...) })
}

// Named is shorthand for Qualified(Named(name)).
func (b *Bean[T]) Named(name string) *Bean[T] {
	return b.Qualified(Named(name))
}

// As adds bean types, typically interfaces T implements.
//
//	container.NewBean(newSMTPMailer).As(reflect.TypeFor[Mailer]())
func (b *Bean[T]) As(types ...reflect.Type) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		for _, t := range types {
			if t == nil {
				d.problem("%s: nil bean type", d)
				continue
			}
			if !d.implType.AssignableTo(t) {
				d.problem("%s: %s is not assignable to declared type %s", d, d.implType, t)
				continue
			}
			if !slices.Contains(d.types, t) {
				d.types = append(d.types, t)
			}
		}
	})
}

// Alternative marks the bean as preferred over non-alternatives; among
// alternatives the highest priority wins.
func (b *Bean[T]) Alternative(priority int) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		d.alternative = true
		d.priority = priority
	})
}

// Startup asks Container.Start to create the instance eagerly. Only
// ApplicationScoped beans may be startup beans.
func (b *Bean[T]) Startup() *Bean[T] {
	return b.mutate(func(d *BeanDefinition) { d.startup = true })
}

// PostConstruct appends a callback run once after creation.
func (b *Bean[T]) PostConstruct(fn func(T) error) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		d.postConstruct = append(d.postConstruct, func(v any) error { return fn(v.(T)) })
	})
}

// PreDestroy appends a callback run once before destruction. Callbacks run
// in the order they were added.
func (b *Bean[T]) PreDestroy(fn func(T) error) *Bean[T] {
	return b.mutate(func(d *BeanDefinition) {
		d.preDestroy = append(d.preDestroy, func(v any) error { return fn(v.(T)) })
	})
}
