package container

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// beanNamespace seeds the name-based UUIDs used as bean ids, so the same
// set of definitions gets the same ids on every run.
var beanNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/km-arc/go-arc/bean"))

// Registry holds the closed set of bean definitions. Registration is only
// possible until Freeze; afterwards the registry is read-only and safe for
// concurrent use without locking.
type Registry struct {
	mu     sync.Mutex
	beans  []*BeanDefinition
	seen   map[*BeanDefinition]bool
	strict bool
	frozen atomic.Bool
}

// NewRegistry creates an open registry. With strict set, beans sharing a
// type and qualifier set that resolution could not tell apart fail Freeze
// instead of failing resolution later.
func NewRegistry(strict bool) *Registry {
	return &Registry{
		seen:   make(map[*BeanDefinition]bool),
		strict: strict,
	}
}

// Register adds definitions. Problems with the definitions themselves are
// collected and reported by Freeze. A nil bean, or registering into a
// frozen registry, fails at once and adds nothing.
func (r *Registry) Register(beans ...Registrable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return &RegistrationError{Problems: []error{errors.New("registry is frozen; beans can only be registered during bootstrap")}}
	}
	for _, b := range beans {
		if v := reflect.ValueOf(b); b == nil || (v.Kind() == reflect.Pointer && v.IsNil()) {
			return &RegistrationError{Problems: []error{errors.New("nil bean registered")}}
		}
	}
	for _, b := range beans {
		def := b.Definition()
		if r.seen[def] {
			continue
		}
		r.seen[def] = true
		r.beans = append(r.beans, def)
	}
	return nil
}

// Freeze validates every definition, assigns ids and closes the registry.
// All problems are reported together in one *RegistrationError; on error
// the registry stays open.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return nil
	}

	var errs error
	for _, def := range r.beans {
		def.qualifiers = beanQualifiers(def.declared)
	}

	ordinals := make(map[string]int)
	byID := make(map[BeanID]*BeanDefinition, len(r.beans))
	for _, def := range r.beans {
		errs = multierr.Append(errs, r.validate(def))
		if !def.explicitID {
			sig := def.signature()
			def.id = stableID(sig, ordinals[sig])
			ordinals[sig]++
		}
		if prev, ok := byID[def.id]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: id %q already used by %s", def, def.id, prev))
			continue
		}
		byID[def.id] = def
	}
	if r.strict {
		errs = multierr.Append(errs, r.checkConflicts())
	}
	if errs != nil {
		return &RegistrationError{Problems: multierr.Errors(errs)}
	}

	for _, def := range r.beans {
		def.frozen.Store(true)
	}
	r.frozen.Store(true)
	return nil
}

func (r *Registry) validate(def *BeanDefinition) error {
	errs := multierr.Combine(def.problems...)
	if !def.scope.valid() {
		errs = multierr.Append(errs, fmt.Errorf("%s: invalid scope %d", def, int(def.scope)))
	}
	if def.startup && def.scope != ApplicationScoped {
		errs = multierr.Append(errs, fmt.Errorf("%s: only ApplicationScoped beans can be startup beans", def))
	}
	switch def.kind {
	case ProducerMethodBean, ProducerFieldBean:
		if def.produce == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: producer function is nil", def))
		}
		if def.declaring != nil && !r.seen[def.declaring] {
			errs = multierr.Append(errs, fmt.Errorf("%s: declaring bean %s is not registered", def, def.declaring))
		}
	default:
		if def.create == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: no constructor", def))
		}
	}
	return errs
}

// checkConflicts reports beans that share a type and a qualifier set and
// that resolution could not tell apart: two or more non-alternatives, or
// two or more alternatives tied at the top priority of their group.
func (r *Registry) checkConflicts() error {
	type key struct {
		t           reflect.Type
		qualifiers  string
		alternative bool
	}
	groups := make(map[key][]*BeanDefinition)
	var order []key
	for _, def := range r.beans {
		for _, t := range def.types {
			k := key{t: t, qualifiers: def.qualifiers.String(), alternative: def.alternative}
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], def)
		}
	}
	var errs error
	for _, k := range order {
		defs := groups[k]
		if k.alternative {
			defs = disambiguate(defs)
		}
		if len(defs) > 1 {
			errs = multierr.Append(errs, &AmbiguousResolutionError{
				Type:       k.t,
				Qualifiers: defs[0].qualifiers,
				Candidates: defs,
			})
		}
	}
	return errs
}

// Frozen reports whether bootstrap is over.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// Lookup returns the candidates for a type and qualifiers in registration
// order. It returns nil until the registry is frozen.
func (r *Registry) Lookup(t reflect.Type, qualifiers ...Qualifier) []*BeanDefinition {
	return r.lookup(t, requiredQualifiers(qualifiers))
}

func (r *Registry) lookup(t reflect.Type, required QualifierSet) []*BeanDefinition {
	if !r.frozen.Load() {
		return nil
	}
	var out []*BeanDefinition
	for _, def := range r.beans {
		if def.matches(t, required) {
			out = append(out, def)
		}
	}
	return out
}

// Beans returns every definition in registration order.
func (r *Registry) Beans() []*BeanDefinition {
	if r.frozen.Load() {
		return slices.Clone(r.beans)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.beans)
}

// Bean returns the definition with the given id.
func (r *Registry) Bean(id BeanID) (*BeanDefinition, bool) {
	for _, def := range r.Beans() {
		if def.id == id {
			return def, true
		}
	}
	return nil, false
}

func stableID(signature string, ordinal int) BeanID {
	if ordinal > 0 {
		signature = fmt.Sprintf("%s#%d", signature, ordinal)
	}
	return BeanID(uuid.NewSHA1(beanNamespace, []byte(signature)).String())
}
