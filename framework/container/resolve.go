package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Resolver picks the single bean that satisfies a typed lookup.
//
// Candidates are the beans with a type assignable to the requested one and
// a qualifier set containing every requested qualifier (Default when none
// is given). With several candidates, alternatives beat non-alternatives
// and the highest priority wins among alternatives; anything still tied is
// ambiguous. Outcomes are memoised, so a lookup resolves the same way for
// the lifetime of the registry.
type Resolver struct {
	registry *Registry
	cache    sync.Map // resolutionKey → resolution
}

type resolutionKey struct {
	t          reflect.Type
	qualifiers string
}

type resolution struct {
	bean *BeanDefinition
	err  error
}

// NewResolver creates a resolver over a registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns the bean for t and qualifiers, or an
// *UnsatisfiedResolutionError / *AmbiguousResolutionError.
func (r *Resolver) Resolve(t reflect.Type, qualifiers ...Qualifier) (*BeanDefinition, error) {
	if t == nil {
		return nil, fmt.Errorf("arc: resolve called with a nil type")
	}
	if !r.registry.Frozen() {
		return nil, fmt.Errorf("arc: resolve %s: %w", t, ErrRegistryOpen)
	}
	required := requiredQualifiers(qualifiers)
	key := resolutionKey{t: t, qualifiers: required.String()}
	if cached, ok := r.cache.Load(key); ok {
		res := cached.(resolution)
		return res.bean, res.err
	}
	bean, err := r.resolve(t, required)
	actual, _ := r.cache.LoadOrStore(key, resolution{bean: bean, err: err})
	res := actual.(resolution)
	return res.bean, res.err
}

func (r *Resolver) resolve(t reflect.Type, required QualifierSet) (*BeanDefinition, error) {
	candidates := r.registry.lookup(t, required)
	switch len(candidates) {
	case 0:
		return nil, &UnsatisfiedResolutionError{Type: t, Qualifiers: required}
	case 1:
		return candidates[0], nil
	}
	winners := disambiguate(candidates)
	if len(winners) == 1 {
		return winners[0], nil
	}
	return nil, &AmbiguousResolutionError{Type: t, Qualifiers: required, Candidates: winners}
}

// disambiguate narrows candidates to alternatives of the highest priority.
// Without alternatives every candidate is returned.
func disambiguate(candidates []*BeanDefinition) []*BeanDefinition {
	var alternatives []*BeanDefinition
	for _, c := range candidates {
		if c.alternative {
			alternatives = append(alternatives, c)
		}
	}
	if len(alternatives) == 0 {
		return candidates
	}
	best := alternatives[0].priority
	for _, a := range alternatives[1:] {
		best = max(best, a.priority)
	}
	var winners []*BeanDefinition
	for _, a := range alternatives {
		if a.priority == best {
			winners = append(winners, a)
		}
	}
	return winners
}
