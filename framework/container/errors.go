package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrRegistration       = errors.New("bean registration failed")
	ErrUnsatisfied        = errors.New("unsatisfied dependency")
	ErrAmbiguous          = errors.New("ambiguous dependency")
	ErrConstruction       = errors.New("bean construction failed")
	ErrUseAfterDestroy    = errors.New("instance used after destroy")
	ErrContextNotActive   = errors.New("context not active")
	ErrCircularDependency = errors.New("circular dependency")
	ErrNilInstance        = errors.New("bean produced a nil instance")
	ErrRegistryOpen       = errors.New("registry is not frozen")
)

// ── Bootstrap ─────────────────────────────────────────────────────────────────

// RegistrationError aggregates every problem found while freezing the
// registry. It is fatal: the container refuses to start.
type RegistrationError struct {
	Problems []error
}

func (e *RegistrationError) Error() string {
	if len(e.Problems) == 1 {
		return "arc: registration failed: " + e.Problems[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "arc: registration failed with %d problems:", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *RegistrationError) Unwrap() []error      { return e.Problems }
func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

// ── Resolution ────────────────────────────────────────────────────────────────

// UnsatisfiedResolutionError reports that no bean matches a lookup.
type UnsatisfiedResolutionError struct {
	Type       reflect.Type
	Qualifiers QualifierSet
}

func (e *UnsatisfiedResolutionError) Error() string {
	return fmt.Sprintf("arc: unsatisfied dependency for type %s with qualifiers %s", e.Type, e.Qualifiers)
}

func (e *UnsatisfiedResolutionError) Is(target error) bool { return target == ErrUnsatisfied }

// AmbiguousResolutionError reports several equally eligible beans.
type AmbiguousResolutionError struct {
	Type       reflect.Type
	Qualifiers QualifierSet
	Candidates []*BeanDefinition
}

func (e *AmbiguousResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "arc: ambiguous dependency for type %s with qualifiers %s; %d beans match:",
		e.Type, e.Qualifiers, len(e.Candidates))
	for _, c := range e.Candidates {
		b.WriteString("\n  - ")
		b.WriteString(c.String())
	}
	return b.String()
}

func (e *AmbiguousResolutionError) Is(target error) bool { return target == ErrAmbiguous }

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// ConstructionError wraps a failure of a constructor, producer or
// post-construct callback. The failed instance is never stored.
type ConstructionError struct {
	Bean  *BeanDefinition
	Phase string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("arc: %s of %s failed: %v", e.Phase, e.Bean, e.Err)
}

func (e *ConstructionError) Unwrap() error        { return e.Err }
func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }

// UseAfterDestroyError is returned by a handle whose instance is gone.
type UseAfterDestroyError struct {
	Bean *BeanDefinition
}

func (e *UseAfterDestroyError) Error() string {
	return fmt.Sprintf("arc: instance of %s used after destroy", e.Bean)
}

func (e *UseAfterDestroyError) Is(target error) bool { return target == ErrUseAfterDestroy }

// ContextNotActiveError is returned when a bean's scope has no live context,
// e.g. a RequestScoped lookup outside BeginRequest/End or any lookup after
// Shutdown.
type ContextNotActiveError struct {
	Scope Scope
}

func (e *ContextNotActiveError) Error() string {
	return fmt.Sprintf("arc: no active context for scope %s", e.Scope)
}

func (e *ContextNotActiveError) Is(target error) bool { return target == ErrContextNotActive }
