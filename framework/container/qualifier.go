package container

import (
	"slices"
	"strings"
)

// Qualifier narrows a typed lookup to the beans that carry it.
type Qualifier struct {
	Name  string
	Value string
}

// Built-in qualifiers. Every bean carries Any; a bean that declares no
// qualifier other than Named also carries Default.
var (
	Default = Qualifier{Name: "Default"}
	Any     = Qualifier{Name: "Any"}
)

const namedQualifier = "Named"

// Named returns the qualifier used for name-based lookups.
func Named(name string) Qualifier {
	return Qualifier{Name: namedQualifier, Value: name}
}

// NewQualifier builds a custom qualifier; value may be empty.
//
//	primary := container.NewQualifier("Primary", "")
//	eu      := container.NewQualifier("Region", "eu-west-1")
func NewQualifier(name, value string) Qualifier {
	return Qualifier{Name: name, Value: value}
}

func (q Qualifier) String() string {
	if q.Value == "" {
		return "@" + q.Name
	}
	return "@" + q.Name + "(" + q.Value + ")"
}

// QualifierSet is a sorted, duplicate-free set of qualifiers.
type QualifierSet []Qualifier

func newQualifierSet(qs ...Qualifier) QualifierSet {
	set := make(QualifierSet, 0, len(qs))
	for _, q := range qs {
		if !set.Contains(q) {
			set = append(set, q)
		}
	}
	slices.SortFunc(set, func(a, b Qualifier) int {
		return strings.Compare(a.String(), b.String())
	})
	return set
}

// Contains reports whether q is in the set.
func (s QualifierSet) Contains(q Qualifier) bool {
	return slices.Contains(s, q)
}

// ContainsAll reports whether every qualifier of other is in the set.
func (s QualifierSet) ContainsAll(other QualifierSet) bool {
	for _, q := range other {
		if !s.Contains(q) {
			return false
		}
	}
	return true
}

func (s QualifierSet) String() string {
	parts := make([]string, len(s))
	for i, q := range s {
		parts[i] = q.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// beanQualifiers normalises the qualifiers a bean declares.
func beanQualifiers(declared []Qualifier) QualifierSet {
	explicit := false
	for _, q := range declared {
		if q.Name != namedQualifier && q != Any && q != Default {
			explicit = true
			break
		}
	}
	all := append(slices.Clone(declared), Any)
	if !explicit {
		all = append(all, Default)
	}
	return newQualifierSet(all...)
}

// requiredQualifiers normalises the qualifiers of a lookup; an empty
// request means Default.
func requiredQualifiers(requested []Qualifier) QualifierSet {
	if len(requested) == 0 {
		return QualifierSet{Default}
	}
	return newQualifierSet(requested...)
}
