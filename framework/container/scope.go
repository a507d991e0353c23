package container

// Scope decides how many instances of a bean may exist and when they die.
type Scope int

const (
	// Dependent beans get a fresh instance per lookup or injection. The
	// requester owns it and destroys it, directly or through its parent.
	Dependent Scope = iota

	// ApplicationScoped beans have one instance per container, destroyed
	// by Container.Shutdown.
	ApplicationScoped

	// RequestScoped beans have one instance per RequestContext, destroyed
	// when the request ends.
	RequestScoped
)

func (s Scope) String() string {
	switch s {
	case Dependent:
		return "Dependent"
	case ApplicationScoped:
		return "ApplicationScoped"
	case RequestScoped:
		return "RequestScoped"
	default:
		return "Unknown"
	}
}

// Managed reports whether instances of the scope live in a context store.
func (s Scope) Managed() bool {
	return s == ApplicationScoped || s == RequestScoped
}

func (s Scope) valid() bool {
	return s >= Dependent && s <= RequestScoped
}
