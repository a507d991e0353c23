// Package container is a contextual dependency-injection container.
//
// # Overview
//
// Beans are described up front with typed builders, registered during
// bootstrap, and looked up by type and qualifiers afterwards. Every bean has
// a scope that decides how many instances exist and who destroys them.
// Go has no constructor reflection, so constructors and producers are plain
// functions that pull their own dependencies through Inject.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register beans: c.Register(...) or providers.Register(&MyProvider{})
//  3. Start: c.Start(ctx), which freezes the registry
//  4. Look up beans, open request contexts
//  5. Shutdown: c.Shutdown(ctx)
//
// # Beans
//
//	// Dependent: a new instance per lookup, owned by the caller
//	c.Register(container.NewBean(func(cc *container.CreationalContext) (*Mailer, error) {
//	    return &Mailer{}, nil
//	}))
//
//	// One instance per container, created on first use
//	c.Register(container.NewBean(newCache).
//	    Scoped(container.ApplicationScoped).
//	    PreDestroy(func(c *Cache) error { return c.Close() }))
//
//	// Pre-built value
//	c.Register(container.Value(cfg))
//
//	// Interface type, qualifier, alternative
//	c.Register(container.NewBean(newS3Store).
//	    As(reflect.TypeFor[Store]()).
//	    Named("archive").
//	    Alternative(10))
//
// # Producers
//
//	factory := container.NewBean(newClientFactory)
//	clients := container.ProducerMethod(factory, func(f *ClientFactory, cc *container.CreationalContext) (*Client, error) {
//	    return f.Dial()
//	})
//	container.WithDisposer(clients, func(f *ClientFactory, cl *Client) error { return cl.Close() })
//	c.Register(factory, clients)
//
// A Dependent declaring bean is created for each producer (or disposer)
// call and destroyed right after it. A managed declaring bean is shared.
//
// # Lookups
//
//	h, err := container.Instance[*Client](ctx, c)
//	if err != nil {
//	    return err // unsatisfied or ambiguous
//	}
//	defer h.Destroy()
//	client, err := h.Get()
//
// Inside a constructor use Inject instead, so Dependent objects are
// destroyed together with the bean under construction and cycles are
// detected. That holds across goroutines too: when two lookups end up
// waiting on each other's constructions, the second one to wait fails with
// ErrCircularDependency. A lookup through the container from inside a
// constructor starts a new chain that the container cannot relate to the
// construction in progress, so it can deadlock.
//
// # Request scope
//
//	ctx, rc := c.BeginRequest(r.Context())
//	defer rc.End()
//
// There are no client proxies. A longer-lived bean that needs a
// RequestScoped one should look it up per call through a handle built from
// the request's context.Context.
package container
