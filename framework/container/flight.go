package container

import "sync"

// chain identifies one creation chain: a lookup together with every
// construction it triggers through Inject and producers.
type chain struct{ _ byte }

func chainOf(cc *CreationalContext) *chain {
	if cc == nil {
		return new(chain)
	}
	return cc.chain
}

type flightKey struct {
	store *scopeContext
	bean  BeanID
}

// flight is one construction of a managed bean in progress. Other lookups
// of the same bean in the same context wait on done and share the result.
type flight struct {
	key   flightKey
	owner *chain
	done  chan struct{}
	inst  *ContextInstance
	err   error
}

// flights records the constructions in progress and which chain waits on
// which flight. Two chains waiting on each other's constructions are a
// cycle; the second one to wait gets ErrCircularDependency instead of
// blocking forever.
type flights struct {
	mu      sync.Mutex
	calls   map[flightKey]*flight
	waiting map[*chain]*flight
}

func newFlights() *flights {
	return &flights{
		calls:   make(map[flightKey]*flight),
		waiting: make(map[*chain]*flight),
	}
}

// join returns the flight for key. lead reports that no construction was in
// progress and the caller owns the new flight; it must land it.
func (fs *flights) join(key flightKey, me *chain) (f *flight, lead bool, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if cur, ok := fs.calls[key]; ok {
		if fs.reaches(cur.owner, me) {
			return nil, false, ErrCircularDependency
		}
		fs.waiting[me] = cur
		return cur, false, nil
	}
	f = &flight{key: key, owner: me, done: make(chan struct{})}
	fs.calls[key] = f
	return f, true, nil
}

// wait blocks until f has landed.
func (fs *flights) wait(f *flight, me *chain) {
	<-f.done
	fs.mu.Lock()
	delete(fs.waiting, me)
	fs.mu.Unlock()
}

func (fs *flights) land(f *flight) {
	fs.mu.Lock()
	delete(fs.calls, f.key)
	fs.mu.Unlock()
	close(f.done)
}

// reaches reports whether from is me, or waits on me through the owners of
// the flights it is blocked on. Callers hold fs.mu.
func (fs *flights) reaches(from, me *chain) bool {
	seen := make(map[*chain]bool)
	for c := from; c != nil && !seen[c]; {
		if c == me {
			return true
		}
		seen[c] = true
		f, ok := fs.waiting[c]
		if !ok {
			return false
		}
		c = f.owner
	}
	return false
}
