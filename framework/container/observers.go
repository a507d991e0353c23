package container

import "sync"

// observers holds the lifecycle callbacks registered with OnCreated and
// OnDestroyed.
type observers struct {
	mu        sync.RWMutex
	created   []func(*ContextInstance)
	destroyed []func(*ContextInstance)
}

func (o *observers) onCreated(fn func(*ContextInstance)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, fn)
}

func (o *observers) onDestroyed(fn func(*ContextInstance)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = append(o.destroyed, fn)
}

func (o *observers) fireCreated(inst *ContextInstance) {
	o.mu.RLock()
	cbs := o.created
	o.mu.RUnlock()
	for _, cb := range cbs {
		cb(inst)
	}
}

func (o *observers) fireDestroyed(inst *ContextInstance) {
	o.mu.RLock()
	cbs := o.destroyed
	o.mu.RUnlock()
	for _, cb := range cbs {
		cb(inst)
	}
}
