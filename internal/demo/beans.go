// Package demo is the sample application served by `arc serve`. It shows
// each scope, a producer with qualifiers and a startup bean.
package demo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-arc/framework/container"
)

// Salutation is a greeting word for one language.
type Salutation string

// Phrasebook declares one Salutation producer per language.
type Phrasebook struct {
	English Salutation
	French  Salutation
}

// HitCounter counts greetings for the lifetime of the application.
type HitCounter struct {
	hits atomic.Int64
	log  *zap.Logger
}

func (h *HitCounter) Inc() int64 { return h.hits.Add(1) }

// Visit lives for one HTTP request.
type Visit struct {
	ID      string
	Started time.Time
}

// Greeter builds greetings.
type Greeter struct {
	counter *HitCounter
}

func (g *Greeter) Greet(s Salutation, name string) (string, int64) {
	if name == "" {
		name = "world"
	}
	return fmt.Sprintf("%s, %s", s, name), g.counter.Inc()
}

// ── Definitions ───────────────────────────────────────────────────────────────

// Beans returns the demo's bean definitions.
func Beans() []container.Registrable {
	phrasebook := container.NewBean(func(*container.CreationalContext) (*Phrasebook, error) {
		return &Phrasebook{English: "hello", French: "bonjour"}, nil
	}).Scoped(container.ApplicationScoped)

	english := container.ProducerField(phrasebook, func(p *Phrasebook) Salutation { return p.English }).
		Named("en")
	french := container.ProducerField(phrasebook, func(p *Phrasebook) Salutation { return p.French }).
		Named("fr")

	counter := container.NewBean(func(cc *container.CreationalContext) (*HitCounter, error) {
		log, err := container.Inject[*zap.Logger](cc)
		if err != nil {
			return nil, err
		}
		return &HitCounter{log: log.Named("demo")}, nil
	}).Scoped(container.ApplicationScoped).Startup().
		PreDestroy(func(h *HitCounter) error {
			h.log.Info("greetings served", zap.Int64("total", h.hits.Load()))
			return nil
		})

	greeter := container.NewBean(func(cc *container.CreationalContext) (*Greeter, error) {
		counter, err := container.Inject[*HitCounter](cc)
		if err != nil {
			return nil, err
		}
		return &Greeter{counter: counter}, nil
	})

	visit := container.NewBean(newVisit).Scoped(container.RequestScoped)

	return []container.Registrable{phrasebook, english, french, counter, greeter, visit}
}

func newVisit(cc *container.CreationalContext) (*Visit, error) {
	id := middleware.GetReqID(cc.Context())
	if id == "" {
		if rc, ok := container.RequestFrom(cc.Context()); ok {
			id = rc.ID()
		}
	}
	return &Visit{ID: id, Started: time.Now()}, nil
}

// lookup gets a bean and the function that releases it. Only Dependent
// instances are destroyed on release; managed ones belong to their context.
func lookup[T any](ctx context.Context, c *container.Container, qs ...container.Qualifier) (T, func(), error) {
	var zero T
	h, err := container.Instance[T](ctx, c, qs...)
	if err != nil {
		return zero, nil, err
	}
	v, err := h.Get()
	if err != nil {
		return zero, nil, err
	}
	release := func() {}
	if h.Bean().Scope() == container.Dependent {
		release = func() { _ = h.Destroy() }
	}
	return v, release, nil
}
