// Package metrics exports bean lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-arc/framework/container"
)

const namespace = "arc"

// Collector holds the container metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	InstancesCreated   *prometheus.CounterVec
	InstancesDestroyed *prometheus.CounterVec
	InstancesLive      *prometheus.GaugeVec
	RequestContexts    prometheus.Counter
}

// New creates a collector on its own registry, together with the Go
// runtime and process collectors.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		InstancesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bean_instances_created_total",
				Help:      "Total number of bean instances created",
			},
			[]string{"scope", "kind"},
		),
		InstancesDestroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bean_instances_destroyed_total",
				Help:      "Total number of bean instances destroyed",
			},
			[]string{"scope", "kind"},
		),
		InstancesLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bean_instances_live",
				Help:      "Bean instances created and not yet destroyed",
			},
			[]string{"scope"},
		),
		RequestContexts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_contexts_total",
				Help:      "Total number of request contexts started",
			},
		),
	}

	registry.MustRegister(
		c.InstancesCreated,
		c.InstancesDestroyed,
		c.InstancesLive,
		c.RequestContexts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Attach subscribes the collector to a container's lifecycle events. Attach
// before Start so startup beans are counted.
func (c *Collector) Attach(ctr *container.Container) {
	ctr.OnCreated(func(inst *container.ContextInstance) {
		def := inst.Bean()
		c.InstancesCreated.WithLabelValues(def.Scope().String(), def.Kind().String()).Inc()
		c.InstancesLive.WithLabelValues(def.Scope().String()).Inc()
	})
	ctr.OnDestroyed(func(inst *container.ContextInstance) {
		def := inst.Bean()
		c.InstancesDestroyed.WithLabelValues(def.Scope().String(), def.Kind().String()).Inc()
		c.InstancesLive.WithLabelValues(def.Scope().String()).Dec()
	})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
