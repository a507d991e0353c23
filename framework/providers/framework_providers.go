package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-arc/framework/config"
	"github.com/km-arc/go-arc/framework/container"
	gohttp "github.com/km-arc/go-arc/framework/http"
	"github.com/km-arc/go-arc/framework/metrics"
	"github.com/km-arc/go-arc/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider exposes the loaded configuration as a bean.
//
// Beans:
//   - *config.Config (ApplicationScoped, id "config")
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(r *container.Registry) error {
	if p.Config == nil {
		return fmt.Errorf("config provider: no configuration")
	}
	return r.Register(container.Value(p.Config).ID("config"))
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider exposes the application logger as a bean.
//
// Beans:
//   - *zap.Logger (ApplicationScoped, id "logger")
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(r *container.Registry) error {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return r.Register(container.Value(log).ID("logger"))
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router and, outside
// production, the bean diagnostics endpoints.
//
// Beans:
//   - *routing.Router (ApplicationScoped, id "router")
//
// Routes (unless App.Env is production):
//   - GET /_arc/beans
//   - GET /_arc/beans/{id}
type RoutingServiceProvider struct {
	Router *routing.Router
}

func (p *RoutingServiceProvider) Register(r *container.Registry) error {
	if p.Router == nil {
		return fmt.Errorf("routing provider: no router")
	}
	return r.Register(container.Value(p.Router).ID("router"))
}

func (p *RoutingServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	cfg, err := lookup[*config.Config](ctx, c)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return nil
	}
	p.Router.Prefix("/_arc", func(d *routing.Router) {
		d.Get("/beans", gohttp.BeansHandler(c))
		d.Get("/beans/{id}", gohttp.BeanHandler(c))
	})
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider exposes the Prometheus collector as a bean and
// serves it on Metrics.Path when metrics are enabled.
//
// Beans:
//   - *metrics.Collector (ApplicationScoped, id "metrics")
type MetricsServiceProvider struct {
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(r *container.Registry) error {
	if p.Collector == nil {
		return fmt.Errorf("metrics provider: no collector")
	}
	return r.Register(container.Value(p.Collector).ID("metrics"))
}

func (p *MetricsServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	cfg, err := lookup[*config.Config](ctx, c)
	if err != nil {
		return err
	}
	if !cfg.Metrics.Enabled {
		return nil
	}
	router, err := lookup[*routing.Router](ctx, c)
	if err != nil {
		return err
	}
	router.Handle(cfg.Metrics.Path, p.Collector.Handler())
	return nil
}

// lookup fetches an ApplicationScoped framework bean. Handles of managed
// beans need no Destroy.
func lookup[T any](ctx context.Context, c *container.Container) (T, error) {
	h, err := container.Instance[T](ctx, c)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Get()
}
