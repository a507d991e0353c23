package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-arc/framework/config"
	"github.com/km-arc/go-arc/framework/container"
	gohttp "github.com/km-arc/go-arc/framework/http"
	"github.com/km-arc/go-arc/framework/logging"
	"github.com/km-arc/go-arc/framework/metrics"
	"github.com/km-arc/go-arc/framework/providers"
	"github.com/km-arc/go-arc/framework/routing"
)

// Version is reported by the CLI and the startup log.
const Version = "0.1.0"

// Application is the top-level application container.
// It embeds the bean Container and ProviderRegistry so user code can
// call app.Register(), container.Instance[T](ctx, app.Container) directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config  *config.Config
	log     *zap.Logger
	router  *routing.Router
	metrics *metrics.Collector
}

// New loads configuration from the environment (and envFiles) and builds
// the application.
func New(envFiles ...string) (*Application, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return NewWith(cfg, log)
}

// NewWith builds the application from an explicit configuration and
// logger and registers the framework providers.
func NewWith(cfg *config.Config, log *zap.Logger) (*Application, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []container.Option{container.WithLogger(log)}
	if cfg.Container.StrictRegistration {
		opts = append(opts, container.WithStrictRegistration())
	}
	c := container.New(opts...)

	collector := metrics.New()
	collector.Attach(c)

	router := routing.New(log)
	router.Middleware(gohttp.RequestScope(c, log, func(*container.RequestContext) {
		collector.RequestContexts.Inc()
	}))

	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		log:       log,
		router:    router,
		metrics:   collector,
	}

	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: log},
		&providers.RoutingServiceProvider{Router: router},
		&providers.MetricsServiceProvider{Collector: collector},
	} {
		if err := app.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot starts the container and runs the Boot() phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

func (a *Application) Config() *config.Config      { return a.config }
func (a *Application) Logger() *zap.Logger         { return a.log }
func (a *Application) Router() *routing.Router     { return a.router }
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Handler boots the application if needed and returns its HTTP handler.
func (a *Application) Handler(ctx context.Context) (http.Handler, error) {
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			return nil, err
		}
	}
	return a.router, nil
}

// Run boots the application (if needed) and serves HTTP until ctx is
// cancelled. The server is then drained within HTTP.ShutdownTimeout and the
// application context is destroyed.
func (a *Application) Run(ctx context.Context) error {
	handler, err := a.Handler(ctx)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server started",
			zap.String("app", a.config.App.Name),
			zap.String("addr", srv.Addr),
			zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(srv)
	})
	return g.Wait()
}

func (a *Application) shutdown(srv *http.Server) error {
	a.log.Info("shutting down", zap.Duration("timeout", a.config.HTTP.ShutdownTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), a.config.HTTP.ShutdownTimeout)
	defer cancel()

	var errs error
	if err := srv.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("container shutdown: %w", err))
	}
	return errs
}

// Environment returns App.Env.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.config.IsLocal() }
func (a *Application) IsProduction() bool  { return a.config.IsProduction() }
func (a *Application) IsTesting() bool     { return a.config.IsTesting() }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
