package container_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-arc/framework/container"
)

// ── stub beans ────────────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type french struct{}

func (french) Greet() string { return "bonjour" }

type german struct{}

func (german) Greet() string { return "hallo" }

// tracked records its lifecycle.
type tracked struct {
	constructed bool
	destroyed   bool
}

// journal collects lifecycle events in order.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// started registers beans into a fresh container and starts it.
func started(t *testing.T, beans ...container.Registrable) *container.Container {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Register(beans...))
	require.NoError(t, c.Start(context.Background()))
	return c
}

// get looks up T and returns its value plus the handle that owns it.
func get[T any](t *testing.T, ctx context.Context, c *container.Container, qs ...container.Qualifier) (T, *container.InstanceHandle[T]) {
	t.Helper()
	h, err := container.Instance[T](ctx, c, qs...)
	require.NoError(t, err)
	v, err := h.Get()
	require.NoError(t, err)
	return v, h
}

func newTracked(*container.CreationalContext) (*tracked, error) {
	return &tracked{}, nil
}
