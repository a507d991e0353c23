package container_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-arc/framework/container"
)

// ── Dependent ─────────────────────────────────────────────────────────────────

func TestDependent_DistinctInstances(t *testing.T) {
	c := started(t, container.NewBean(newTracked))
	ctx := context.Background()

	a, _ := get[*tracked](t, ctx, c)
	b, _ := get[*tracked](t, ctx, c)
	assert.NotSame(t, a, b)
}

func TestDependent_DestroyedWithParent(t *testing.T) {
	type parent struct{ child *tracked }

	var children []*tracked
	child := container.NewBean(func(*container.CreationalContext) (*tracked, error) {
		tr := &tracked{}
		children = append(children, tr)
		return tr, nil
	}).PreDestroy(func(tr *tracked) error {
		tr.destroyed = true
		return nil
	})
	par := container.NewBean(func(cc *container.CreationalContext) (*parent, error) {
		ch, err := container.Inject[*tracked](cc)
		if err != nil {
			return nil, err
		}
		return &parent{child: ch}, nil
	})
	c := started(t, child, par)

	p, h := get[*parent](t, context.Background(), c)
	require.Len(t, children, 1)
	assert.Same(t, children[0], p.child)
	assert.False(t, p.child.destroyed)

	require.NoError(t, h.Destroy())
	assert.True(t, p.child.destroyed)
}

// ── ApplicationScoped ─────────────────────────────────────────────────────────

func TestApplicationScoped_SingleInstanceSinglePostConstruct(t *testing.T) {
	var postConstructs atomic.Int32
	c := started(t, container.NewBean(newTracked).
		Scoped(container.ApplicationScoped).
		PostConstruct(func(tr *tracked) error {
			postConstructs.Add(1)
			tr.constructed = true
			return nil
		}))
	ctx := context.Background()

	a, _ := get[*tracked](t, ctx, c)
	b, _ := get[*tracked](t, ctx, c)
	assert.Same(t, a, b)
	assert.True(t, a.constructed)
	assert.EqualValues(t, 1, postConstructs.Load())
	assert.Equal(t, 1, c.Live())
}

func TestApplicationScoped_ConcurrentCreation(t *testing.T) {
	var constructions, postConstructs atomic.Int32
	c := started(t, container.NewBean(func(*container.CreationalContext) (*tracked, error) {
		constructions.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &tracked{}, nil
	}).Scoped(container.ApplicationScoped).PostConstruct(func(*tracked) error {
		postConstructs.Add(1)
		return nil
	}))
	def, err := c.Resolve(reflect.TypeFor[*tracked]())
	require.NoError(t, err)

	const workers = 32
	got := make([]*tracked, workers)
	start := make(chan struct{})
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			inst, err := c.GetOrCreate(context.Background(), def)
			if err != nil {
				return err
			}
			got[i] = inst.Value().(*tracked)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, constructions.Load())
	assert.EqualValues(t, 1, postConstructs.Load())
	for _, tr := range got {
		assert.Same(t, got[0], tr)
	}
}

func TestApplicationScoped_DestroyViaHandleRemovesInstance(t *testing.T) {
	var preDestroys atomic.Int32
	c := started(t, container.NewBean(newTracked).
		Scoped(container.ApplicationScoped).
		PreDestroy(func(*tracked) error {
			preDestroys.Add(1)
			return nil
		}))
	ctx := context.Background()

	first, h := get[*tracked](t, ctx, c)
	require.NoError(t, h.Destroy())
	require.NoError(t, h.Destroy())
	assert.EqualValues(t, 1, preDestroys.Load())

	_, err := h.Get()
	assert.ErrorIs(t, err, container.ErrUseAfterDestroy)

	second, _ := get[*tracked](t, ctx, c)
	assert.NotSame(t, first, second)
}

func TestApplicationScoped_LookupDuringTeardownGetsNewInstance(t *testing.T) {
	tearingDown := make(chan struct{})
	release := make(chan struct{})
	c := started(t, container.NewBean(newTracked).
		Scoped(container.ApplicationScoped).
		PreDestroy(func(tr *tracked) error {
			close(tearingDown)
			<-release
			tr.destroyed = true
			return nil
		}))
	ctx := context.Background()

	first, h := get[*tracked](t, ctx, c)
	var g errgroup.Group
	g.Go(h.Destroy)
	<-tearingDown

	second, _ := get[*tracked](t, ctx, c)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, c.Live())

	close(release)
	require.NoError(t, g.Wait())
	assert.True(t, first.destroyed)
	assert.False(t, second.destroyed)
	assert.Equal(t, 1, c.Live())
}

func TestApplicationScoped_Shutdown(t *testing.T) {
	j := &journal{}
	first := container.NewBean(func(*container.CreationalContext) (*english, error) {
		return &english{}, nil
	}).Scoped(container.ApplicationScoped).PreDestroy(func(*english) error {
		j.add("english")
		return nil
	})
	second := container.NewBean(func(*container.CreationalContext) (*french, error) {
		return &french{}, nil
	}).Scoped(container.ApplicationScoped).PreDestroy(func(*french) error {
		j.add("french")
		return errors.New("flush failed")
	})
	c := started(t, first, second)
	ctx := context.Background()

	_, enHandle := get[*english](t, ctx, c)
	get[*french](t, ctx, c)

	err := c.Shutdown(ctx)
	require.Error(t, err, "pre-destroy errors are reported")
	assert.Contains(t, err.Error(), "flush failed")
	assert.Equal(t, []string{"french", "english"}, j.all())
	assert.Equal(t, 0, c.Live())

	_, err = enHandle.Get()
	assert.ErrorIs(t, err, container.ErrUseAfterDestroy)

	h, err := container.Instance[*english](ctx, c)
	require.NoError(t, err, "resolution still works")
	_, err = h.Get()
	assert.ErrorIs(t, err, container.ErrContextNotActive)
}

// ── Lifecycle callbacks ───────────────────────────────────────────────────────

func TestPreDestroy_RunsInOrderAndSurvivesErrors(t *testing.T) {
	j := &journal{}
	c := started(t, container.NewBean(newTracked).
		PreDestroy(func(*tracked) error {
			j.add("first")
			return errors.New("boom")
		}).
		PreDestroy(func(*tracked) error { panic("second panics") }).
		PreDestroy(func(*tracked) error {
			j.add("third")
			return nil
		}))

	_, h := get[*tracked](t, context.Background(), c)
	err := h.Destroy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "second panics")
	assert.Equal(t, []string{"first", "third"}, j.all())
}

func TestConstruction_FailureIsNotStored(t *testing.T) {
	var calls atomic.Int32
	c := started(t, container.NewBean(func(*container.CreationalContext) (*tracked, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("database unavailable")
		}
		return &tracked{}, nil
	}).Scoped(container.ApplicationScoped))
	ctx := context.Background()

	h, err := container.Instance[*tracked](ctx, c)
	require.NoError(t, err)
	_, err = h.Get()
	require.ErrorIs(t, err, container.ErrConstruction)

	var ce *container.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "constructor", ce.Phase)
	assert.Equal(t, 0, c.Live())

	v, err := h.Get()
	require.NoError(t, err, "the next call starts fresh")
	assert.NotNil(t, v)
	assert.Equal(t, 1, c.Live())
}

func TestConstruction_Errors(t *testing.T) {
	tests := []struct {
		name      string
		bean      *container.Bean[*tracked]
		wantPhase string
		wantErr   error
	}{
		{
			name: "panic",
			bean: container.NewBean(func(*container.CreationalContext) (*tracked, error) {
				panic("kaboom")
			}),
			wantPhase: "constructor",
		},
		{
			name: "nil instance",
			bean: container.NewBean(func(*container.CreationalContext) (*tracked, error) {
				return nil, nil
			}),
			wantPhase: "constructor",
			wantErr:   container.ErrNilInstance,
		},
		{
			name: "post-construct",
			bean: container.NewBean(newTracked).PostConstruct(func(*tracked) error {
				return errors.New("not ready")
			}),
			wantPhase: "post-construct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := started(t, tt.bean)
			h, err := container.Instance[*tracked](context.Background(), c)
			require.NoError(t, err)

			_, err = h.Get()
			var ce *container.ConstructionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantPhase, ce.Phase)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConstruction_CircularDependency(t *testing.T) {
	type ping struct{}
	type pong struct{}

	c := started(t,
		container.NewBean(func(cc *container.CreationalContext) (*ping, error) {
			_, err := container.Inject[*pong](cc)
			return &ping{}, err
		}).Scoped(container.ApplicationScoped),
		container.NewBean(func(cc *container.CreationalContext) (*pong, error) {
			_, err := container.Inject[*ping](cc)
			return &pong{}, err
		}),
	)

	h, err := container.Instance[*ping](context.Background(), c)
	require.NoError(t, err)
	_, err = h.Get()
	assert.ErrorIs(t, err, container.ErrCircularDependency)
	assert.Equal(t, 0, c.Live())
}

func TestConstruction_CircularDependencyAcrossGoroutines(t *testing.T) {
	type ping struct{}
	type pong struct{}

	// Both constructors are running before either injects the other.
	var entered sync.WaitGroup
	entered.Add(2)
	rendezvous := func() {
		entered.Done()
		entered.Wait()
	}
	c := started(t,
		container.NewBean(func(cc *container.CreationalContext) (*ping, error) {
			rendezvous()
			_, err := container.Inject[*pong](cc)
			return &ping{}, err
		}).Scoped(container.ApplicationScoped),
		container.NewBean(func(cc *container.CreationalContext) (*pong, error) {
			rendezvous()
			_, err := container.Inject[*ping](cc)
			return &pong{}, err
		}).Scoped(container.ApplicationScoped),
	)

	ctx := context.Background()
	errs := make([]error, 2)
	var g errgroup.Group
	g.Go(func() error {
		h, err := container.Instance[*ping](ctx, c)
		if err != nil {
			return err
		}
		_, errs[0] = h.Get()
		return nil
	})
	g.Go(func() error {
		h, err := container.Instance[*pong](ctx, c)
		if err != nil {
			return err
		}
		_, errs[1] = h.Get()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lookups are still blocked on each other")
	}

	for _, err := range errs {
		assert.ErrorIs(t, err, container.ErrCircularDependency)
		assert.ErrorIs(t, err, container.ErrConstruction)
	}
	assert.Equal(t, 0, c.Live())
}

// ── RequestScoped ─────────────────────────────────────────────────────────────

func TestRequestScoped_RequiresActiveContext(t *testing.T) {
	c := started(t, container.NewBean(newTracked).Scoped(container.RequestScoped))

	h, err := container.Instance[*tracked](context.Background(), c)
	require.NoError(t, err)
	_, err = h.Get()
	require.ErrorIs(t, err, container.ErrContextNotActive)

	var cna *container.ContextNotActiveError
	require.ErrorAs(t, err, &cna)
	assert.Equal(t, container.RequestScoped, cna.Scope)
}

func TestRequestScoped_Isolation(t *testing.T) {
	var destroyed atomic.Int32
	c := started(t, container.NewBean(newTracked).
		Scoped(container.RequestScoped).
		PreDestroy(func(*tracked) error {
			destroyed.Add(1)
			return nil
		}))

	ctx1, rc1 := c.BeginRequest(context.Background())
	ctx2, rc2 := c.BeginRequest(context.Background())
	assert.NotEqual(t, rc1.ID(), rc2.ID())

	a1, h1 := get[*tracked](t, ctx1, c)
	a2, _ := get[*tracked](t, ctx1, c)
	b, _ := get[*tracked](t, ctx2, c)
	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)

	require.NoError(t, rc1.End())
	require.NoError(t, rc1.End())
	assert.False(t, rc1.Active())
	assert.True(t, rc2.Active())
	assert.EqualValues(t, 1, destroyed.Load())

	_, err := h1.Get()
	assert.ErrorIs(t, err, container.ErrUseAfterDestroy)

	h, err := container.Instance[*tracked](ctx1, c)
	require.NoError(t, err)
	_, err = h.Get()
	assert.ErrorIs(t, err, container.ErrContextNotActive)

	still, _ := get[*tracked](t, ctx2, c)
	assert.Same(t, b, still)
	require.NoError(t, rc2.End())
	assert.EqualValues(t, 2, destroyed.Load())
}

func TestRequestScoped_ConcurrentCreation(t *testing.T) {
	var constructions atomic.Int32
	c := started(t, container.NewBean(func(*container.CreationalContext) (*tracked, error) {
		constructions.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &tracked{}, nil
	}).Scoped(container.RequestScoped))
	def, err := c.Resolve(reflect.TypeFor[*tracked]())
	require.NoError(t, err)

	ctx, rc := c.BeginRequest(context.Background())
	const workers = 32
	got := make([]*tracked, workers)
	start := make(chan struct{})
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			inst, err := c.GetOrCreate(ctx, def)
			if err != nil {
				return err
			}
			got[i] = inst.Value().(*tracked)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, constructions.Load())
	for _, tr := range got {
		assert.Same(t, got[0], tr)
	}
	require.NoError(t, rc.End())

	other, rc2 := c.BeginRequest(context.Background())
	inst, err := c.GetOrCreate(other, def)
	require.NoError(t, err)
	assert.NotSame(t, got[0], inst.Value())
	assert.EqualValues(t, 2, constructions.Load())
	require.NoError(t, rc2.End())
}

func TestRequestScoped_ForeignContainer(t *testing.T) {
	c := started(t, container.NewBean(newTracked).Scoped(container.RequestScoped))
	other := started(t)

	ctx, rc := other.BeginRequest(context.Background())
	defer rc.End()

	h, err := container.Instance[*tracked](ctx, c)
	require.NoError(t, err)
	_, err = h.Get()
	assert.ErrorIs(t, err, container.ErrContextNotActive)
}

func TestRequestFrom(t *testing.T) {
	c := started(t)
	_, ok := container.RequestFrom(context.Background())
	assert.False(t, ok)

	ctx, rc := c.BeginRequest(context.Background())
	got, ok := container.RequestFrom(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)
}
