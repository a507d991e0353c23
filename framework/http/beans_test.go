package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-arc/framework/container"
	gohttp "github.com/km-arc/go-arc/framework/http"
)

type clock struct{}

func (*clock) now() int64 { return 0 }

func diagnosticsRouter(t *testing.T) (http.Handler, *container.Container) {
	t.Helper()
	owner := container.NewBean(func(*container.CreationalContext) (*clock, error) {
		return &clock{}, nil
	}).ID("clock").Scoped(container.ApplicationScoped)
	ticks := container.ProducerMethod(owner, func(c *clock, _ *container.CreationalContext) (int64, error) {
		return c.now(), nil
	}).Named("ticks")

	c := container.New()
	require.NoError(t, c.Register(owner, ticks))
	require.NoError(t, c.Start(context.Background()))

	r := chi.NewRouter()
	r.Get("/_arc/beans", gohttp.BeansHandler(c))
	r.Get("/_arc/beans/{id}", gohttp.BeanHandler(c))
	return r, c
}

func TestBeansHandler(t *testing.T) {
	r, _ := diagnosticsRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_arc/beans", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []gohttp.BeanInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Data, 2)

	assert.Equal(t, "clock", body.Data[0].ID)
	assert.Equal(t, "Class", body.Data[0].Kind)
	assert.Equal(t, "ApplicationScoped", body.Data[0].Scope)
	assert.Equal(t, "ProducerMethod", body.Data[1].Kind)
	assert.Equal(t, "int64", body.Data[1].Type)
	assert.Equal(t, "clock", body.Data[1].Declaring)
	assert.Contains(t, body.Data[1].Qualifiers, "@Named(ticks)")
}

func TestBeanHandler(t *testing.T) {
	r, _ := diagnosticsRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_arc/beans/clock", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"type":"*http_test.clock"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_arc/beans/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
