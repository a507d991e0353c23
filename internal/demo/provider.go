package demo

import (
	"context"
	"errors"
	"net/http"

	"github.com/km-arc/go-arc/framework/container"
	gohttp "github.com/km-arc/go-arc/framework/http"
	"github.com/km-arc/go-arc/framework/routing"
)

// Provider registers the demo beans and routes.
type Provider struct{}

func (Provider) Register(r *container.Registry) error {
	return r.Register(Beans()...)
}

func (Provider) Boot(ctx context.Context, c *container.Container) error {
	router, release, err := lookup[*routing.Router](ctx, c)
	if err != nil {
		return err
	}
	defer release()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"message": "Welcome to Arc!"})
	})
	router.Get("/hello", hello(c))
	return nil
}

// hello greets ?name= in ?lang= (en or fr).
//
//	GET /hello?name=Ada&lang=fr → {"data": {"message": "bonjour, Ada", ...}}
func hello(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := gohttp.NewResponse(w)
		ctx := r.Context()

		lang := r.URL.Query().Get("lang")
		if lang == "" {
			lang = "en"
		}
		salutation, release, err := lookup[Salutation](ctx, c, container.Named(lang))
		if err != nil {
			if errors.Is(err, container.ErrUnsatisfied) {
				res.Error(http.StatusBadRequest, "unsupported language "+lang)
				return
			}
			res.ContainerError(err)
			return
		}
		defer release()

		greeter, release, err := lookup[*Greeter](ctx, c)
		if err != nil {
			res.ContainerError(err)
			return
		}
		defer release()

		visit, release, err := lookup[*Visit](ctx, c)
		if err != nil {
			res.ContainerError(err)
			return
		}
		defer release()

		message, hits := greeter.Greet(salutation, r.URL.Query().Get("name"))
		res.Success(map[string]any{
			"message": message,
			"hits":    hits,
			"visit":   visit.ID,
		})
	}
}
