package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-arc/framework/container"
)

// RequestScope activates a request context for every request and ends it
// after the handler returns, destroying the request's RequestScoped beans.
// Each onBegin hook is called with the new context before the handler.
//
//	router.Middleware(gohttp.RequestScope(c, log))
func RequestScope(c *container.Container, log *zap.Logger, onBegin ...func(*container.RequestContext)) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, rc := c.BeginRequest(r.Context())
			for _, fn := range onBegin {
				fn(rc)
			}
			defer func() {
				if err := rc.End(); err != nil {
					log.Warn("ending request context failed",
						zap.String("request_context", rc.ID()),
						zap.String("request_id", middleware.GetReqID(ctx)),
						zap.Error(err))
				}
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
