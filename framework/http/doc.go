// Package http provides JSON response helpers and the HTTP side of the
// bean container: the request-scope middleware and diagnostics handlers.
//
// # Response
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)           // raw JSON with status
//	res.Success(data)             // 200 {"data": ...}
//	res.Created(data)             // 201 {"data": ...}
//	res.NoContent()               // 204
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.ServerError()             // 500 {"message": "Server Error."}
//	res.ContainerError(err)       // {"message": ..., "error": "unsatisfied"}
//
// # Request scope
//
// RequestScope opens a request context before the handler runs and ends it
// afterwards, so RequestScoped beans live exactly as long as the request:
//
//	router.Middleware(gohttp.RequestScope(c, log))
//
//	router.Get("/me", func(w http.ResponseWriter, r *http.Request) {
//	    h, err := container.Instance[*Session](r.Context(), c)
//	    ...
//	})
//
// # Diagnostics
//
//	router.Get("/_arc/beans", gohttp.BeansHandler(c))
//	router.Get("/_arc/beans/{id}", gohttp.BeanHandler(c))
package http
