package http

import (
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-arc/framework/container"
)

// BeanInfo is the JSON view of a bean definition.
type BeanInfo struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Type        string   `json:"type"`
	Types       []string `json:"types"`
	Qualifiers  []string `json:"qualifiers"`
	Scope       string   `json:"scope"`
	Alternative bool     `json:"alternative"`
	Priority    int      `json:"priority,omitempty"`
	Startup     bool     `json:"startup,omitempty"`
	Declaring   string   `json:"declaring,omitempty"`
}

// Describe converts a definition to its JSON view.
func Describe(def *container.BeanDefinition) BeanInfo {
	info := BeanInfo{
		ID:          string(def.ID()),
		Kind:        def.Kind().String(),
		Type:        def.Type().String(),
		Types:       typeNames(def.Types()),
		Scope:       def.Scope().String(),
		Alternative: def.Alternative(),
		Priority:    def.Priority(),
		Startup:     def.Startup(),
	}
	for _, q := range def.Qualifiers() {
		info.Qualifiers = append(info.Qualifiers, q.String())
	}
	if d := def.Declaring(); d != nil {
		info.Declaring = string(d.ID())
	}
	return info
}

func typeNames(ts []reflect.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

// BeansHandler lists every registered bean.
//
//	GET /_arc/beans → {"data": [BeanInfo...]}
func BeansHandler(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		beans := c.Beans()
		out := make([]BeanInfo, 0, len(beans))
		for _, def := range beans {
			out = append(out, Describe(def))
		}
		NewResponse(w).Success(out)
	}
}

// BeanHandler shows a single bean by its {id} route parameter.
//
//	GET /_arc/beans/{id} → {"data": BeanInfo}
func BeanHandler(c *container.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, ok := c.Registry().Bean(container.BeanID(chi.URLParam(r, "id")))
		if !ok {
			NewResponse(w).NotFound("Bean not found.")
			return
		}
		NewResponse(w).Success(Describe(def))
	}
}
